package types

import (
	"time"

	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

var (
	BaseEventType = services.NewObjectType("BaseEventType", ua.ObjectTypeIDBaseEventType)

	baseEventEventID     = services.NewProperty[ua.ByteString](BaseEventType, "EventId", ua.DataTypeIDByteString, models.ValueRankScalar)
	baseEventEventType   = services.NewProperty[ua.NodeID](BaseEventType, "EventType", ua.DataTypeIDNodeID, models.ValueRankScalar)
	baseEventSourceNode  = services.NewProperty[ua.NodeID](BaseEventType, "SourceNode", ua.DataTypeIDNodeID, models.ValueRankScalar)
	baseEventSourceName  = services.NewProperty[string](BaseEventType, "SourceName", ua.DataTypeIDString, models.ValueRankScalar)
	baseEventTime        = services.NewProperty[time.Time](BaseEventType, "Time", ua.DataTypeIDDateTime, models.ValueRankScalar)
	baseEventReceiveTime = services.NewProperty[time.Time](BaseEventType, "ReceiveTime", ua.DataTypeIDDateTime, models.ValueRankScalar)
	baseEventMessage     = services.NewProperty[ua.LocalizedText](BaseEventType, "Message", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	baseEventSeverity    = services.NewProperty[uint16](BaseEventType, "Severity", ua.DataTypeIDUInt16, models.ValueRankScalar)
)

// BaseEvent is the facade of a BaseEventType instance. Every other event
// facade embeds it.
type BaseEvent struct {
	obj *services.Object
}

func NewBaseEvent(s *services.Session, nodeID ua.NodeID) (*BaseEvent, error) {
	obj, err := s.Bind(nodeID, BaseEventType)
	if err != nil {
		return nil, err
	}
	return &BaseEvent{obj}, nil
}

// Object returns the bound instance, for generic access.
func (e BaseEvent) Object() *services.Object { return e.obj }

func (e BaseEvent) EventID() services.Accessor[ua.ByteString] {
	return baseEventEventID.Bind(e.obj)
}

func (e BaseEvent) EventType() services.Accessor[ua.NodeID] {
	return baseEventEventType.Bind(e.obj)
}

func (e BaseEvent) SourceNode() services.Accessor[ua.NodeID] {
	return baseEventSourceNode.Bind(e.obj)
}

func (e BaseEvent) SourceName() services.Accessor[string] {
	return baseEventSourceName.Bind(e.obj)
}

func (e BaseEvent) Time() services.Accessor[time.Time] {
	return baseEventTime.Bind(e.obj)
}

func (e BaseEvent) ReceiveTime() services.Accessor[time.Time] {
	return baseEventReceiveTime.Bind(e.obj)
}

func (e BaseEvent) Message() services.Accessor[ua.LocalizedText] {
	return baseEventMessage.Bind(e.obj)
}

func (e BaseEvent) Severity() services.Accessor[uint16] {
	return baseEventSeverity.Bind(e.obj)
}
