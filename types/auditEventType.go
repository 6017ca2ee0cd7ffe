package types

import (
	"time"

	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

var (
	AuditEventType             = services.NewObjectType("AuditEventType", ua.ObjectTypeIDAuditEventType, BaseEventType)
	AuditSessionEventType      = services.NewObjectType("AuditSessionEventType", ua.ObjectTypeIDAuditSessionEventType, AuditEventType)
	AuditUpdateMethodEventType = services.NewObjectType("AuditUpdateMethodEventType", ua.ObjectTypeIDAuditUpdateMethodEventType, AuditEventType)

	auditActionTimeStamp    = services.NewProperty[time.Time](AuditEventType, "ActionTimeStamp", ua.DataTypeIDDateTime, models.ValueRankScalar)
	auditStatus             = services.NewProperty[bool](AuditEventType, "Status", ua.DataTypeIDBoolean, models.ValueRankScalar)
	auditServerID           = services.NewProperty[string](AuditEventType, "ServerId", ua.DataTypeIDString, models.ValueRankScalar)
	auditClientAuditEntryID = services.NewProperty[string](AuditEventType, "ClientAuditEntryId", ua.DataTypeIDString, models.ValueRankScalar)
	auditClientUserID       = services.NewProperty[string](AuditEventType, "ClientUserId", ua.DataTypeIDString, models.ValueRankScalar)

	auditSessionSessionID = services.NewProperty[ua.NodeID](AuditSessionEventType, "SessionId", ua.DataTypeIDNodeID, models.ValueRankScalar)

	auditUpdateMethodMethodID       = services.NewProperty[ua.NodeID](AuditUpdateMethodEventType, "MethodId", ua.DataTypeIDNodeID, models.ValueRankScalar)
	auditUpdateMethodInputArguments = services.NewProperty[[]ua.Variant](AuditUpdateMethodEventType, "InputArguments", ua.DataTypeIDBaseDataType, models.ValueRankOneDimension)
)

type AuditEvent struct {
	BaseEvent
}

func NewAuditEvent(s *services.Session, nodeID ua.NodeID) (*AuditEvent, error) {
	obj, err := s.Bind(nodeID, AuditEventType)
	if err != nil {
		return nil, err
	}
	return &AuditEvent{BaseEvent{obj}}, nil
}

func (e AuditEvent) ActionTimeStamp() services.Accessor[time.Time] {
	return auditActionTimeStamp.Bind(e.obj)
}

// Status reports whether the audited action succeeded.
func (e AuditEvent) Status() services.Accessor[bool] {
	return auditStatus.Bind(e.obj)
}

func (e AuditEvent) ServerID() services.Accessor[string] {
	return auditServerID.Bind(e.obj)
}

func (e AuditEvent) ClientAuditEntryID() services.Accessor[string] {
	return auditClientAuditEntryID.Bind(e.obj)
}

func (e AuditEvent) ClientUserID() services.Accessor[string] {
	return auditClientUserID.Bind(e.obj)
}

type AuditSessionEvent struct {
	AuditEvent
}

func NewAuditSessionEvent(s *services.Session, nodeID ua.NodeID) (*AuditSessionEvent, error) {
	obj, err := s.Bind(nodeID, AuditSessionEventType)
	if err != nil {
		return nil, err
	}
	return &AuditSessionEvent{AuditEvent{BaseEvent{obj}}}, nil
}

func (e AuditSessionEvent) SessionID() services.Accessor[ua.NodeID] {
	return auditSessionSessionID.Bind(e.obj)
}

type AuditUpdateMethodEvent struct {
	AuditEvent
}

func NewAuditUpdateMethodEvent(s *services.Session, nodeID ua.NodeID) (*AuditUpdateMethodEvent, error) {
	obj, err := s.Bind(nodeID, AuditUpdateMethodEventType)
	if err != nil {
		return nil, err
	}
	return &AuditUpdateMethodEvent{AuditEvent{BaseEvent{obj}}}, nil
}

func (e AuditUpdateMethodEvent) MethodID() services.Accessor[ua.NodeID] {
	return auditUpdateMethodMethodID.Bind(e.obj)
}

func (e AuditUpdateMethodEvent) InputArguments() services.Accessor[[]ua.Variant] {
	return auditUpdateMethodInputArguments.Bind(e.obj)
}
