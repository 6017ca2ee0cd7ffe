package types

import (
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

var (
	ConditionType                = services.NewObjectType("ConditionType", ua.ObjectTypeIDConditionType, BaseEventType)
	AcknowledgeableConditionType = services.NewObjectType("AcknowledgeableConditionType", ua.ObjectTypeIDAcknowledgeableConditionType, ConditionType)
	AlarmConditionType           = services.NewObjectType("AlarmConditionType", ua.ObjectTypeIDAlarmConditionType, AcknowledgeableConditionType)
	LimitAlarmType               = services.NewObjectType("LimitAlarmType", ua.ObjectTypeIDLimitAlarmType, AlarmConditionType)
	ExclusiveLimitAlarmType      = services.NewObjectType("ExclusiveLimitAlarmType", ua.ObjectTypeIDExclusiveLimitAlarmType, LimitAlarmType)

	conditionConditionName = services.NewProperty[string](ConditionType, "ConditionName", ua.DataTypeIDString, models.ValueRankScalar)
	conditionBranchID      = services.NewProperty[ua.NodeID](ConditionType, "BranchId", ua.DataTypeIDNodeID, models.ValueRankScalar)
	conditionRetain        = services.NewProperty[bool](ConditionType, "Retain", ua.DataTypeIDBoolean, models.ValueRankScalar)
	conditionEnabledState  = services.NewProperty[ua.LocalizedText](ConditionType, "EnabledState", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	conditionQuality       = services.NewProperty[ua.StatusCode](ConditionType, "Quality", ua.DataTypeIDStatusCode, models.ValueRankScalar)
	conditionLastSeverity  = services.NewProperty[uint16](ConditionType, "LastSeverity", ua.DataTypeIDUInt16, models.ValueRankScalar)
	conditionComment       = services.NewProperty[ua.LocalizedText](ConditionType, "Comment", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	conditionClientUserID  = services.NewProperty[string](ConditionType, "ClientUserId", ua.DataTypeIDString, models.ValueRankScalar)

	ackAckedState     = services.NewProperty[ua.LocalizedText](AcknowledgeableConditionType, "AckedState", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	ackConfirmedState = services.NewProperty[ua.LocalizedText](AcknowledgeableConditionType, "ConfirmedState", ua.DataTypeIDLocalizedText, models.ValueRankScalar)

	alarmActiveState          = services.NewProperty[ua.LocalizedText](AlarmConditionType, "ActiveState", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	alarmInputNode            = services.NewProperty[ua.NodeID](AlarmConditionType, "InputNode", ua.DataTypeIDNodeID, models.ValueRankScalar)
	alarmSuppressedOrShelved  = services.NewProperty[bool](AlarmConditionType, "SuppressedOrShelved", ua.DataTypeIDBoolean, models.ValueRankScalar)
	alarmMaxTimeShelved       = services.NewProperty[float64](AlarmConditionType, "MaxTimeShelved", ua.DataTypeIDDuration, models.ValueRankScalar)
	alarmShelvingState        = services.NewComponent(AlarmConditionType, "ShelvingState", ShelvedStateMachineType, wrapShelvedStateMachine)
	limitAlarmHighHighLimit   = services.NewProperty[float64](LimitAlarmType, "HighHighLimit", ua.DataTypeIDDouble, models.ValueRankScalar)
	limitAlarmHighLimit       = services.NewProperty[float64](LimitAlarmType, "HighLimit", ua.DataTypeIDDouble, models.ValueRankScalar)
	limitAlarmLowLimit        = services.NewProperty[float64](LimitAlarmType, "LowLimit", ua.DataTypeIDDouble, models.ValueRankScalar)
	limitAlarmLowLowLimit     = services.NewProperty[float64](LimitAlarmType, "LowLowLimit", ua.DataTypeIDDouble, models.ValueRankScalar)
	exclusiveLimitAlarmLimits = services.NewComponent(ExclusiveLimitAlarmType, "LimitState", ExclusiveLimitStateMachineType, wrapExclusiveLimitStateMachine)
)

// Condition is the facade of a ConditionType instance.
type Condition struct {
	BaseEvent
}

func NewCondition(s *services.Session, nodeID ua.NodeID) (*Condition, error) {
	obj, err := s.Bind(nodeID, ConditionType)
	if err != nil {
		return nil, err
	}
	return &Condition{BaseEvent{obj}}, nil
}

func (c Condition) ConditionName() services.Accessor[string] {
	return conditionConditionName.Bind(c.obj)
}

func (c Condition) BranchID() services.Accessor[ua.NodeID] {
	return conditionBranchID.Bind(c.obj)
}

func (c Condition) Retain() services.Accessor[bool] {
	return conditionRetain.Bind(c.obj)
}

// EnabledState is the display text of the two-state enabled variable,
// "Enabled" or "Disabled".
func (c Condition) EnabledState() services.Accessor[ua.LocalizedText] {
	return conditionEnabledState.Bind(c.obj)
}

func (c Condition) Quality() services.Accessor[ua.StatusCode] {
	return conditionQuality.Bind(c.obj)
}

func (c Condition) LastSeverity() services.Accessor[uint16] {
	return conditionLastSeverity.Bind(c.obj)
}

func (c Condition) Comment() services.Accessor[ua.LocalizedText] {
	return conditionComment.Bind(c.obj)
}

func (c Condition) ClientUserID() services.Accessor[string] {
	return conditionClientUserID.Bind(c.obj)
}

type AcknowledgeableCondition struct {
	Condition
}

func NewAcknowledgeableCondition(s *services.Session, nodeID ua.NodeID) (*AcknowledgeableCondition, error) {
	obj, err := s.Bind(nodeID, AcknowledgeableConditionType)
	if err != nil {
		return nil, err
	}
	return &AcknowledgeableCondition{Condition{BaseEvent{obj}}}, nil
}

func (c AcknowledgeableCondition) AckedState() services.Accessor[ua.LocalizedText] {
	return ackAckedState.Bind(c.obj)
}

func (c AcknowledgeableCondition) ConfirmedState() services.Accessor[ua.LocalizedText] {
	return ackConfirmedState.Bind(c.obj)
}

type AlarmCondition struct {
	AcknowledgeableCondition
}

func NewAlarmCondition(s *services.Session, nodeID ua.NodeID) (*AlarmCondition, error) {
	obj, err := s.Bind(nodeID, AlarmConditionType)
	if err != nil {
		return nil, err
	}
	return &AlarmCondition{AcknowledgeableCondition{Condition{BaseEvent{obj}}}}, nil
}

func (a AlarmCondition) ActiveState() services.Accessor[ua.LocalizedText] {
	return alarmActiveState.Bind(a.obj)
}

// InputNode is the variable whose value the alarm evaluates.
func (a AlarmCondition) InputNode() services.Accessor[ua.NodeID] {
	return alarmInputNode.Bind(a.obj)
}

func (a AlarmCondition) SuppressedOrShelved() services.Accessor[bool] {
	return alarmSuppressedOrShelved.Bind(a.obj)
}

func (a AlarmCondition) MaxTimeShelved() services.Accessor[float64] {
	return alarmMaxTimeShelved.Bind(a.obj)
}

func (a AlarmCondition) ShelvingState() services.ComponentAccessor[*ShelvedStateMachine] {
	return alarmShelvingState.Bind(a.obj)
}

type LimitAlarm struct {
	AlarmCondition
}

func NewLimitAlarm(s *services.Session, nodeID ua.NodeID) (*LimitAlarm, error) {
	obj, err := s.Bind(nodeID, LimitAlarmType)
	if err != nil {
		return nil, err
	}
	return &LimitAlarm{AlarmCondition{AcknowledgeableCondition{Condition{BaseEvent{obj}}}}}, nil
}

func (a LimitAlarm) HighHighLimit() services.Accessor[float64] {
	return limitAlarmHighHighLimit.Bind(a.obj)
}

func (a LimitAlarm) HighLimit() services.Accessor[float64] {
	return limitAlarmHighLimit.Bind(a.obj)
}

func (a LimitAlarm) LowLimit() services.Accessor[float64] {
	return limitAlarmLowLimit.Bind(a.obj)
}

func (a LimitAlarm) LowLowLimit() services.Accessor[float64] {
	return limitAlarmLowLowLimit.Bind(a.obj)
}

// ExclusiveLimitAlarm is a limit alarm where at most one limit is active at a
// time; LimitState tells which.
type ExclusiveLimitAlarm struct {
	LimitAlarm
}

func NewExclusiveLimitAlarm(s *services.Session, nodeID ua.NodeID) (*ExclusiveLimitAlarm, error) {
	obj, err := s.Bind(nodeID, ExclusiveLimitAlarmType)
	if err != nil {
		return nil, err
	}
	return &ExclusiveLimitAlarm{LimitAlarm{AlarmCondition{AcknowledgeableCondition{Condition{BaseEvent{obj}}}}}}, nil
}

func (a ExclusiveLimitAlarm) LimitState() services.ComponentAccessor[*ExclusiveLimitStateMachine] {
	return exclusiveLimitAlarmLimits.Bind(a.obj)
}
