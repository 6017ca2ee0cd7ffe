package types

import (
	"github.com/amine-amaach/uafacade/services"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

var (
	StateMachineType       = services.NewObjectType("StateMachineType", ua.ObjectTypeIDStateMachineType)
	FiniteStateMachineType = services.NewObjectType("FiniteStateMachineType", ua.ObjectTypeIDFiniteStateMachineType, StateMachineType)
	StateType              = services.NewObjectType("StateType", ua.ObjectTypeIDStateType)
	TransitionType         = services.NewObjectType("TransitionType", ua.ObjectTypeIDTransitionType)

	ExclusiveLimitStateMachineType = services.NewObjectType("ExclusiveLimitStateMachineType", ua.ObjectTypeIDExclusiveLimitStateMachineType, FiniteStateMachineType)
	ShelvedStateMachineType        = services.NewObjectType("ShelvedStateMachineType", ua.ObjectTypeIDShelvedStateMachineType, FiniteStateMachineType)

	stateMachineCurrentState   = services.NewProperty[ua.LocalizedText](StateMachineType, "CurrentState", ua.DataTypeIDLocalizedText, models.ValueRankScalar)
	stateMachineLastTransition = services.NewProperty[ua.LocalizedText](StateMachineType, "LastTransition", ua.DataTypeIDLocalizedText, models.ValueRankScalar)

	finiteStateMachineAvailableStates      = services.NewProperty[[]ua.NodeID](FiniteStateMachineType, "AvailableStates", ua.DataTypeIDNodeID, models.ValueRankOneDimension)
	finiteStateMachineAvailableTransitions = services.NewProperty[[]ua.NodeID](FiniteStateMachineType, "AvailableTransitions", ua.DataTypeIDNodeID, models.ValueRankOneDimension)

	stateStateNumber           = services.NewProperty[uint32](StateType, "StateNumber", ua.DataTypeIDUInt32, models.ValueRankScalar)
	transitionTransitionNumber = services.NewProperty[uint32](TransitionType, "TransitionNumber", ua.DataTypeIDUInt32, models.ValueRankScalar)

	exclusiveLimitHighHigh       = services.NewComponent(ExclusiveLimitStateMachineType, "HighHigh", StateType, wrapState)
	exclusiveLimitHigh           = services.NewComponent(ExclusiveLimitStateMachineType, "High", StateType, wrapState)
	exclusiveLimitLow            = services.NewComponent(ExclusiveLimitStateMachineType, "Low", StateType, wrapState)
	exclusiveLimitLowLow         = services.NewComponent(ExclusiveLimitStateMachineType, "LowLow", StateType, wrapState)
	exclusiveLimitLowLowToLow    = services.NewComponent(ExclusiveLimitStateMachineType, "LowLowToLow", TransitionType, wrapTransition)
	exclusiveLimitLowToLowLow    = services.NewComponent(ExclusiveLimitStateMachineType, "LowToLowLow", TransitionType, wrapTransition)
	exclusiveLimitHighHighToHigh = services.NewComponent(ExclusiveLimitStateMachineType, "HighHighToHigh", TransitionType, wrapTransition)
	exclusiveLimitHighToHighHigh = services.NewComponent(ExclusiveLimitStateMachineType, "HighToHighHigh", TransitionType, wrapTransition)
	shelvedUnshelveTime          = services.NewProperty[float64](ShelvedStateMachineType, "UnshelveTime", ua.DataTypeIDDuration, models.ValueRankScalar)
	shelvedUnshelved             = services.NewComponent(ShelvedStateMachineType, "Unshelved", StateType, wrapState)
	shelvedTimedShelved          = services.NewComponent(ShelvedStateMachineType, "TimedShelved", StateType, wrapState)
	shelvedOneShotShelved        = services.NewComponent(ShelvedStateMachineType, "OneShotShelved", StateType, wrapState)
	shelvedUnshelvedToTimed      = services.NewComponent(ShelvedStateMachineType, "UnshelvedToTimedShelved", TransitionType, wrapTransition)
	shelvedUnshelvedToOneShot    = services.NewComponent(ShelvedStateMachineType, "UnshelvedToOneShotShelved", TransitionType, wrapTransition)
	shelvedTimedToUnshelved      = services.NewComponent(ShelvedStateMachineType, "TimedShelvedToUnshelved", TransitionType, wrapTransition)
	shelvedOneShotToUnshelved    = services.NewComponent(ShelvedStateMachineType, "OneShotShelvedToUnshelved", TransitionType, wrapTransition)
)

// StateMachine is the facade of a StateMachineType instance.
type StateMachine struct {
	obj *services.Object
}

func NewStateMachine(s *services.Session, nodeID ua.NodeID) (*StateMachine, error) {
	obj, err := s.Bind(nodeID, StateMachineType)
	if err != nil {
		return nil, err
	}
	return &StateMachine{obj}, nil
}

func (m StateMachine) Object() *services.Object { return m.obj }

func (m StateMachine) CurrentState() services.Accessor[ua.LocalizedText] {
	return stateMachineCurrentState.Bind(m.obj)
}

func (m StateMachine) LastTransition() services.Accessor[ua.LocalizedText] {
	return stateMachineLastTransition.Bind(m.obj)
}

type FiniteStateMachine struct {
	StateMachine
}

func NewFiniteStateMachine(s *services.Session, nodeID ua.NodeID) (*FiniteStateMachine, error) {
	obj, err := s.Bind(nodeID, FiniteStateMachineType)
	if err != nil {
		return nil, err
	}
	return &FiniteStateMachine{StateMachine{obj}}, nil
}

func (m FiniteStateMachine) AvailableStates() services.Accessor[[]ua.NodeID] {
	return finiteStateMachineAvailableStates.Bind(m.obj)
}

func (m FiniteStateMachine) AvailableTransitions() services.Accessor[[]ua.NodeID] {
	return finiteStateMachineAvailableTransitions.Bind(m.obj)
}

// State is a state of a finite state machine.
type State struct {
	obj *services.Object
}

func NewState(s *services.Session, nodeID ua.NodeID) (*State, error) {
	obj, err := s.Bind(nodeID, StateType)
	if err != nil {
		return nil, err
	}
	return &State{obj}, nil
}

func wrapState(obj *services.Object) *State { return &State{obj} }

func (st State) Object() *services.Object { return st.obj }

func (st State) StateNumber() services.Accessor[uint32] {
	return stateStateNumber.Bind(st.obj)
}

// Transition is a transition of a finite state machine.
type Transition struct {
	obj *services.Object
}

func NewTransition(s *services.Session, nodeID ua.NodeID) (*Transition, error) {
	obj, err := s.Bind(nodeID, TransitionType)
	if err != nil {
		return nil, err
	}
	return &Transition{obj}, nil
}

func wrapTransition(obj *services.Object) *Transition { return &Transition{obj} }

func (tr Transition) Object() *services.Object { return tr.obj }

func (tr Transition) TransitionNumber() services.Accessor[uint32] {
	return transitionTransitionNumber.Bind(tr.obj)
}

// ExclusiveLimitStateMachine tracks which limit of an exclusive limit alarm
// is active. Its states and transitions are child objects; accessors yield a
// nil facade when the server does not expose them.
type ExclusiveLimitStateMachine struct {
	FiniteStateMachine
}

func NewExclusiveLimitStateMachine(s *services.Session, nodeID ua.NodeID) (*ExclusiveLimitStateMachine, error) {
	obj, err := s.Bind(nodeID, ExclusiveLimitStateMachineType)
	if err != nil {
		return nil, err
	}
	return wrapExclusiveLimitStateMachine(obj), nil
}

func wrapExclusiveLimitStateMachine(obj *services.Object) *ExclusiveLimitStateMachine {
	return &ExclusiveLimitStateMachine{FiniteStateMachine{StateMachine{obj}}}
}

func (m ExclusiveLimitStateMachine) HighHigh() services.ComponentAccessor[*State] {
	return exclusiveLimitHighHigh.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) High() services.ComponentAccessor[*State] {
	return exclusiveLimitHigh.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) Low() services.ComponentAccessor[*State] {
	return exclusiveLimitLow.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) LowLow() services.ComponentAccessor[*State] {
	return exclusiveLimitLowLow.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) LowLowToLow() services.ComponentAccessor[*Transition] {
	return exclusiveLimitLowLowToLow.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) LowToLowLow() services.ComponentAccessor[*Transition] {
	return exclusiveLimitLowToLowLow.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) HighHighToHigh() services.ComponentAccessor[*Transition] {
	return exclusiveLimitHighHighToHigh.Bind(m.obj)
}

func (m ExclusiveLimitStateMachine) HighToHighHigh() services.ComponentAccessor[*Transition] {
	return exclusiveLimitHighToHighHigh.Bind(m.obj)
}

// ShelvedStateMachine is the shelving state of an alarm.
type ShelvedStateMachine struct {
	FiniteStateMachine
}

func NewShelvedStateMachine(s *services.Session, nodeID ua.NodeID) (*ShelvedStateMachine, error) {
	obj, err := s.Bind(nodeID, ShelvedStateMachineType)
	if err != nil {
		return nil, err
	}
	return wrapShelvedStateMachine(obj), nil
}

func wrapShelvedStateMachine(obj *services.Object) *ShelvedStateMachine {
	return &ShelvedStateMachine{FiniteStateMachine{StateMachine{obj}}}
}

// UnshelveTime is the remaining time in milliseconds until the alarm unshelves.
func (m ShelvedStateMachine) UnshelveTime() services.Accessor[float64] {
	return shelvedUnshelveTime.Bind(m.obj)
}

func (m ShelvedStateMachine) Unshelved() services.ComponentAccessor[*State] {
	return shelvedUnshelved.Bind(m.obj)
}

func (m ShelvedStateMachine) TimedShelved() services.ComponentAccessor[*State] {
	return shelvedTimedShelved.Bind(m.obj)
}

func (m ShelvedStateMachine) OneShotShelved() services.ComponentAccessor[*State] {
	return shelvedOneShotShelved.Bind(m.obj)
}

func (m ShelvedStateMachine) UnshelvedToTimedShelved() services.ComponentAccessor[*Transition] {
	return shelvedUnshelvedToTimed.Bind(m.obj)
}

func (m ShelvedStateMachine) UnshelvedToOneShotShelved() services.ComponentAccessor[*Transition] {
	return shelvedUnshelvedToOneShot.Bind(m.obj)
}

func (m ShelvedStateMachine) TimedShelvedToUnshelved() services.ComponentAccessor[*Transition] {
	return shelvedTimedToUnshelved.Bind(m.obj)
}

func (m ShelvedStateMachine) OneShotShelvedToUnshelved() services.ComponentAccessor[*Transition] {
	return shelvedOneShotToUnshelved.Bind(m.obj)
}
