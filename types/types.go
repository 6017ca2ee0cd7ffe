// Package types holds facades for a representative set of standard OPC-UA
// object types: base events, the alarm and condition chain, state machines
// and audit events.
//
// Each type is declared once at package init and registered in the default
// registry, so declaration mistakes surface as a panic on import rather than
// at the first read.
package types

import (
	"github.com/amine-amaach/uafacade/services"
)

func init() {
	for _, t := range All() {
		services.MustRegister(t)
	}
}

// All returns every object type declared by this package, supertypes first.
func All() []*services.ObjectType {
	return []*services.ObjectType{
		BaseEventType,
		ConditionType,
		AcknowledgeableConditionType,
		AlarmConditionType,
		LimitAlarmType,
		ExclusiveLimitAlarmType,
		StateMachineType,
		FiniteStateMachineType,
		StateType,
		TransitionType,
		ExclusiveLimitStateMachineType,
		ShelvedStateMachineType,
		AuditEventType,
		AuditSessionEventType,
		AuditUpdateMethodEventType,
	}
}
