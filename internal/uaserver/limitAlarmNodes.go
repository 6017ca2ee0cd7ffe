package uaserver

import (
	"context"
	"fmt"
	"time"

	"github.com/amine-amaach/uafacade/internal/component"
	"github.com/amine-amaach/uafacade/internal/simulators"
	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Limit state names, as shown by LimitState/CurrentState.
const (
	StateHighHigh = "HighHigh"
	StateHigh     = "High"
	StateLow      = "Low"
	StateLowLow   = "LowLow"
)

// LimitAlarmNodes are the server nodes of one simulated sensor, shaped like
// an ExclusiveLimitAlarmType instance.
type LimitAlarmNodes struct {
	SensorId string
	Object   *server.ObjectNode

	input         *server.VariableNode
	activeState   *server.VariableNode
	time          *server.VariableNode
	highHighLimit *server.VariableNode
	highLimit     *server.VariableNode
	lowLimit      *server.VariableNode
	lowLowLimit   *server.VariableNode
	currentState  *server.VariableNode
}

// NodeID is the node id of the alarm object.
func (n *LimitAlarmNodes) NodeID() ua.NodeID { return n.Object.NodeID() }

// AddLimitSensor builds the alarm object of sensor under the IoTSensors
// folder.
func (uaServer *UaSrvService) AddLimitSensor(sensor component.LimitSensor) (*LimitAlarmNodes, error) {
	nsi := uaServer.nsi
	id := sensor.SensorId
	objectID := ua.NodeIDString{NamespaceIndex: nsi, ID: id}
	nodeID := func(path string) ua.NodeID {
		return ua.NodeIDString{NamespaceIndex: nsi, ID: id + "." + path}
	}
	now := time.Now().UTC()

	n := &LimitAlarmNodes{SensorId: id}
	n.Object = server.NewObjectNode(
		objectID,
		ua.QualifiedName{NamespaceIndex: nsi, Name: id},
		ua.LocalizedText{Text: id},
		ua.LocalizedText{Text: fmt.Sprint(id, " limit alarm")},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: uaServer.folder},
			},
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasTypeDefinition,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectTypeIDExclusiveLimitAlarmType},
			},
		},
		0,
	)
	n.input = newVariable(nodeID("Value"), ua.QualifiedName{NamespaceIndex: nsi, Name: "Value"}, objectID,
		ua.ReferenceTypeIDHasComponent, ua.NewDataValue(sensor.Mean, 0, now, 0, now, 0), ua.DataTypeIDDouble, false)

	property := func(name string, value ua.Variant, dataType ua.NodeID, writable bool) *server.VariableNode {
		return newVariable(nodeID(name), ua.QualifiedName{Name: name}, objectID,
			ua.ReferenceTypeIDHasProperty, ua.NewDataValue(value, 0, now, 0, now, 0), dataType, writable)
	}
	child := func(name string, value ua.Variant, dataType ua.NodeID) *server.VariableNode {
		return newVariable(nodeID(name), ua.QualifiedName{Name: name}, objectID,
			ua.ReferenceTypeIDHasComponent, ua.NewDataValue(value, 0, now, 0, now, 0), dataType, false)
	}

	n.time = property("Time", now, ua.DataTypeIDDateTime, false)
	n.activeState = child("ActiveState", ua.LocalizedText{Text: "Inactive"}, ua.DataTypeIDLocalizedText)
	n.highHighLimit = property("HighHighLimit", sensor.HighHighLimit, ua.DataTypeIDDouble, true)
	n.highLimit = property("HighLimit", sensor.HighLimit, ua.DataTypeIDDouble, true)
	n.lowLimit = property("LowLimit", sensor.LowLimit, ua.DataTypeIDDouble, true)
	n.lowLowLimit = property("LowLowLimit", sensor.LowLowLimit, ua.DataTypeIDDouble, true)

	nodes := []server.Node{
		n.Object,
		n.input,
		n.time,
		n.activeState,
		n.highHighLimit,
		n.highLimit,
		n.lowLimit,
		n.lowLowLimit,
		property("EventType", ua.ObjectTypeIDExclusiveLimitAlarmType, ua.DataTypeIDNodeID, false),
		property("SourceNode", nodeID("Value"), ua.DataTypeIDNodeID, false),
		property("SourceName", id, ua.DataTypeIDString, false),
		property("Message", ua.LocalizedText{Text: id + " is within limits"}, ua.DataTypeIDLocalizedText, false),
		property("Severity", uint16(500), ua.DataTypeIDUInt16, false),
		property("ConditionName", id+"Limits", ua.DataTypeIDString, false),
		property("Retain", false, ua.DataTypeIDBoolean, false),
		property("InputNode", nodeID("Value"), ua.DataTypeIDNodeID, false),
		property("SuppressedOrShelved", false, ua.DataTypeIDBoolean, false),
		child("EnabledState", ua.LocalizedText{Text: "Enabled"}, ua.DataTypeIDLocalizedText),
		child("AckedState", ua.LocalizedText{Text: "Acknowledged"}, ua.DataTypeIDLocalizedText),
		child("ConfirmedState", ua.LocalizedText{Text: "Confirmed"}, ua.DataTypeIDLocalizedText),
	}

	// LimitState sub-state machine
	limitStateID := nodeID("LimitState")
	limitState := server.NewObjectNode(
		limitStateID,
		ua.QualifiedName{Name: "LimitState"},
		ua.LocalizedText{Text: "LimitState"},
		ua.LocalizedText{Text: "The active limit of " + id},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: objectID},
			},
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasTypeDefinition,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectTypeIDExclusiveLimitStateMachineType},
			},
		},
		0,
	)
	n.currentState = newVariable(nodeID("LimitState.CurrentState"), ua.QualifiedName{Name: "CurrentState"}, limitStateID,
		ua.ReferenceTypeIDHasComponent, ua.NewDataValue(ua.LocalizedText{}, 0, now, 0, now, 0), ua.DataTypeIDLocalizedText, false)
	nodes = append(nodes, limitState, n.currentState)

	var stateIDs []ua.NodeID
	for i, name := range []string{StateHighHigh, StateHigh, StateLow, StateLowLow} {
		stateID := nodeID("LimitState." + name)
		stateIDs = append(stateIDs, stateID)
		nodes = append(nodes,
			server.NewObjectNode(
				stateID,
				ua.QualifiedName{Name: name},
				ua.LocalizedText{Text: name},
				ua.LocalizedText{Text: name + " limit state"},
				nil,
				[]ua.Reference{
					{
						ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
						IsInverse:       true,
						TargetID:        ua.ExpandedNodeID{NodeID: limitStateID},
					},
					{
						ReferenceTypeID: ua.ReferenceTypeIDHasTypeDefinition,
						TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectTypeIDStateType},
					},
				},
				0,
			),
			newVariable(nodeID("LimitState."+name+".StateNumber"), ua.QualifiedName{Name: "StateNumber"}, stateID,
				ua.ReferenceTypeIDHasProperty, ua.NewDataValue(uint32(i+1), 0, now, 0, now, 0), ua.DataTypeIDUInt32, false),
		)
	}
	nodes = append(nodes,
		newVariable(nodeID("LimitState.AvailableStates"), ua.QualifiedName{Name: "AvailableStates"}, limitStateID,
			ua.ReferenceTypeIDHasComponent, ua.NewDataValue(stateIDs, 0, now, 0, now, 0), ua.DataTypeIDNodeID, false),
	)

	if err := uaServer.server.NamespaceManager().AddNodes(nodes...); err != nil {
		return nil, errors.Wrapf(err, "adding nodes of %s", id)
	}
	uaServer.log.WithFields(logrus.Fields{
		"Sensor Id": id,
		"Node Id":   objectID,
		"Nodes":     len(nodes),
	}).Infoln("Limit alarm added ✅")
	return n, nil
}

func newVariable(nodeID ua.NodeID, browseName ua.QualifiedName, parent ua.NodeID, reference ua.NodeID, value ua.DataValue, dataType ua.NodeID, writable bool) *server.VariableNode {
	var accessLevel byte = ua.AccessLevelsCurrentRead
	if writable {
		accessLevel |= ua.AccessLevelsCurrentWrite
	}
	valueRank := ua.ValueRankScalar
	if _, ok := value.Value.([]ua.NodeID); ok {
		valueRank = ua.ValueRankOneDimension
	}
	return server.NewVariableNode(
		nodeID,
		browseName,
		ua.LocalizedText{Text: browseName.Name},
		ua.LocalizedText{},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: reference,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: parent},
			},
		},
		value,
		dataType,
		valueRank,
		[]uint32{},
		accessLevel,
		250.0,
		false,
		nil,
	)
}

// LimitState returns the exclusive limit state of value, or "" when value is
// within limits.
func LimitState(value, highHigh, high, low, lowLow float64) string {
	switch {
	case value >= highHigh:
		return StateHighHigh
	case value >= high:
		return StateHigh
	case value <= lowLow:
		return StateLowLow
	case value <= low:
		return StateLow
	default:
		return ""
	}
}

// Update publishes a new sensor value and re-evaluates the alarm against the
// current limits, which clients may have written in the meantime.
func (n *LimitAlarmNodes) Update(value float64) string {
	t := time.Now().UTC()
	n.input.SetValue(ua.NewDataValue(value, 0, t, 0, t, 0))

	state := LimitState(value,
		limitOf(n.highHighLimit), limitOf(n.highLimit), limitOf(n.lowLimit), limitOf(n.lowLowLimit))
	active := "Inactive"
	if state != "" {
		active = "Active"
	}
	if current, _ := n.currentState.Value().Value.(ua.LocalizedText); current.Text != state {
		n.currentState.SetValue(ua.NewDataValue(ua.LocalizedText{Text: state}, 0, t, 0, t, 0))
		n.activeState.SetValue(ua.NewDataValue(ua.LocalizedText{Text: active}, 0, t, 0, t, 0))
		n.time.SetValue(ua.NewDataValue(t, 0, t, 0, t, 0))
	}
	return state
}

func limitOf(n *server.VariableNode) float64 {
	v, _ := n.Value().Value.(float64)
	return v
}

// Simulate feeds the sensor's random walk into its alarm until ctx is done.
func (n *LimitAlarmNodes) Simulate(ctx context.Context, sim *simulators.IoTSensorSim, log *logrus.Logger) {
	go func() {
		for value := range sim.Run(ctx, log) {
			if state := n.Update(value); state != "" {
				log.WithFields(logrus.Fields{
					"Sensor Id": n.SensorId,
					"Value":     value,
					"State":     state,
				}).Debugln("Limit exceeded 🔔")
			}
		}
	}()
}
