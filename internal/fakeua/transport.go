// Package fakeua is an in-memory address space implementing
// ports.SessionTransport, for tests.
package fakeua

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

type childKey struct {
	parent       ua.NodeID
	namespaceURI string
	browseName   string
}

// Transport serves Browse, Read and Write from maps. Writes are echoed back
// by later reads.
type Transport struct {
	mu       sync.Mutex
	children map[childKey]ua.NodeID
	values   map[ua.NodeID]ua.DataValue
	statuses map[ua.NodeID]ua.StatusCode

	// BrowseErr, ReadErr and WriteErr fail every call of that kind.
	BrowseErr error
	ReadErr   error
	WriteErr  error

	// BrowseHook runs at the start of every Browse, e.g. to block it.
	BrowseHook func(ctx context.Context)

	browses atomic.Int64
	reads   atomic.Int64
	writes  atomic.Int64
}

func New() *Transport {
	return &Transport{
		children: make(map[childKey]ua.NodeID),
		values:   make(map[ua.NodeID]ua.DataValue),
		statuses: make(map[ua.NodeID]ua.StatusCode),
	}
}

// ChildID is the node id AddProperty and AddObject assign to a child.
func ChildID(parent ua.NodeID, browseName string) ua.NodeID {
	return ua.NodeIDString{NamespaceIndex: 1, ID: fmt.Sprintf("%v/%s", parent, browseName)}
}

// AddProperty adds a standard namespace child holding value and returns its
// node id.
func (t *Transport) AddProperty(parent ua.NodeID, browseName string, value ua.Variant) ua.NodeID {
	return t.AddPropertyNS(parent, models.NamespaceUA, browseName, value)
}

func (t *Transport) AddPropertyNS(parent ua.NodeID, namespaceURI, browseName string, value ua.Variant) ua.NodeID {
	id := ChildID(parent, browseName)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children[childKey{parent, namespaceURI, browseName}] = id
	now := time.Now()
	t.values[id] = ua.NewDataValue(value, 0, now, 0, now, 0)
	return id
}

// AddObject adds a child without a value, such as a state machine.
func (t *Transport) AddObject(parent ua.NodeID, browseName string) ua.NodeID {
	id := ChildID(parent, browseName)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children[childKey{parent, models.NamespaceUA, browseName}] = id
	return id
}

// Remove deletes the child so later browses miss it.
func (t *Transport) Remove(parent ua.NodeID, browseName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.children, childKey{parent, models.NamespaceUA, browseName})
}

// SetValue replaces the server side value of nodeID.
func (t *Transport) SetValue(nodeID ua.NodeID, value ua.Variant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.values[nodeID] = ua.NewDataValue(value, 0, now, 0, now, 0)
}

// SetStatus makes reads and writes of nodeID report status.
func (t *Transport) SetStatus(nodeID ua.NodeID, status ua.StatusCode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[nodeID] = status
}

// Value is the server side value of nodeID.
func (t *Transport) Value(nodeID ua.NodeID) ua.Variant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[nodeID].Value
}

func (t *Transport) Browses() int { return int(t.browses.Load()) }
func (t *Transport) Reads() int   { return int(t.reads.Load()) }
func (t *Transport) Writes() int  { return int(t.writes.Load()) }

// Calls is the total number of requests served.
func (t *Transport) Calls() int { return t.Browses() + t.Reads() + t.Writes() }

func (t *Transport) Browse(ctx context.Context, parent ua.NodeID, browseName, namespaceURI string) (ua.NodeID, bool, error) {
	t.browses.Add(1)
	if t.BrowseHook != nil {
		t.BrowseHook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, &models.ServiceError{Op: "browse", NodeID: parent, Err: err}
	}
	if t.BrowseErr != nil {
		return nil, false, t.BrowseErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.children[childKey{parent, namespaceURI, browseName}]
	return id, ok, nil
}

func (t *Transport) ReadAttribute(ctx context.Context, nodeID ua.NodeID) (ua.DataValue, error) {
	t.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return ua.NilDataValue, &models.ServiceError{Op: "read", NodeID: nodeID, Err: err}
	}
	if t.ReadErr != nil {
		return ua.NilDataValue, t.ReadErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if status, ok := t.statuses[nodeID]; ok {
		return ua.DataValue{StatusCode: status}, nil
	}
	dv, ok := t.values[nodeID]
	if !ok {
		return ua.DataValue{StatusCode: ua.BadNodeIDUnknown}, nil
	}
	return dv, nil
}

func (t *Transport) WriteAttribute(ctx context.Context, nodeID ua.NodeID, value ua.DataValue) (ua.StatusCode, error) {
	t.writes.Add(1)
	if err := ctx.Err(); err != nil {
		return ua.BadCommunicationError, &models.ServiceError{Op: "write", NodeID: nodeID, Err: err}
	}
	if t.WriteErr != nil {
		return ua.BadCommunicationError, t.WriteErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if status, ok := t.statuses[nodeID]; ok {
		return status, nil
	}
	if _, ok := t.values[nodeID]; !ok {
		return ua.BadNodeIDUnknown, nil
	}
	now := time.Now()
	t.values[nodeID] = ua.NewDataValue(value.Value, 0, now, 0, now, 0)
	return ua.Good, nil
}
