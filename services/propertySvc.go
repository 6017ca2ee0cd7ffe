package services

import (
	"context"
	"reflect"
	"time"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// Property declares one typed child property of an object type. It is built
// once per (type, property) pair and bound to object instances on use.
type Property[T any] struct {
	owner *ObjectType
	key   models.AttributeKey
}

// NewProperty declares a property of owner in the standard UA namespace.
func NewProperty[T any](owner *ObjectType, browseName string, dataType ua.NodeID, rank models.ValueRank) *Property[T] {
	return NewPropertyNS[T](owner, models.NamespaceUA, browseName, dataType, rank)
}

// NewPropertyNS declares a property whose browse name lives in namespaceURI.
func NewPropertyNS[T any](owner *ObjectType, namespaceURI, browseName string, dataType ua.NodeID, rank models.ValueRank) *Property[T] {
	p := &Property[T]{
		owner: owner,
		key:   models.NewAttributeKey(namespaceURI, browseName, dataType, rank, reflect.TypeOf((*T)(nil)).Elem()),
	}
	owner.declare(p)
	return p
}

func (p *Property[T]) Key() models.AttributeKey { return p.key }
func (p *Property[T]) Owner() *ObjectType        { return p.owner }
func (p *Property[T]) IsComponent() bool         { return false }

func (p *Property[T]) decode(nodeID ua.NodeID, v ua.Variant) (any, error) {
	return decodeVariant[T](nodeID, v)
}

// Bind returns the accessor of this property on obj.
func (p *Property[T]) Bind(obj *Object) Accessor[T] {
	return Accessor[T]{prop: p, obj: obj}
}

// PropertyNode is a resolved child node of an object.
type PropertyNode struct {
	Parent ua.NodeID
	NodeID ua.NodeID
	Key    models.AttributeKey
}

// Accessor is a property bound to one object instance.
//
// Get and Set only touch the object's local value cache. Read, Write and
// GetNode talk to the server; their Async forms return a Future instead of
// blocking. The cache is only updated after the server confirmed a value.
type Accessor[T any] struct {
	prop *Property[T]
	obj  *Object
}

func (a Accessor[T]) Key() models.AttributeKey { return a.prop.key }

func (a Accessor[T]) declared() bool {
	return a.obj.typ.Declares(a.prop)
}

// Get returns the cached value; ok is false if none was observed yet.
func (a Accessor[T]) Get() (value T, ok bool) {
	cv, found := a.obj.values.Get(a.prop.key.ID())
	if !found {
		return value, false
	}
	// a null NodeID or Variant is a value too
	if cv.Value == nil {
		return value, true
	}
	value, ok = cv.Value.(T)
	return value, ok
}

// Timestamp returns the source timestamp of the cached value.
func (a Accessor[T]) Timestamp() (time.Time, bool) {
	cv, found := a.obj.values.Get(a.prop.key.ID())
	if !found {
		return time.Time{}, false
	}
	return cv.SourceTimestamp, true
}

// Set overwrites the cached value without contacting the server.
func (a Accessor[T]) Set(value T) {
	a.obj.values.Set(a.prop.key.ID(), CachedValue{Value: value, SourceTimestamp: time.Now()})
}

func (a Accessor[T]) Read(ctx context.Context) (T, error) {
	return a.ReadAsync(ctx).Await(ctx)
}

func (a Accessor[T]) Write(ctx context.Context, value T) error {
	_, err := a.WriteAsync(ctx, value).Await(ctx)
	return err
}

func (a Accessor[T]) GetNode(ctx context.Context) (*PropertyNode, error) {
	return a.GetNodeAsync(ctx).Await(ctx)
}

func (a Accessor[T]) ReadAsync(ctx context.Context) *Future[T] {
	if !a.declared() {
		var zero T
		return Completed(zero, a.notDeclared("read"))
	}
	return Go(ctx, a.obj.session.dispatcher, func(ctx context.Context) (T, error) {
		var zero T
		nodeID, err := a.resolve(ctx)
		if err != nil {
			return zero, err
		}
		dv, err := a.obj.session.transport.ReadAttribute(ctx, nodeID)
		if err != nil {
			return zero, a.fail("read", nodeID, models.AsServiceError("read", nodeID, err))
		}
		if dv.StatusCode.IsBad() {
			return zero, a.fail("read", nodeID, &models.OperationError{Op: "read", NodeID: nodeID, StatusCode: dv.StatusCode})
		}
		value, err := decodeVariant[T](nodeID, dv.Value)
		if err != nil {
			return zero, a.fail("read", nodeID, err)
		}
		a.obj.values.Set(a.prop.key.ID(), CachedValue{
			Value:           value,
			SourceTimestamp: dv.SourceTimestamp,
			ServerTimestamp: dv.ServerTimestamp,
		})
		return value, nil
	})
}

func (a Accessor[T]) WriteAsync(ctx context.Context, value T) *Future[ua.StatusCode] {
	if !a.declared() {
		return Completed(ua.BadNodeIDUnknown, a.notDeclared("write"))
	}
	return Go(ctx, a.obj.session.dispatcher, func(ctx context.Context) (ua.StatusCode, error) {
		nodeID, err := a.resolve(ctx)
		if err != nil {
			return ua.BadNoMatch, err
		}
		status, err := a.obj.session.transport.WriteAttribute(ctx, nodeID, ua.NewDataValue(value, 0, time.Time{}, 0, time.Time{}, 0))
		if err != nil {
			return status, a.fail("write", nodeID, models.AsServiceError("write", nodeID, err))
		}
		if status.IsBad() {
			return status, a.fail("write", nodeID, &models.OperationError{Op: "write", NodeID: nodeID, StatusCode: status})
		}
		a.obj.values.Set(a.prop.key.ID(), CachedValue{Value: value, SourceTimestamp: time.Now()})
		return status, nil
	})
}

func (a Accessor[T]) GetNodeAsync(ctx context.Context) *Future[*PropertyNode] {
	if !a.declared() {
		return Completed[*PropertyNode](nil, a.notDeclared("getNode"))
	}
	if id, ok := a.obj.handles.Lookup(a.prop.key); ok {
		return Completed(&PropertyNode{Parent: a.obj.nodeID, NodeID: id, Key: a.prop.key}, nil)
	}
	return Go(ctx, a.obj.session.dispatcher, func(ctx context.Context) (*PropertyNode, error) {
		id, found, err := a.obj.handles.Resolve(ctx, a.prop.key)
		if err != nil || !found {
			return nil, err
		}
		return &PropertyNode{Parent: a.obj.nodeID, NodeID: id, Key: a.prop.key}, nil
	})
}

func (a Accessor[T]) resolve(ctx context.Context) (ua.NodeID, error) {
	id, found, err := a.obj.handles.Resolve(ctx, a.prop.key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(models.ErrNotFound, "%v/%s", a.obj.nodeID, a.prop.key)
	}
	return id, nil
}

func (a Accessor[T]) fail(op string, nodeID ua.NodeID, err error) error {
	return a.obj.fail(op, a.prop.key, nodeID, err)
}

func (a Accessor[T]) notDeclared(op string) error {
	return a.obj.notDeclared(op, a.prop.key)
}
