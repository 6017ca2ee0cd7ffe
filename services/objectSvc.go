package services

import (
	"context"
	"sync"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Object is a facade instance: one node of the server's address space seen
// through its object type. It owns the node handle cache and the local value
// cache of its properties.
type Object struct {
	nodeID  ua.NodeID
	typ     *ObjectType
	session *Session
	handles *NodeCache
	values  *ValueCache

	mu       sync.Mutex
	children map[models.KeyID]*Object
}

func newObject(s *Session, nodeID ua.NodeID, t *ObjectType) *Object {
	return &Object{
		nodeID:   nodeID,
		typ:      t,
		session:  s,
		handles:  NewNodeCache(nodeID, s.transport, s.handleTTL, s.log, WithResolveTimeout(s.timeout)),
		values:   NewValueCache(),
		children: make(map[models.KeyID]*Object),
	}
}

func (o *Object) NodeID() ua.NodeID   { return o.nodeID }
func (o *Object) Type() *ObjectType   { return o.typ }
func (o *Object) Session() *Session   { return o.session }
func (o *Object) Handles() *NodeCache { return o.handles }
func (o *Object) Values() *ValueCache { return o.values }

func (o *Object) Declarations() []Declaration {
	return o.typ.Declarations()
}

func (o *Object) cachedChild(key models.AttributeKey) (*Object, bool) {
	if _, ok := o.handles.Lookup(key); !ok {
		// handle expired or never resolved
		o.mu.Lock()
		delete(o.children, key.ID())
		o.mu.Unlock()
		return nil, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	child, ok := o.children[key.ID()]
	return child, ok
}

func (o *Object) child(key models.AttributeKey, nodeID ua.NodeID, t *ObjectType) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.children[key.ID()]; ok && c.nodeID == nodeID {
		return c
	}
	c := newObject(o.session, nodeID, t)
	o.children[key.ID()] = c
	return c
}

// fail logs a failed operation on the child named by key and returns err.
func (o *Object) fail(op string, key models.AttributeKey, nodeID ua.NodeID, err error) error {
	o.session.log.WithFields(logrus.Fields{
		"Object":   o.nodeID,
		"Property": key.String(),
		"Node Id":  nodeID,
		"Err":      err,
	}).Warnf("Couldn't %s property ⛔", op)
	return err
}

func (o *Object) notDeclared(op string, key models.AttributeKey) error {
	return o.fail(op, key, nil, errors.Wrapf(models.ErrNotDeclared, "%s on %s", key, o.typ))
}

// ReadValue reads a declared property by browse name without a typed
// accessor, e.g. for generic tooling. The value is cached like a typed read.
func (o *Object) ReadValue(ctx context.Context, browseName string) (any, error) {
	return o.ReadValueAsync(ctx, browseName).Await(ctx)
}

func (o *Object) ReadValueAsync(ctx context.Context, browseName string) *Future[any] {
	d, ok := o.typ.Declaration(models.KeyID{NamespaceURI: models.NamespaceUA, BrowseName: browseName})
	if !ok {
		return Completed[any](nil, errors.Wrapf(models.ErrNotDeclared, "%s.%s", o.typ, browseName))
	}
	vd, ok := d.(valueDeclaration)
	if !ok {
		return Completed[any](nil, errors.Wrapf(models.ErrNotDeclared, "%s.%s is not a property", o.typ, browseName))
	}
	return Go(ctx, o.session.dispatcher, func(ctx context.Context) (any, error) {
		nodeID, found, err := o.handles.Resolve(ctx, vd.Key())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.Wrapf(models.ErrNotFound, "%v/%s", o.nodeID, vd.Key())
		}
		dv, err := o.session.transport.ReadAttribute(ctx, nodeID)
		if err != nil {
			return nil, models.AsServiceError("read", nodeID, err)
		}
		if dv.StatusCode.IsBad() {
			return nil, &models.OperationError{Op: "read", NodeID: nodeID, StatusCode: dv.StatusCode}
		}
		value, err := vd.decode(nodeID, dv.Value)
		if err != nil {
			return nil, err
		}
		o.values.Set(vd.Key().ID(), CachedValue{
			Value:           value,
			SourceTimestamp: dv.SourceTimestamp,
			ServerTimestamp: dv.ServerTimestamp,
		})
		return value, nil
	})
}

// ReadAll reads every declared property concurrently. Properties whose child
// node does not exist are left out of the result; the first other failure is
// returned alongside whatever was read.
func (o *Object) ReadAll(ctx context.Context) (map[string]any, error) {
	type pending struct {
		name   string
		future *Future[any]
	}
	var futures []pending
	for _, d := range o.typ.Declarations() {
		if d.IsComponent() || d.Key().NamespaceURI() != models.NamespaceUA {
			continue
		}
		futures = append(futures, pending{name: d.Key().BrowseName(), future: o.ReadValueAsync(ctx, d.Key().BrowseName())})
	}

	out := make(map[string]any, len(futures))
	var firstErr error
	for _, p := range futures {
		v, err := p.future.Await(ctx)
		switch {
		case err == nil:
			out[p.name] = v
		case errors.Is(err, models.ErrNotFound):
		default:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	o.session.log.WithFields(logrus.Fields{
		"Object":     o.nodeID,
		"Type":       o.typ.Name(),
		"Properties": len(out),
	}).Debugln("Object properties read 🔔")
	return out, firstErr
}
