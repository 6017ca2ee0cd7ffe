package services

import (
	"context"
	"reflect"

	"github.com/amine-amaach/uafacade/services/models"
)

var objectType = reflect.TypeOf((*Object)(nil))

// Component declares a child object of an object type, such as a state or
// transition of a state machine, exposed as a facade F built by wrap.
type Component[F any] struct {
	owner   *ObjectType
	key     models.AttributeKey
	typeDef *ObjectType
	wrap    func(*Object) F
}

func NewComponent[F any](owner *ObjectType, browseName string, typeDef *ObjectType, wrap func(*Object) F) *Component[F] {
	c := &Component[F]{
		owner:   owner,
		key:     models.NewAttributeKey(models.NamespaceUA, browseName, nil, models.ValueRankScalar, objectType),
		typeDef: typeDef,
		wrap:    wrap,
	}
	owner.declare(c)
	return c
}

func (c *Component[F]) Key() models.AttributeKey { return c.key }
func (c *Component[F]) Owner() *ObjectType        { return c.owner }
func (c *Component[F]) IsComponent() bool         { return true }
func (c *Component[F]) TypeDefinition() *ObjectType {
	return c.typeDef
}

func (c *Component[F]) Bind(obj *Object) ComponentAccessor[F] {
	return ComponentAccessor[F]{comp: c, obj: obj}
}

// ComponentAccessor is a component bound to one object instance. The child
// facade is created on first resolution and reused afterwards; an absent
// child yields the zero F.
type ComponentAccessor[F any] struct {
	comp *Component[F]
	obj  *Object
}

func (a ComponentAccessor[F]) GetNode(ctx context.Context) (F, error) {
	return a.GetNodeAsync(ctx).Await(ctx)
}

func (a ComponentAccessor[F]) GetNodeAsync(ctx context.Context) *Future[F] {
	var zero F
	if !a.obj.typ.Declares(a.comp) {
		return Completed(zero, a.obj.notDeclared("getNode", a.comp.key))
	}
	if child, ok := a.obj.cachedChild(a.comp.key); ok {
		return Completed(a.comp.wrap(child), nil)
	}
	return Go(ctx, a.obj.session.dispatcher, func(ctx context.Context) (F, error) {
		id, found, err := a.obj.handles.Resolve(ctx, a.comp.key)
		if err != nil || !found {
			return zero, err
		}
		return a.comp.wrap(a.obj.child(a.comp.key, id, a.comp.typeDef)), nil
	})
}

// Lookup returns the child facade if it was already resolved.
func (a ComponentAccessor[F]) Lookup() (F, bool) {
	child, ok := a.obj.cachedChild(a.comp.key)
	if !ok {
		var zero F
		return zero, false
	}
	return a.comp.wrap(child), true
}
