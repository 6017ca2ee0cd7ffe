package services

import (
	"fmt"
	"sync"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// Declaration is a child declared by an object type: a property or a
// component object.
type Declaration interface {
	Key() models.AttributeKey
	Owner() *ObjectType
	IsComponent() bool
}

// valueDeclaration is a property whose raw value can be decoded without
// knowing its Go type at the call site.
type valueDeclaration interface {
	Declaration
	decode(nodeID ua.NodeID, v ua.Variant) (any, error)
}

// ObjectType describes an OPC-UA object type: its own declarations and its
// supertypes. Registering the type flattens the ancestor chain into one
// ordered declaration list.
type ObjectType struct {
	name       string
	typeID     ua.NodeID
	supertypes []*ObjectType

	mu         sync.RWMutex
	own        []Declaration
	flat       []Declaration
	index      map[models.KeyID]Declaration
	registered bool
}

func NewObjectType(name string, typeID ua.NodeID, supertypes ...*ObjectType) *ObjectType {
	return &ObjectType{
		name:       name,
		typeID:     typeID,
		supertypes: supertypes,
	}
}

func (t *ObjectType) Name() string              { return t.name }
func (t *ObjectType) TypeID() ua.NodeID         { return t.typeID }
func (t *ObjectType) Supertypes() []*ObjectType { return t.supertypes }
func (t *ObjectType) String() string            { return t.name }

func (t *ObjectType) declare(d Declaration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.registered {
		panic(fmt.Sprintf("uafacade: declaring %s on registered type %s", d.Key(), t.name))
	}
	t.own = append(t.own, d)
}

// Registered reports whether the type has been frozen by a registry.
func (t *ObjectType) Registered() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registered
}

// Declarations returns own and inherited declarations. It is only populated
// once the type is registered.
func (t *ObjectType) Declarations() []Declaration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Declaration, len(t.flat))
	copy(out, t.flat)
	return out
}

// Declaration looks up a declaration of the registered type by key identity.
func (t *ObjectType) Declaration(id models.KeyID) (Declaration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.index[id]
	return d, ok
}

// Declares reports whether d is part of the type's flattened declarations.
func (t *ObjectType) Declares(d Declaration) bool {
	found, ok := t.Declaration(d.Key().ID())
	return ok && found == d
}

// IsSubtypeOf reports whether t is other or inherits from it.
func (t *ObjectType) IsSubtypeOf(other *ObjectType) bool {
	if t == other {
		return true
	}
	for _, s := range t.supertypes {
		if s.IsSubtypeOf(other) {
			return true
		}
	}
	return false
}

func (t *ObjectType) ownDeclarations() []Declaration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Declaration, len(t.own))
	copy(out, t.own)
	return out
}

// flatten collects declarations of t and its ancestors: own first, then each
// supertype in order. The same declaration reached twice (a diamond) is kept
// once; two different declarations with one key from different ancestors are
// an error. Own declarations shadow inherited ones.
func flatten(t *ObjectType, visiting map[*ObjectType]bool) ([]Declaration, error) {
	if visiting[t] {
		return nil, errors.Wrapf(models.ErrInvalidDeclaration, "%s: inheritance cycle", t.name)
	}
	visiting[t] = true
	defer delete(visiting, t)

	var out []Declaration
	seen := make(map[models.KeyID]Declaration)
	for _, d := range t.ownDeclarations() {
		id := d.Key().ID()
		if _, dup := seen[id]; dup {
			return nil, errors.Wrapf(models.ErrDuplicateDeclaration, "%s declares %s twice", t.name, id)
		}
		if !d.IsComponent() {
			if err := d.Key().Validate(); err != nil {
				return nil, errors.Wrapf(err, "type %s", t.name)
			}
		}
		seen[id] = d
		out = append(out, d)
	}
	own := len(out)

	for _, super := range t.supertypes {
		inherited, err := flatten(super, visiting)
		if err != nil {
			return nil, err
		}
		for _, d := range inherited {
			id := d.Key().ID()
			prev, dup := seen[id]
			switch {
			case !dup:
				seen[id] = d
				out = append(out, d)
			case prev == d:
			case isOwn(out[:own], prev):
			default:
				return nil, errors.Wrapf(models.ErrDuplicateDeclaration,
					"%s inherits %s from both %s and %s", t.name, id, prev.Owner(), d.Owner())
			}
		}
	}
	return out, nil
}

func isOwn(own []Declaration, d Declaration) bool {
	for _, o := range own {
		if o == d {
			return true
		}
	}
	return false
}

// Registry holds registered object types.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*ObjectType
	byID   map[ua.NodeID]*ObjectType
}

var defaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*ObjectType),
		byID:   make(map[ua.NodeID]*ObjectType),
	}
}

// DefaultRegistry is the registry used by Register and MustRegister.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register validates and freezes t in the default registry.
func Register(t *ObjectType) error { return defaultRegistry.Register(t) }

// MustRegister is Register that panics on error, for use in init functions.
func MustRegister(t *ObjectType) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// Register validates t and its ancestors, flattens its declarations and
// freezes it. Registering the same type twice is a no-op.
func (r *Registry) Register(t *ObjectType) error {
	flat, err := flatten(t, make(map[*ObjectType]bool))
	if err != nil {
		return errors.Wrapf(err, "registering %s", t.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[t.name]; ok && existing != t {
		return errors.Wrapf(models.ErrDuplicateDeclaration, "type name %q already registered", t.name)
	}
	if t.typeID != nil {
		if existing, ok := r.byID[t.typeID]; ok && existing != t {
			return errors.Wrapf(models.ErrDuplicateDeclaration, "type id %v already registered to %s", t.typeID, existing.name)
		}
	}

	t.mu.Lock()
	if !t.registered {
		t.flat = flat
		t.index = make(map[models.KeyID]Declaration, len(flat))
		for _, d := range flat {
			t.index[d.Key().ID()] = d
		}
		t.registered = true
	}
	t.mu.Unlock()

	r.byName[t.name] = t
	if t.typeID != nil {
		r.byID[t.typeID] = t
	}
	return nil
}

func (r *Registry) Lookup(name string) (*ObjectType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) LookupTypeID(id ua.NodeID) (*ObjectType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Types returns every registered type.
func (r *Registry) Types() []*ObjectType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ObjectType, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	return out
}
