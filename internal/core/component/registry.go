package component

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Factory produces a pristine, unattached instance of a component type. The
// storage pool uses it when no recycled instance is available.
type Factory func() Component

// registry assigns TypeIDs from an atomic counter and keeps name→id and
// id→factory mappings so ids stay discoverable without reflection.
type registry struct {
	mu        sync.RWMutex
	counter   atomic.Uint32
	byName    map[string]TypeID
	names     map[TypeID]string
	factories map[TypeID]Factory
}

var types = &registry{
	byName:    make(map[string]TypeID),
	names:     make(map[TypeID]string),
	factories: make(map[TypeID]Factory),
}

// RegisterType assigns a process-wide TypeID to the named component type.
// Registration is idempotent per name: a second call with the same name
// returns the original id and keeps the original factory. Typical usage is a
// package-level variable:
//
//	var healthType = component.RegisterType("health", func() component.Component { return &Health{} })
func RegisterType(name string, factory Factory) TypeID {
	if name == "" {
		panic("component: empty type name")
	}
	if factory == nil {
		panic(fmt.Sprintf("component: nil factory for type %q", name))
	}
	types.mu.Lock()
	defer types.mu.Unlock()
	if id, ok := types.byName[name]; ok {
		return id
	}
	id := TypeID(types.counter.Add(1))
	types.byName[name] = id
	types.names[id] = name
	types.factories[id] = factory
	return id
}

// TypeIDByName resolves a registered type name to its id.
func TypeIDByName(name string) (TypeID, bool) {
	types.mu.RLock()
	defer types.mu.RUnlock()
	id, ok := types.byName[name]
	return id, ok
}

// TypeName resolves an id back to its registered name.
func TypeName(id TypeID) string {
	types.mu.RLock()
	defer types.mu.RUnlock()
	return types.names[id]
}

// NewInstance builds a pristine instance of the given type via its factory.
func NewInstance(id TypeID) (Component, error) {
	types.mu.RLock()
	factory, ok := types.factories[id]
	types.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: type id %d", ErrTypeNotRegistered, id)
	}
	c := factory()
	c.Reset()
	return c, nil
}

// RegisteredTypes returns all registered ids in ascending order.
func RegisteredTypes() []TypeID {
	types.mu.RLock()
	defer types.mu.RUnlock()
	out := make([]TypeID, 0, len(types.names))
	for id := range types.names {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
