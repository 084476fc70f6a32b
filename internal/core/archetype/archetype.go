package archetype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/helix-engine/helix/internal/core/component"
	"github.com/helix-engine/helix/pkg/sequence"
)

// Builder and registry errors
var (
	// ErrEmptyName is returned when Build is called without a name.
	ErrEmptyName = errors.New("archetype: name must not be empty")
	// ErrParentNotInheritable is returned when the declared parent forbids inheritance.
	ErrParentNotInheritable = errors.New("archetype: parent is not inheritable")
	// ErrNotFound signals a registry lookup for an unknown archetype name.
	ErrNotFound = errors.New("archetype: not found")
)

var idGenerator atomic.Uint64

var registry = struct {
	mu     sync.RWMutex
	byName map[string]*Archetype
}{byName: make(map[string]*Archetype)}

// Archetype is an immutable named template: a component-type set, default
// component instances, named parameters, and an optional single parent whose
// resolved view is unioned with the child's (child wins on conflict).
// Evolving a template means building a new one with the old as parent.
type Archetype struct {
	id          uint64
	name        string
	description string
	parent      *Archetype
	types       map[component.TypeID]struct{}
	defaults    map[component.TypeID]component.Component
	parameters  map[string]any
	mask        component.Mask
	createdAt   time.Time
	inheritable bool
}

// ID returns the process-unique archetype id.
func (a *Archetype) ID() uint64 { return a.id }

// Name returns the template name.
func (a *Archetype) Name() string { return a.name }

// Description returns the free-form description.
func (a *Archetype) Description() string { return a.description }

// Parent returns the parent template, or nil.
func (a *Archetype) Parent() *Archetype { return a.parent }

// Inheritable reports whether the template may be used as a parent.
func (a *Archetype) Inheritable() bool { return a.inheritable }

// CreatedAt returns the build timestamp.
func (a *Archetype) CreatedAt() time.Time { return a.createdAt }

// Mask returns the component bitmask derived from the resolved type set.
func (a *Archetype) Mask() component.Mask { return a.mask }

// AllComponentTypes resolves the full inherited type set, sorted by id.
func (a *Archetype) AllComponentTypes() []component.TypeID {
	set := make(map[component.TypeID]struct{})
	for node := a; node != nil; node = node.parent {
		for t := range node.types {
			set[t] = struct{}{}
		}
	}
	out := make([]component.TypeID, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllDefaultComponents resolves the full inherited default map; the child
// overrides the parent on conflicting types.
func (a *Archetype) AllDefaultComponents() map[component.TypeID]component.Component {
	out := make(map[component.TypeID]component.Component)
	a.collectDefaults(out)
	return out
}

func (a *Archetype) collectDefaults(out map[component.TypeID]component.Component) {
	if a.parent != nil {
		a.parent.collectDefaults(out)
	}
	for t, c := range a.defaults {
		out[t] = c
	}
}

// AllParameters resolves the full inherited parameter map, child wins.
func (a *Archetype) AllParameters() map[string]any {
	out := make(map[string]any)
	a.collectParameters(out)
	return out
}

func (a *Archetype) collectParameters(out map[string]any) {
	if a.parent != nil {
		a.parent.collectParameters(out)
	}
	for k, v := range a.parameters {
		out[k] = v
	}
}

// HasComponent reports whether the resolved type set contains t.
func (a *Archetype) HasComponent(t component.TypeID) bool {
	for node := a; node != nil; node = node.parent {
		if _, ok := node.types[t]; ok {
			return true
		}
	}
	return false
}

// DefaultComponent returns the resolved default instance for t, or nil.
func (a *Archetype) DefaultComponent(t component.TypeID) component.Component {
	for node := a; node != nil; node = node.parent {
		if c, ok := node.defaults[t]; ok {
			return c
		}
	}
	return nil
}

// Parameter returns the resolved parameter value, or fallback when unset.
func (a *Archetype) Parameter(key string, fallback any) any {
	for node := a; node != nil; node = node.parent {
		if v, ok := node.parameters[key]; ok {
			return v
		}
	}
	return fallback
}

// IsCompatibleWith reports whether the two resolved type sets intersect.
// Used for coarse filtering before exact checks.
func (a *Archetype) IsCompatibleWith(other *Archetype) bool {
	if other == nil {
		return false
	}
	return a.mask.Intersects(other.mask)
}

// String renders the archetype for debugging.
func (a *Archetype) String() string {
	parent := ""
	if a.parent != nil {
		parent = " parent=" + a.parent.name
	}
	return fmt.Sprintf("Archetype(%s id=%d types=%d%s)", a.name, a.id, len(a.AllComponentTypes()), parent)
}

// Register makes the archetype discoverable by name, replacing any previous
// registration under the same name.
func Register(a *Archetype) {
	registry.mu.Lock()
	registry.byName[a.name] = a
	registry.mu.Unlock()
}

// Get resolves a registered archetype by name.
func Get(name string) (*Archetype, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	a, ok := registry.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// All returns every registered archetype, sorted by name.
func All() []*Archetype {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return sequence.FromMap(registry.byName).
		Sort(func(a, b *Archetype) bool { return a.name < b.name }).
		Collect()
}

// ClearRegistry drops every registration. Intended for tests.
func ClearRegistry() {
	registry.mu.Lock()
	registry.byName = make(map[string]*Archetype)
	registry.mu.Unlock()
}

// Builder accumulates the pieces of an archetype. Archetypes are immutable
// once built.
type Builder struct {
	name        string
	description string
	parent      *Archetype
	parentName  string
	types       map[component.TypeID]struct{}
	defaults    map[component.TypeID]component.Component
	parameters  map[string]any
	inheritable bool
}

// NewBuilder starts a builder for the named template.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:        name,
		types:       make(map[component.TypeID]struct{}),
		defaults:    make(map[component.TypeID]component.Component),
		parameters:  make(map[string]any),
		inheritable: true,
	}
}

// Description sets the free-form description.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// Parent declares the parent template by reference.
func (b *Builder) Parent(parent *Archetype) *Builder {
	b.parent = parent
	b.parentName = ""
	return b
}

// ParentNamed declares the parent template by registry name, resolved at
// Build time.
func (b *Builder) ParentNamed(name string) *Builder {
	b.parent = nil
	b.parentName = name
	return b
}

// Component adds a required component type.
func (b *Builder) Component(t component.TypeID) *Builder {
	b.types[t] = struct{}{}
	return b
}

// Components adds several required component types.
func (b *Builder) Components(ts ...component.TypeID) *Builder {
	for _, t := range ts {
		b.types[t] = struct{}{}
	}
	return b
}

// DefaultComponent adds a component type together with its default instance.
func (b *Builder) DefaultComponent(c component.Component) *Builder {
	b.types[c.TypeID()] = struct{}{}
	b.defaults[c.TypeID()] = c
	return b
}

// Parameter adds a named parameter.
func (b *Builder) Parameter(key string, value any) *Builder {
	b.parameters[key] = value
	return b
}

// Inheritable controls whether the template may be used as a parent.
func (b *Builder) Inheritable(inheritable bool) *Builder {
	b.inheritable = inheritable
	return b
}

// Build validates the configuration and produces the immutable archetype.
func (b *Builder) Build() (*Archetype, error) {
	if b.name == "" {
		return nil, ErrEmptyName
	}
	parent := b.parent
	if parent == nil && b.parentName != "" {
		resolved, err := Get(b.parentName)
		if err != nil {
			return nil, fmt.Errorf("archetype %q: %w", b.name, err)
		}
		parent = resolved
	}
	if parent != nil && !parent.inheritable {
		return nil, fmt.Errorf("%w: %q", ErrParentNotInheritable, parent.name)
	}

	a := &Archetype{
		id:          idGenerator.Add(1),
		name:        b.name,
		description: b.description,
		parent:      parent,
		types:       make(map[component.TypeID]struct{}, len(b.types)),
		defaults:    make(map[component.TypeID]component.Component, len(b.defaults)),
		parameters:  make(map[string]any, len(b.parameters)),
		createdAt:   time.Now(),
		inheritable: b.inheritable,
	}
	for t := range b.types {
		a.types[t] = struct{}{}
	}
	for t, c := range b.defaults {
		a.defaults[t] = c
	}
	for k, v := range b.parameters {
		a.parameters[k] = v
	}
	a.mask = component.MaskOf(a.AllComponentTypes()...)
	return a, nil
}

// BuildAndRegister builds the archetype and registers it by name.
func (b *Builder) BuildAndRegister() (*Archetype, error) {
	a, err := b.Build()
	if err != nil {
		return nil, err
	}
	Register(a)
	return a, nil
}
