package archetype

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/helix-engine/helix/internal/core/component"
	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/observability/log"
)

// EntityAccess is the slice of world behavior the factory needs to stamp out
// entities. The world implements it.
type EntityAccess interface {
	SpawnEntity() *entity.Entity
	DespawnEntity(id entity.ID)
	AttachComponent(id entity.ID, c component.Component) error
	AcquireComponent(t component.TypeID) (component.Component, error)
}

// PostProcessor runs after an entity has been stamped from a template,
// before it is returned to the caller.
type PostProcessor func(e *entity.Entity, a *Archetype, params map[string]any) error

// FactoryStats counts factory activity.
type FactoryStats struct {
	Created uint64
	Failed  uint64
}

// Factory instantiates entities from archetypes against a world. Defaults
// are cloned so the template instances are never mutated; types without a
// default are acquired from the component pools.
type Factory struct {
	world   EntityAccess
	logger  log.Log
	mu      sync.RWMutex
	post    []PostProcessor
	created atomic.Uint64
	failed  atomic.Uint64
}

// NewFactory wires a factory to a world.
func NewFactory(world EntityAccess, logger log.Log) *Factory {
	if logger == nil {
		logger = log.Provide()
	}
	return &Factory{world: world, logger: logger}
}

// AddPostProcessor appends a hook applied to every spawned entity, in
// registration order.
func (f *Factory) AddPostProcessor(p PostProcessor) {
	f.mu.Lock()
	f.post = append(f.post, p)
	f.mu.Unlock()
}

// Spawn creates an entity from the archetype. Overrides replace resolved
// defaults per component type; params are merged over the archetype's
// resolved parameters and handed to post-processors. On any failure the
// partially built entity is despawned and the error returned.
func (f *Factory) Spawn(a *Archetype, overrides map[component.TypeID]component.Component, params map[string]any) (*entity.Entity, error) {
	e := f.world.SpawnEntity()
	e.SetArchetypeID(a.ID())

	if err := f.populate(e, a, overrides); err != nil {
		f.world.DespawnEntity(e.ID())
		f.failed.Add(1)
		return nil, err
	}

	merged := a.AllParameters()
	for k, v := range params {
		merged[k] = v
	}

	f.mu.RLock()
	post := f.post
	f.mu.RUnlock()
	for _, p := range post {
		if err := p(e, a, merged); err != nil {
			f.world.DespawnEntity(e.ID())
			f.failed.Add(1)
			return nil, fmt.Errorf("archetype %q: post-processor: %w", a.Name(), err)
		}
	}

	f.created.Add(1)
	f.logger.Debug("entity spawned from archetype",
		log.String("archetype", a.Name()),
		log.Uint64("entity", uint64(e.ID())),
	)
	return e, nil
}

// SpawnNamed resolves the archetype from the registry and spawns from it.
func (f *Factory) SpawnNamed(name string, overrides map[component.TypeID]component.Component, params map[string]any) (*entity.Entity, error) {
	a, err := Get(name)
	if err != nil {
		return nil, err
	}
	return f.Spawn(a, overrides, params)
}

// SpawnBatch spawns count entities from the archetype, stopping at the first
// failure. Already spawned entities are kept.
func (f *Factory) SpawnBatch(a *Archetype, count int) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, 0, count)
	for i := 0; i < count; i++ {
		e, err := f.Spawn(a, nil, nil)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Stats returns a snapshot of factory counters.
func (f *Factory) Stats() FactoryStats {
	return FactoryStats{Created: f.created.Load(), Failed: f.failed.Load()}
}

func (f *Factory) populate(e *entity.Entity, a *Archetype, overrides map[component.TypeID]component.Component) error {
	defaults := a.AllDefaultComponents()
	for _, t := range a.AllComponentTypes() {
		var c component.Component
		switch {
		case overrides[t] != nil:
			c = overrides[t]
		case defaults[t] != nil:
			c = defaults[t].Clone()
		default:
			acquired, err := f.world.AcquireComponent(t)
			if err != nil {
				return fmt.Errorf("archetype %q: acquire type %d: %w", a.Name(), t, err)
			}
			c = acquired
		}
		if err := f.world.AttachComponent(e.ID(), c); err != nil {
			return fmt.Errorf("archetype %q: attach type %d: %w", a.Name(), t, err)
		}
	}
	return nil
}
