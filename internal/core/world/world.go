package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/helix-engine/helix/internal/core/archetype"
	"github.com/helix-engine/helix/internal/core/component"
	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/events/bus"
	"github.com/helix-engine/helix/internal/core/memory"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/internal/core/query"
	"github.com/helix-engine/helix/internal/core/system"
)

var (
	// ErrEntityNotFound signals an operation against a stale or unknown
	// entity id.
	ErrEntityNotFound = errors.New("world: entity not found")
	// ErrNotInitialized signals Update before Initialize.
	ErrNotInitialized = errors.New("world: not initialized")
	// ErrDestroyed signals use after Destroy.
	ErrDestroyed = errors.New("world: destroyed")
)

// World is the coordination layer of the simulation: it owns the entity
// table, delegates component operations to storage, drives the registered
// systems once per Update, and drains the event bus at the end of every
// tick.
//
// One goroutine drives Update. The entity table and component maps are
// guarded so read-mostly inspection from other goroutines is safe, but
// multi-writer structural mutation needs external coordination.
type World struct {
	cfg    Config
	logger log.Log

	mu       sync.RWMutex
	entities map[entity.ID]*entity.Entity
	pending  map[entity.ID]struct{}

	storage *component.Storage
	layout  *memory.Layout
	manager *system.Manager
	cache   *query.Cache
	events  bus.EventBus
	factory *archetype.Factory

	stats       Statistics
	initialized bool
	destroyed   bool
	paused      bool
}

// New builds a world from the configuration. Call Initialize before the
// first Update.
func New(cfg Config, logger log.Log) *World {
	cfg = cfg.normalized()
	if logger == nil {
		logger = log.Provide()
	}
	logger = logger.With(log.String("world", cfg.Name))

	layout := memory.NewLayout(cfg.Memory, logger)
	w := &World{
		cfg:      cfg,
		logger:   logger,
		entities: make(map[entity.ID]*entity.Entity, cfg.InitialEntityCapacity),
		pending:  make(map[entity.ID]struct{}),
		storage:  component.NewStorage(cfg.ComponentPoolSize, layout, logger),
		layout:   layout,
		manager:  system.NewManager(logger),
		cache:    query.NewCache(),
		events:   bus.New(),
	}
	w.factory = archetype.NewFactory(w, logger)
	return w
}

// Initialize brings every registered system up in execution order. Systems
// registered later are initialized at registration time.
func (w *World) Initialize(ctx context.Context) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	if w.initialized {
		w.mu.Unlock()
		return nil
	}
	w.initialized = true
	w.mu.Unlock()

	if err := w.manager.InitializeAll(ctx, w); err != nil {
		return err
	}
	w.logger.Info("world initialized",
		log.Int("entity_capacity", w.cfg.InitialEntityCapacity))
	return nil
}

// Update drives one tick: reap entities marked for removal, run every
// enabled system in dependency order, then drain the queued events. System
// and handler errors are joined and returned, never swallowed.
func (w *World) Update(dt float64) error {
	w.mu.RLock()
	if !w.initialized {
		w.mu.RUnlock()
		return ErrNotInitialized
	}
	if w.destroyed {
		w.mu.RUnlock()
		return ErrDestroyed
	}
	w.mu.RUnlock()

	w.reapPending()

	var all error
	if err := w.manager.Update(dt, w); err != nil {
		all = errors.Join(all, err)
	}
	if _, err := w.events.Drain(); err != nil {
		all = errors.Join(all, fmt.Errorf("event drain: %w", err))
	}
	w.stats.Ticks.Add(1)
	return all
}

// Destroy tears the world down: systems destroyed, entities released, queued
// events dropped. The world is unusable afterwards.
func (w *World) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true
	w.mu.Unlock()

	err := w.manager.DestroyAll()
	w.ClearAllEntities()
	w.events.Clear()
	w.layout.Cleanup()
	w.logger.Info("world destroyed")
	return err
}

// Pause suspends every running system; Update keeps reaping and draining.
func (w *World) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
	w.manager.PauseAll()
}

// Resume continues every paused system.
func (w *World) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
	w.manager.ResumeAll()
}

// IsPaused reports whether Pause is in effect.
func (w *World) IsPaused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}

// CreateEntity registers a new active entity. It never fails; ids are
// inexhaustible for practical runtimes.
func (w *World) CreateEntity() *entity.Entity {
	return w.SpawnEntity()
}

// CreateEntityFromArchetype stamps an entity from a registered archetype,
// applying the template's inherited defaults.
func (w *World) CreateEntityFromArchetype(name string) (*entity.Entity, error) {
	return w.factory.SpawnNamed(name, nil, nil)
}

// Factory exposes the archetype factory for overrides, parameters, and
// post-processors.
func (w *World) Factory() *archetype.Factory { return w.factory }

// DestroyEntity marks the entity for removal at the start of the next tick.
// Idempotent; unknown ids are a no-op. Deferral keeps in-flight system
// iteration valid for the rest of the current tick.
func (w *World) DestroyEntity(id entity.ID) {
	w.mu.Lock()
	e, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	if _, already := w.pending[id]; already {
		w.mu.Unlock()
		return
	}
	w.pending[id] = struct{}{}
	w.mu.Unlock()

	e.MarkForRemoval()
	w.cache.Invalidate()
}

// DestroyEntityImmediate reclaims the entity synchronously: components
// released, id retired. Only safe when no system is mid-iteration over the
// entity.
func (w *World) DestroyEntityImmediate(id entity.ID) {
	w.mu.Lock()
	e, ok := w.entities[id]
	if ok {
		delete(w.entities, id)
		delete(w.pending, id)
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	w.reclaim(e)
}

// DespawnEntity removes a partially built entity. The archetype factory
// uses it to roll back a failed spawn.
func (w *World) DespawnEntity(id entity.ID) {
	w.DestroyEntityImmediate(id)
}

// SpawnEntity creates and registers a new active entity.
func (w *World) SpawnEntity() *entity.Entity {
	e := entity.New()
	e.Activate()
	w.mu.Lock()
	w.entities[e.ID()] = e
	w.mu.Unlock()

	w.stats.EntitiesCreated.Add(1)
	w.cache.Invalidate()
	w.events.Publish(bus.NewEvent(bus.TypeEntityCreated, w.cfg.Name, e.ID(), 0, nil))
	return e
}

// Entity resolves a live entity by id.
func (w *World) Entity(id entity.ID) (*entity.Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

// HasEntity reports whether the id refers to a live entity.
func (w *World) HasEntity(id entity.ID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entities[id]
	return ok
}

// EntityCount returns the number of live entities, including those marked
// for removal but not yet reaped.
func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// AllEntities returns a snapshot of every live entity.
func (w *World) AllEntities() []*entity.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*entity.Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	return out
}

// ClearAllEntities releases every entity and its components immediately.
func (w *World) ClearAllEntities() {
	w.mu.Lock()
	entities := w.entities
	w.entities = make(map[entity.ID]*entity.Entity, w.cfg.InitialEntityCapacity)
	w.pending = make(map[entity.ID]struct{})
	w.mu.Unlock()

	for _, e := range entities {
		w.reclaim(e)
	}
}

// AddComponent attaches the component to the entity and returns the stored
// instance. The entity's version is bumped and the query cache invalidated.
func (w *World) AddComponent(id entity.ID, c component.Component) (component.Component, error) {
	w.mu.RLock()
	e, ok := w.entities[id]
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrEntityNotFound, id)
	}

	stored, err := w.storage.Attach(id, c)
	if err != nil {
		w.cache.Invalidate()
		return nil, err
	}
	e.BumpVersion()
	w.stats.ComponentsAttached.Add(1)
	w.cache.Invalidate()
	w.events.Publish(bus.NewEvent(bus.TypeComponentAdded, w.cfg.Name, id, 0,
		map[string]any{"type": component.TypeName(stored.TypeID())}))
	return stored, nil
}

// AttachComponent is AddComponent without the stored-instance return. The
// archetype factory uses it while stamping entities.
func (w *World) AttachComponent(id entity.ID, c component.Component) error {
	_, err := w.AddComponent(id, c)
	return err
}

// AcquireComponent produces a pristine instance of the type, recycled from
// the component pools when possible.
func (w *World) AcquireComponent(t component.TypeID) (component.Component, error) {
	return w.storage.Acquire(t)
}

// GetComponent returns the component of the given type attached to the
// entity.
func (w *World) GetComponent(id entity.ID, t component.TypeID) (component.Component, bool) {
	return w.storage.Get(id, t)
}

// Component implements the system view of GetComponent.
func (w *World) Component(id entity.ID, t component.TypeID) (component.Component, bool) {
	return w.storage.Get(id, t)
}

// HasComponent reports whether the entity owns a component of the type.
func (w *World) HasComponent(id entity.ID, t component.TypeID) bool {
	return w.storage.Has(id, t)
}

// RemoveComponent detaches the component and returns a copy of its final
// state, or nil when nothing was attached. The stored instance is recycled.
func (w *World) RemoveComponent(id entity.ID, t component.TypeID) component.Component {
	removed := w.storage.Detach(id, t)
	if removed == nil {
		return nil
	}
	w.mu.RLock()
	e, ok := w.entities[id]
	w.mu.RUnlock()
	if ok {
		e.BumpVersion()
	}
	w.stats.ComponentsDetached.Add(1)
	w.cache.Invalidate()
	w.events.Publish(bus.NewEvent(bus.TypeComponentRemoved, w.cfg.Name, id, 0,
		map[string]any{"type": component.TypeName(t)}))
	return removed
}

// AllComponents returns every component attached to the entity.
func (w *World) AllComponents(id entity.ID) []component.Component {
	return w.storage.All(id)
}

// RegisterSystem adds a system to the manager, initializing it right away
// when the world is already initialized.
func (w *World) RegisterSystem(ctx context.Context, s system.System) error {
	if err := w.manager.Register(s); err != nil {
		return err
	}
	w.mu.RLock()
	initialized := w.initialized
	w.mu.RUnlock()
	if initialized {
		if err := s.Initialize(ctx, w); err != nil {
			_ = w.manager.Remove(s.Name())
			return fmt.Errorf("initialize system %q: %w", s.Name(), err)
		}
	}
	w.events.Publish(bus.NewEvent(bus.TypeSystemRegistered, w.cfg.Name, s.Name(), 0, nil))
	return nil
}

// RemoveSystem destroys and unregisters the named system.
func (w *World) RemoveSystem(name string) error {
	if err := w.manager.Remove(name); err != nil {
		return err
	}
	w.events.Publish(bus.NewEvent(bus.TypeSystemRemoved, w.cfg.Name, name, 0, nil))
	return nil
}

// System resolves a registered system by name.
func (w *World) System(name string) (system.System, bool) {
	return w.manager.System(name)
}

// Manager exposes the system manager for ordering inspection.
func (w *World) Manager() *system.Manager { return w.manager }

// Query starts an entity filter routed through the world's result cache.
func (w *World) Query() *query.Builder {
	return query.NewBuilder(w).Cached(w.cache)
}

// QueryEntities is shorthand for a component-set query.
func (w *World) QueryEntities(types ...component.TypeID) []*entity.Entity {
	return w.Query().With(types...).Execute()
}

// ActiveEntities implements the query source over the live entity table.
func (w *World) ActiveEntities() []*entity.Entity {
	return w.AllEntities()
}

// ComponentMask implements the query source mask lookup.
func (w *World) ComponentMask(id entity.ID) component.Mask {
	return w.storage.MaskOf(id)
}

// Publish enqueues an event for the end-of-tick drain.
func (w *World) Publish(event bus.Event) {
	w.events.Publish(event)
}

// EventBus exposes the bus for subscriptions and observers.
func (w *World) EventBus() bus.EventBus { return w.events }

// MemoryStats exposes the chunk allocator counters.
func (w *World) MemoryStats() *memory.Statistics { return w.layout.Stats() }

// CacheStats exposes the query cache counters.
func (w *World) CacheStats() query.CacheStats { return w.cache.Stats() }

// Stats returns a snapshot of world-level counters.
func (w *World) Stats() StatisticsSnapshot {
	w.mu.RLock()
	live := len(w.entities)
	pending := len(w.pending)
	w.mu.RUnlock()
	return w.stats.snapshot(live, pending)
}

// reapPending physically reclaims entities marked for removal. Runs at the
// top of the tick, before any system.
func (w *World) reapPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	reaped := make([]*entity.Entity, 0, len(w.pending))
	for id := range w.pending {
		if e, ok := w.entities[id]; ok {
			reaped = append(reaped, e)
			delete(w.entities, id)
		}
	}
	w.pending = make(map[entity.ID]struct{})
	w.mu.Unlock()

	for _, e := range reaped {
		w.reclaim(e)
	}
}

// reclaim releases an entity's components and retires its id. The id is
// never reassigned while the process runs.
func (w *World) reclaim(e *entity.Entity) {
	w.storage.DetachAll(e.ID())
	e.Destroy()
	w.stats.EntitiesDestroyed.Add(1)
	w.cache.Invalidate()
	w.events.Publish(bus.NewEvent(bus.TypeEntityDestroyed, w.cfg.Name, e.ID(), 0, nil))
}
