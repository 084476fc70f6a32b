package world

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helix-engine/helix/internal/core/archetype"
	"github.com/helix-engine/helix/internal/core/components"
	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/events/bus"
	"github.com/helix-engine/helix/internal/core/memory"
	"github.com/helix-engine/helix/internal/core/system"
	"github.com/helix-engine/helix/internal/core/systems"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w := New(DefaultConfig(), nil)
	require.NoError(t, w.Initialize(context.Background()))
	t.Cleanup(func() { _ = w.Destroy() })
	return w
}

func TestWorldRequiresInitialize(t *testing.T) {
	w := New(DefaultConfig(), nil)
	require.ErrorIs(t, w.Update(0.016), ErrNotInitialized)

	require.NoError(t, w.Initialize(context.Background()))
	require.NoError(t, w.Initialize(context.Background()), "initialize is idempotent")
	require.NoError(t, w.Update(0.016))

	require.NoError(t, w.Destroy())
	require.ErrorIs(t, w.Update(0.016), ErrDestroyed)
}

func TestWorldSpawnAndLookup(t *testing.T) {
	w := newTestWorld(t)

	e := w.SpawnEntity()
	require.True(t, e.IsActive())
	require.True(t, w.HasEntity(e.ID()))
	require.Equal(t, 1, w.EntityCount())

	got, ok := w.Entity(e.ID())
	require.True(t, ok)
	require.Same(t, e, got)

	other := w.SpawnEntity()
	require.NotEqual(t, e.ID(), other.ID(), "ids are never reused")
}

func TestWorldComponentRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	e := w.SpawnEntity()

	h := components.NewHealth(100, 0)
	attached, err := w.AddComponent(e.ID(), h)
	require.NoError(t, err)
	require.Same(t, h, attached.(*components.Health))

	got, ok := w.GetComponent(e.ID(), components.HealthTypeID)
	require.True(t, ok)
	require.Same(t, h, got)
	require.True(t, got.IsValid())
	require.True(t, w.HasComponent(e.ID(), components.HealthTypeID))

	_, err = w.AddComponent(entity.ID(99999), components.NewHealth(1, 0))
	require.ErrorIs(t, err, ErrEntityNotFound)
}

func TestWorldAddComponentBumpsEntityVersion(t *testing.T) {
	w := newTestWorld(t)
	e := w.SpawnEntity()
	before := e.Version()

	_, err := w.AddComponent(e.ID(), components.NewPosition(0, 0, 0))
	require.NoError(t, err)
	require.Greater(t, e.Version(), before)

	mid := e.Version()
	w.RemoveComponent(e.ID(), components.PositionTypeID)
	require.Greater(t, e.Version(), mid)
}

func TestWorldRemoveComponentReturnsDetachedCopy(t *testing.T) {
	w := newTestWorld(t)
	e := w.SpawnEntity()

	h := components.NewHealth(100, 0)
	h.TakeDamage(25)
	_, err := w.AddComponent(e.ID(), h)
	require.NoError(t, err)

	removed := w.RemoveComponent(e.ID(), components.HealthTypeID)
	require.NotNil(t, removed)
	require.NotSame(t, h, removed)
	require.Equal(t, 75.0, removed.(*components.Health).Current())
	require.False(t, w.HasComponent(e.ID(), components.HealthTypeID))

	require.Nil(t, w.RemoveComponent(e.ID(), components.HealthTypeID))
}

func TestWorldTwoPhaseDestroy(t *testing.T) {
	w := newTestWorld(t)
	e := w.SpawnEntity()
	_, err := w.AddComponent(e.ID(), components.NewHealth(100, 0))
	require.NoError(t, err)

	w.DestroyEntity(e.ID())
	w.DestroyEntity(e.ID()) // idempotent

	require.True(t, w.HasEntity(e.ID()), "entity survives until the next tick")
	require.True(t, e.IsPendingRemoval())

	require.NoError(t, w.Update(0.016))
	require.False(t, w.HasEntity(e.ID()))
	require.Empty(t, w.AllComponents(e.ID()))
	require.True(t, e.IsDestroyed())
}

func TestWorldDestroyEntityImmediate(t *testing.T) {
	w := newTestWorld(t)
	e := w.SpawnEntity()
	_, err := w.AddComponent(e.ID(), components.NewPosition(1, 2, 3))
	require.NoError(t, err)

	w.DestroyEntityImmediate(e.ID())
	require.False(t, w.HasEntity(e.ID()))
	require.Empty(t, w.AllComponents(e.ID()))
}

func TestWorldFailedReplacementKeepsComponentAndQueries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory = memory.PoolConfig{
		InitialChunks:     1,
		MaxChunks:         1,
		ChunkCapacity:     1,
		CacheLineSize:     64,
		HotDataSeparation: false,
	}
	w := New(cfg, nil)
	require.NoError(t, w.Initialize(context.Background()))
	t.Cleanup(func() { _ = w.Destroy() })

	e := w.SpawnEntity()
	h := components.NewHealth(100, 0)
	_, err := w.AddComponent(e.ID(), h)
	require.NoError(t, err)
	require.Len(t, w.QueryEntities(components.HealthTypeID), 1)

	// the single slot is taken, so the replacement cannot be placed; the
	// attached component and the query results must survive the failure
	_, err = w.AddComponent(e.ID(), components.NewHealth(50, 0))
	require.ErrorIs(t, err, memory.ErrOutOfMemory)

	got, ok := w.GetComponent(e.ID(), components.HealthTypeID)
	require.True(t, ok)
	require.Same(t, h, got)
	require.Len(t, w.QueryEntities(components.HealthTypeID), 1)
}

func TestWorldQueryAndCacheInvalidation(t *testing.T) {
	w := newTestWorld(t)
	for range 3 {
		e := w.SpawnEntity()
		_, err := w.AddComponent(e.ID(), components.NewPosition(0, 0, 0))
		require.NoError(t, err)
	}

	result := w.QueryEntities(components.PositionTypeID)
	require.Len(t, result, 3)

	// cache hit on the unchanged world
	require.Len(t, w.QueryEntities(components.PositionTypeID), 3)
	require.GreaterOrEqual(t, w.CacheStats().Hits, uint64(1))

	// a spawn invalidates, the next query sees the new entity
	e := w.SpawnEntity()
	_, err := w.AddComponent(e.ID(), components.NewPosition(0, 0, 0))
	require.NoError(t, err)
	require.Len(t, w.QueryEntities(components.PositionTypeID), 4)
}

func TestWorldSystemOrderingAndMetricsThroughUpdate(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	var trace []string
	mk := func(name string, priority int, deps ...string) system.System {
		return &traceSystem{
			Base:  system.NewBase(name, priority, nil, deps...),
			trace: &trace,
		}
	}

	// higher priority runs later, but a dependency overrides priority
	require.NoError(t, w.RegisterSystem(ctx, mk("physics", 100)))
	require.NoError(t, w.RegisterSystem(ctx, mk("render", 50, "physics")))
	require.NoError(t, w.RegisterSystem(ctx, mk("input", 10)))

	require.NoError(t, w.Update(0.016))
	require.Equal(t, []string{"input", "physics", "render"}, trace)

	got, ok := w.System("physics")
	require.True(t, ok)
	require.EqualValues(t, 1, got.Metrics().Updates)

	require.NoError(t, w.RemoveSystem("render"))
	_, ok = w.System("render")
	require.False(t, ok)
}

type traceSystem struct {
	*system.Base
	trace *[]string
}

func (s *traceSystem) Update(dt float64, _ system.World) error {
	return s.Execute(dt, func() error {
		*s.trace = append(*s.trace, s.Name())
		return nil
	})
}

func TestWorldLifecycleEventsDrainAfterTick(t *testing.T) {
	w := newTestWorld(t)

	var seen []string
	_, err := w.EventBus().Subscribe(bus.TypeEntityCreated, func(e bus.Event) error {
		seen = append(seen, e.Type())
		return nil
	})
	require.NoError(t, err)
	_, err = w.EventBus().Subscribe(bus.TypeEntityDestroyed, func(e bus.Event) error {
		seen = append(seen, e.Type())
		return nil
	})
	require.NoError(t, err)

	e := w.SpawnEntity()
	require.Empty(t, seen, "events queue until the drain")

	require.NoError(t, w.Update(0.016))
	require.Equal(t, []string{bus.TypeEntityCreated}, seen)

	w.DestroyEntity(e.ID())
	require.NoError(t, w.Update(0.016))
	require.Equal(t, []string{bus.TypeEntityCreated, bus.TypeEntityDestroyed}, seen)
}

func TestWorldArchetypeSpawn(t *testing.T) {
	archetype.ClearRegistry()
	t.Cleanup(archetype.ClearRegistry)

	hp := components.NewHealth(250, 50)
	_, err := archetype.NewBuilder("soldier").
		DefaultComponent(hp).
		Component(components.PositionTypeID).
		BuildAndRegister()
	require.NoError(t, err)

	w := newTestWorld(t)
	e, err := w.CreateEntityFromArchetype("soldier")
	require.NoError(t, err)

	c, ok := w.GetComponent(e.ID(), components.HealthTypeID)
	require.True(t, ok)
	require.NotSame(t, hp, c, "defaults are cloned per spawn")
	require.Equal(t, 250.0, c.(*components.Health).Max())
	require.True(t, w.HasComponent(e.ID(), components.PositionTypeID))

	_, err = w.CreateEntityFromArchetype("ghost")
	require.Error(t, err)
}

func TestWorldGameplayScenario(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	require.NoError(t, w.RegisterSystem(ctx, systems.NewMovement(10, nil)))
	require.NoError(t, w.RegisterSystem(ctx, systems.NewRegen(20, 1.0, nil)))

	e := w.SpawnEntity()
	h := components.NewHealth(100, 0)
	h.SetRegenRates(5, 0)
	pos := components.NewPosition(0, 0, 0)
	vel := components.NewVelocity()
	vel.Set(1, 0, 0)
	_, err := w.AddComponent(e.ID(), h)
	require.NoError(t, err)
	_, err = w.AddComponent(e.ID(), pos)
	require.NoError(t, err)
	_, err = w.AddComponent(e.ID(), vel)
	require.NoError(t, err)

	h.TakeDamage(30)
	require.Equal(t, 70.0, h.Current())

	for range 4 {
		require.NoError(t, w.Update(0.25))
	}
	require.InDelta(t, 1.0, pos.X(), 1e-9)
	require.InDelta(t, 75.0, h.Current(), 1e-9)
}

func TestWorldPauseSuspendsSystems(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	var trace []string
	require.NoError(t, w.RegisterSystem(ctx, &traceSystem{
		Base:  system.NewBase("tracer", 0, nil),
		trace: &trace,
	}))

	require.NoError(t, w.Update(0.016))
	require.Len(t, trace, 1)

	w.Pause()
	require.True(t, w.IsPaused())
	require.NoError(t, w.Update(0.016))
	require.Len(t, trace, 1)

	w.Resume()
	require.NoError(t, w.Update(0.016))
	require.Len(t, trace, 2)
}

func TestWorldStatsSnapshot(t *testing.T) {
	w := newTestWorld(t)

	a := w.SpawnEntity()
	w.SpawnEntity()
	_, err := w.AddComponent(a.ID(), components.NewPosition(0, 0, 0))
	require.NoError(t, err)
	w.DestroyEntity(a.ID())

	snap := w.Stats()
	require.EqualValues(t, 2, snap.EntitiesCreated)
	require.EqualValues(t, 1, snap.EntitiesPending)
	require.EqualValues(t, 2, snap.EntitiesLive)

	require.NoError(t, w.Update(0.016))
	snap = w.Stats()
	require.EqualValues(t, 1, snap.EntitiesDestroyed)
	require.EqualValues(t, 1, snap.EntitiesLive)
	require.EqualValues(t, 0, snap.EntitiesPending)
}

func TestConfigLoadYAML(t *testing.T) {
	src := `
name: arena
initial_entity_capacity: 4096
component_pool_size: 512
log_level: debug
`
	cfg, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "arena", cfg.Name)
	require.Equal(t, 4096, cfg.InitialEntityCapacity)
	require.Equal(t, 512, cfg.ComponentPoolSize)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Positive(t, cfg.Memory.ChunkCapacity, "defaults fill unset sections")
}
