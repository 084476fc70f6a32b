package world

import "sync/atomic"

// Statistics counts world activity with lock-free counters.
type Statistics struct {
	EntitiesCreated    atomic.Uint64
	EntitiesDestroyed  atomic.Uint64
	ComponentsAttached atomic.Uint64
	ComponentsDetached atomic.Uint64
	Ticks              atomic.Uint64
}

// StatisticsSnapshot is a point-in-time copy of the counters plus derived
// table sizes.
type StatisticsSnapshot struct {
	EntitiesCreated    uint64
	EntitiesDestroyed  uint64
	EntitiesLive       int
	EntitiesPending    int
	ComponentsAttached uint64
	ComponentsDetached uint64
	Ticks              uint64
}

func (s *Statistics) snapshot(live, pending int) StatisticsSnapshot {
	return StatisticsSnapshot{
		EntitiesCreated:    s.EntitiesCreated.Load(),
		EntitiesDestroyed:  s.EntitiesDestroyed.Load(),
		EntitiesLive:       live,
		EntitiesPending:    pending,
		ComponentsAttached: s.ComponentsAttached.Load(),
		ComponentsDetached: s.ComponentsDetached.Load(),
		Ticks:              s.Ticks.Load(),
	}
}
