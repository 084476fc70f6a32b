package component

import (
	"fmt"
	"sync"

	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/memory"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/pkg/generic"
)

// Storage is the type-indexed component store: O(1) average attach, detach
// and lookup, plus instance recycling through bounded per-type pools so the
// simulation does not churn the allocator.
//
// Ownership invariant: an instance is referenced by at most one live
// (entity, type) pair. Detach strips ownership and resets the instance
// before pool re-insertion; the caller receives an independently owned clone
// of the detached state.
//
// The maps are guarded so read-mostly inspection from another goroutine is
// safe; structural writes belong to the simulation goroutine.
type Storage struct {
	mu           sync.RWMutex
	byType       map[TypeID]map[entity.ID]Component
	byEntity     map[entity.ID]map[TypeID]Component
	masks        map[entity.ID]Mask
	allocations  map[entity.ID]map[TypeID]memory.Allocation
	pools        map[TypeID]*generic.Pool[Component]
	poolCapacity int
	layout       *memory.Layout
	logger       log.Log
}

// NewStorage builds an empty store. poolCapacity bounds each per-type
// recycle pool; layout may be nil to skip chunk accounting.
func NewStorage(poolCapacity int, layout *memory.Layout, logger log.Log) *Storage {
	if logger == nil {
		logger = log.Nop()
	}
	return &Storage{
		byType:       make(map[TypeID]map[entity.ID]Component),
		byEntity:     make(map[entity.ID]map[TypeID]Component),
		masks:        make(map[entity.ID]Mask),
		allocations:  make(map[entity.ID]map[TypeID]memory.Allocation),
		pools:        make(map[TypeID]*generic.Pool[Component]),
		poolCapacity: poolCapacity,
		layout:       layout,
		logger:       logger.With(log.String("module", "component-storage")),
	}
}

// Attach binds the component to the entity and returns the stored instance.
// An existing component of the same type is detached (and recycled) first so
// the ownership invariant holds.
func (s *Storage) Attach(id entity.ID, c Component) (Component, error) {
	if c == nil {
		return nil, ErrNilComponent
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidComponent, TypeName(c.TypeID()))
	}
	t := c.TypeID()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Reserve the new slot before touching any existing state. Exhaustion is
	// fatal for this request and must leave a replaced component attached.
	var alloc memory.Allocation
	if s.layout != nil {
		hot := c.Flags()&FlagDirty != 0
		var err error
		alloc, err = s.layout.Allocate(uint32(t), c.Size(), hot)
		if err != nil {
			return nil, err
		}
	}

	if prev, ok := s.byEntity[id][t]; ok {
		s.detachLocked(id, t, prev)
	}

	if s.byType[t] == nil {
		s.byType[t] = make(map[entity.ID]Component)
	}
	if s.byEntity[id] == nil {
		s.byEntity[id] = make(map[TypeID]Component)
	}
	s.byType[t][id] = c
	s.byEntity[id][t] = c
	mask := s.masks[id]
	mask.Set(t)
	s.masks[id] = mask

	if s.layout != nil {
		if s.allocations[id] == nil {
			s.allocations[id] = make(map[TypeID]memory.Allocation)
		}
		s.allocations[id][t] = alloc
	}
	return c, nil
}

// Get returns the component of the given type attached to the entity.
func (s *Storage) Get(id entity.ID, t TypeID) (Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byEntity[id][t]
	return c, ok
}

// Has reports whether the entity owns a component of the given type.
func (s *Storage) Has(id entity.ID, t TypeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEntity[id][t]
	return ok
}

// Detach removes the component of the given type from the entity. The
// returned instance is an independently owned copy of the detached state;
// the original is reset and recycled. Nil is returned when nothing was
// attached, which makes detach a safe no-op.
func (s *Storage) Detach(id entity.ID, t TypeID) Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byEntity[id][t]
	if !ok {
		return nil
	}
	removed := c.Clone()
	s.detachLocked(id, t, c)
	return removed
}

// DetachAll releases every component the entity owns back to the pools and
// returns how many were released.
func (s *Storage) DetachAll(id entity.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.byEntity[id]
	n := len(owned)
	for t, c := range owned {
		s.detachLocked(id, t, c)
	}
	return n
}

// All returns every component attached to the entity.
func (s *Storage) All(id entity.ID) []Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.byEntity[id]
	out := make([]Component, 0, len(owned))
	for _, c := range owned {
		out = append(out, c)
	}
	return out
}

// MaskOf returns the component-type mask of the entity.
func (s *Storage) MaskOf(id entity.ID) Mask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masks[id]
}

// CountByType returns how many entities own a component of the given type.
func (s *Storage) CountByType(t TypeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byType[t])
}

// Acquire produces a pristine instance of the given type, recycled from the
// pool when one is available, freshly built via the registry otherwise.
func (s *Storage) Acquire(t TypeID) (Component, error) {
	s.mu.Lock()
	pool := s.pools[t]
	s.mu.Unlock()
	if pool != nil {
		if c, ok := pool.TryGet(); ok {
			return c, nil
		}
	}
	return NewInstance(t)
}

// Clear drops every attachment and every pool.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byType = make(map[TypeID]map[entity.ID]Component)
	s.byEntity = make(map[entity.ID]map[TypeID]Component)
	s.masks = make(map[entity.ID]Mask)
	s.allocations = make(map[entity.ID]map[TypeID]memory.Allocation)
	s.pools = make(map[TypeID]*generic.Pool[Component])
	if s.layout != nil {
		s.layout.Cleanup()
	}
}

// PooledCount returns the number of recycled instances held for a type.
func (s *Storage) PooledCount(t TypeID) int {
	s.mu.RLock()
	pool := s.pools[t]
	s.mu.RUnlock()
	if pool == nil {
		return 0
	}
	return pool.Len()
}

func (s *Storage) detachLocked(id entity.ID, t TypeID, c Component) {
	delete(s.byType[t], id)
	delete(s.byEntity[id], t)
	if len(s.byEntity[id]) == 0 {
		delete(s.byEntity, id)
		delete(s.masks, id)
	} else {
		mask := s.masks[id]
		mask.Unset(t)
		s.masks[id] = mask
	}

	if s.layout != nil {
		if alloc, ok := s.allocations[id][t]; ok {
			s.layout.Free(alloc)
			delete(s.allocations[id], t)
			if len(s.allocations[id]) == 0 {
				delete(s.allocations, id)
			}
		}
	}

	c.Reset()
	pool := s.pools[t]
	if pool == nil {
		pool = generic.NewPool(func() Component {
			instance, err := NewInstance(t)
			if err != nil {
				// unreachable for attached types; attached implies registered
				panic(err)
			}
			return instance
		}, s.poolCapacity)
		s.pools[t] = pool
	}
	if !pool.Put(c) {
		s.logger.Debug("component pool full, discarding instance",
			log.String("type", TypeName(t)))
	}
}
