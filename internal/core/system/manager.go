package system

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/helix-engine/helix/internal/core/observability/log"
)

// ManagerMetrics aggregates execution statistics across one manager.
type ManagerMetrics struct {
	Registered     int
	Enabled        int
	Ticks          uint64
	LastTickTime   time.Duration
	TotalTickTime  time.Duration
	ErrorsBySystem map[string]uint64
}

// Manager owns system registration and drives their per-tick execution.
//
// Ordering: a stable topological sort of the dependency graph; among systems
// whose dependencies are satisfied, lower priority runs first, ties broken
// by registration order. The order is recomputed lazily after every
// registration change.
type Manager struct {
	mu       sync.RWMutex
	systems  map[string]System
	regIndex map[string]int
	nextReg  int
	order    []System
	dirty    bool
	logger   log.Log

	ticks     uint64
	lastTick  time.Duration
	totalTick time.Duration
}

// NewManager builds an empty manager.
func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.Provide()
	}
	return &Manager{
		systems:  make(map[string]System),
		regIndex: make(map[string]int),
		logger:   logger.With(log.String("module", "system-manager")),
	}
}

// Register adds a system under its name. Dependency names are validated at
// ordering time, not here, so registration order does not matter.
func (m *Manager) Register(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := s.Name()
	if _, exists := m.systems[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	m.systems[name] = s
	m.regIndex[name] = m.nextReg
	m.nextReg++
	m.dirty = true
	m.logger.Debug("system registered",
		log.String("system", name), log.Int("priority", s.Priority()))
	return nil
}

// Remove destroys and unregisters the named system.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.systems[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(m.systems, name)
	delete(m.regIndex, name)
	m.dirty = true
	return s.Destroy()
}

// System resolves a registered system by name.
func (m *Manager) System(name string) (System, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.systems[name]
	return s, ok
}

// Has reports whether a system is registered under the name.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.systems[name]
	return ok
}

// Systems returns every registered system in execution order.
func (m *Manager) Systems() ([]System, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.reorderLocked(); err != nil {
		return nil, err
	}
	out := make([]System, len(m.order))
	copy(out, m.order)
	return out, nil
}

// ExecutionOrder returns the system names in execution order.
func (m *Manager) ExecutionOrder() ([]string, error) {
	systems, err := m.Systems()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.Name()
	}
	return names, nil
}

// ValidateDependencies checks that the dependency graph is complete and
// acyclic without running anything.
func (m *Manager) ValidateDependencies() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reorderLocked()
}

// InitializeAll initializes every system in execution order.
func (m *Manager) InitializeAll(ctx context.Context, world World) error {
	systems, err := m.Systems()
	if err != nil {
		return err
	}
	for _, s := range systems {
		if err = s.Initialize(ctx, world); err != nil {
			return fmt.Errorf("initialize system %q: %w", s.Name(), err)
		}
	}
	return nil
}

// Update runs one tick over every system in execution order. Every system
// gets its turn even when an earlier one fails; the collected errors are
// joined and returned to the driver.
func (m *Manager) Update(dt float64, world World) error {
	systems, err := m.Systems()
	if err != nil {
		return err
	}

	start := time.Now()
	var all error
	for _, s := range systems {
		if err = s.Update(dt, world); err != nil {
			all = errors.Join(all, err)
		}
	}
	elapsed := time.Since(start)

	m.mu.Lock()
	m.ticks++
	m.lastTick = elapsed
	m.totalTick += elapsed
	m.mu.Unlock()
	return all
}

// PauseAll pauses every running system.
func (m *Manager) PauseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.systems {
		if s.State() == StateRunning {
			_ = s.Pause()
		}
	}
}

// ResumeAll resumes every paused system.
func (m *Manager) ResumeAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.systems {
		if s.State() == StatePaused {
			_ = s.Resume()
		}
	}
}

// DestroyAll destroys every system and empties the manager.
func (m *Manager) DestroyAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all error
	for name, s := range m.systems {
		if err := s.Destroy(); err != nil {
			all = errors.Join(all, fmt.Errorf("destroy system %q: %w", name, err))
		}
	}
	m.systems = make(map[string]System)
	m.regIndex = make(map[string]int)
	m.order = nil
	m.dirty = false
	return all
}

// Metrics returns a snapshot of manager-level counters.
func (m *Manager) Metrics() ManagerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := ManagerMetrics{
		Registered:     len(m.systems),
		Ticks:          m.ticks,
		LastTickTime:   m.lastTick,
		TotalTickTime:  m.totalTick,
		ErrorsBySystem: make(map[string]uint64),
	}
	for name, s := range m.systems {
		if s.IsEnabled() {
			out.Enabled++
		}
		if errs := s.Metrics().Errors; errs > 0 {
			out.ErrorsBySystem[name] = errs
		}
	}
	return out
}

// reorderLocked recomputes the execution order with a stable Kahn sort:
// among the ready set, lower priority first, registration order breaks ties.
func (m *Manager) reorderLocked() error {
	if !m.dirty {
		return nil
	}

	indegree := make(map[string]int, len(m.systems))
	dependents := make(map[string][]string, len(m.systems))
	for name, s := range m.systems {
		for _, dep := range s.Dependencies() {
			if _, ok := m.systems[dep]; !ok {
				return fmt.Errorf("%w: %q required by %q", ErrUnknownDependency, dep, name)
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0, len(m.systems))
	for name := range m.systems {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]System, 0, len(m.systems))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			a, b := m.systems[ready[i]], m.systems[ready[j]]
			if a.Priority() != b.Priority() {
				return a.Priority() < b.Priority()
			}
			return m.regIndex[ready[i]] < m.regIndex[ready[j]]
		})
		name := ready[0]
		ready = ready[1:]
		order = append(order, m.systems[name])
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(m.systems) {
		stuck := make([]string, 0)
		for name := range m.systems {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return fmt.Errorf("%w: involving %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}

	m.order = order
	m.dirty = false
	return nil
}
