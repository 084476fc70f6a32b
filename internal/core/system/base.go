package system

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/helix-engine/helix/internal/core/observability/log"
)

// Base carries the lifecycle state machine, enable gating, and execution
// accounting shared by all systems. Concrete systems embed it and route
// their per-tick body through Execute:
//
//	func (s *MovementSystem) Update(dt float64, w system.World) error {
//		return s.Execute(dt, func() error {
//			...
//		})
//	}
type Base struct {
	name     string
	priority int
	deps     []string
	logger   log.Log

	state   atomic.Int32
	enabled atomic.Bool

	mu      sync.Mutex
	metrics Metrics
}

// NewBase builds the embedded core of a system. Dependencies are the names
// of systems that must run earlier in the same tick.
func NewBase(name string, priority int, logger log.Log, deps ...string) *Base {
	if logger == nil {
		logger = log.Provide()
	}
	b := &Base{
		name:     name,
		priority: priority,
		deps:     deps,
		logger:   logger.With(log.String("system", name)),
	}
	b.enabled.Store(true)
	return b
}

func (b *Base) Name() string           { return b.name }
func (b *Base) Priority() int          { return b.priority }
func (b *Base) Dependencies() []string { return b.deps }

// State returns the current lifecycle state.
func (b *Base) State() State { return State(b.state.Load()) }

// IsEnabled reports whether Execute will run the body.
func (b *Base) IsEnabled() bool { return b.enabled.Load() }

// SetEnabled toggles execution without touching the lifecycle state.
func (b *Base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// Initialize moves the system from Created to Initialized. A second call
// fails: the state machine allows exactly one initialization.
func (b *Base) Initialize(_ context.Context, _ World) error {
	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateInitialized)) {
		return fmt.Errorf("%w: initialize from %s", ErrInvalidState, b.State())
	}
	b.logger.Debug("system initialized")
	return nil
}

// Pause suspends a running system.
func (b *Base) Pause() error {
	if !b.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return fmt.Errorf("%w: pause from %s", ErrInvalidState, b.State())
	}
	return nil
}

// Resume continues a paused system.
func (b *Base) Resume() error {
	if !b.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return fmt.Errorf("%w: resume from %s", ErrInvalidState, b.State())
	}
	return nil
}

// Destroy retires the system. The transition is terminal and idempotent.
func (b *Base) Destroy() error {
	b.state.Store(int32(StateDestroyed))
	return nil
}

// Metrics returns a snapshot of the execution counters.
func (b *Base) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// Execute runs one tick body under the lifecycle gate: it is a no-op unless
// the system is enabled and running (an initialized system is promoted to
// running on its first tick). The body is timed and counted; a body error is
// recorded, logged with the system identity, and returned wrapped, never
// swallowed.
func (b *Base) Execute(dt float64, body func() error) error {
	if !b.enabled.Load() {
		return nil
	}
	b.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning))
	if State(b.state.Load()) != StateRunning {
		return nil
	}

	start := time.Now()
	err := body()
	elapsed := time.Since(start)

	b.mu.Lock()
	b.metrics.Updates++
	b.metrics.TotalTime += elapsed
	b.metrics.LastTime = elapsed
	if elapsed > b.metrics.MaxTime {
		b.metrics.MaxTime = elapsed
	}
	b.metrics.LastUpdatedAt = start
	if err != nil {
		b.metrics.Errors++
		b.metrics.LastError = err
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("system update failed",
			log.Error(err), log.Float64("dt", dt), log.Duration("elapsed", elapsed))
		return fmt.Errorf("system %q: %w", b.name, err)
	}
	return nil
}
