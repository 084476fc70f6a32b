package system

import (
	"context"
	"errors"
	"time"

	"github.com/helix-engine/helix/internal/core/component"
	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/events/bus"
	"github.com/helix-engine/helix/internal/core/query"
)

var (
	// ErrInvalidState signals a lifecycle call that the current state forbids,
	// such as initializing twice or resuming a system that is not paused.
	ErrInvalidState = errors.New("system: invalid state transition")
	// ErrAlreadyRegistered signals a second registration under the same name.
	ErrAlreadyRegistered = errors.New("system: already registered")
	// ErrNotFound signals a lookup for an unknown system name.
	ErrNotFound = errors.New("system: not found")
	// ErrUnknownDependency signals a declared dependency on an unregistered system.
	ErrUnknownDependency = errors.New("system: unknown dependency")
	// ErrDependencyCycle signals that the dependency graph cannot be ordered.
	ErrDependencyCycle = errors.New("system: dependency cycle")
)

// State tracks a system through its lifecycle:
// Created → Initialized → Running ⇄ Paused → Destroyed (terminal).
type State int32

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// World is the slice of world behavior systems operate through: entity
// queries, component access, and event publication. The world implements it.
type World interface {
	// Query starts a filter over the live entity set, routed through the
	// world's result cache.
	Query() *query.Builder
	// Component returns the component of the given type attached to the entity.
	Component(id entity.ID, t component.TypeID) (component.Component, bool)
	// Publish enqueues an event for the end-of-tick drain.
	Publish(event bus.Event)
}

// System is a unit of per-tick simulation logic.
//
// Ordering: the manager runs systems so that every declared dependency has
// run earlier in the same tick; among unconstrained systems lower Priority
// runs first, ties broken by registration order.
type System interface {
	// Identity

	Name() string
	Priority() int
	Dependencies() []string

	// Lifecycle

	Initialize(ctx context.Context, world World) error
	Destroy() error
	Pause() error
	Resume() error

	// Execution

	Update(dt float64, world World) error

	// State

	State() State
	IsEnabled() bool
	SetEnabled(enabled bool)

	// Diagnostics

	Metrics() Metrics
}

// Metrics is a snapshot of a system's execution counters.
type Metrics struct {
	Updates       uint64
	Errors        uint64
	TotalTime     time.Duration
	LastTime      time.Duration
	MaxTime       time.Duration
	LastUpdatedAt time.Time
	LastError     error
}

// AverageTime returns the mean duration of one update.
func (m Metrics) AverageTime() time.Duration {
	if m.Updates == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Updates)
}
