package system

import (
	"github.com/helix-engine/helix/internal/core/observability/log"
)

// IntervalConfig controls the firing pattern of an Interval system.
type IntervalConfig struct {
	// Interval is the accumulated simulation time, in seconds, between
	// firings.
	Interval float64
	// RunOnce stops the system after the first firing.
	RunOnce bool
	// Immediate fires the body on the first tick without waiting for a full
	// interval.
	Immediate bool
	// MaxExecutions stops the system after this many firings; zero means
	// unlimited.
	MaxExecutions uint64
}

// Interval is a scheduling base that accumulates delta time and fires its
// body only when a configured interval has elapsed. Several intervals worth
// of accumulated time fire the body several times in one tick, so a slow
// tick does not lose firings.
type Interval struct {
	*Base
	cfg         IntervalConfig
	accumulator float64
	executions  uint64
	finished    bool
}

// NewInterval builds the embedded core of an interval system.
func NewInterval(name string, priority int, cfg IntervalConfig, logger log.Log, deps ...string) *Interval {
	if cfg.Interval <= 0 {
		cfg.Interval = 1.0
	}
	return &Interval{
		Base: NewBase(name, priority, logger, deps...),
		cfg:  cfg,
	}
}

// Tick advances the accumulator by dt and fires the body zero or more
// times. Concrete systems call it from Update.
func (s *Interval) Tick(dt float64, body func() error) error {
	if s.finished {
		return nil
	}

	if s.cfg.Immediate && s.executions == 0 {
		if err := s.fire(dt, body); err != nil || s.finished {
			return err
		}
	}

	s.accumulator += dt
	for s.accumulator >= s.cfg.Interval && !s.finished {
		s.accumulator -= s.cfg.Interval
		if err := s.fire(dt, body); err != nil {
			return err
		}
	}
	return nil
}

// ForceExecute fires the body immediately and restarts the current interval.
func (s *Interval) ForceExecute(body func() error) error {
	if s.finished {
		return nil
	}
	s.accumulator = 0
	return s.fire(s.cfg.Interval, body)
}

// SkipCycle restarts the current interval without firing.
func (s *Interval) SkipCycle() {
	s.accumulator = 0
}

// ResetSchedule restarts the accumulator and the execution count, reviving
// a system stopped by RunOnce or MaxExecutions.
func (s *Interval) ResetSchedule() {
	s.accumulator = 0
	s.executions = 0
	s.finished = false
}

// Step returns the configured interval length in seconds.
func (s *Interval) Step() float64 { return s.cfg.Interval }

// Executions returns how many times the body has fired.
func (s *Interval) Executions() uint64 { return s.executions }

// Finished reports whether RunOnce or MaxExecutions has stopped the system.
func (s *Interval) Finished() bool { return s.finished }

// Progress reports the fraction of the current interval already accumulated,
// in [0, 1).
func (s *Interval) Progress() float64 {
	return s.accumulator / s.cfg.Interval
}

// Remaining reports the simulation time left until the next firing.
func (s *Interval) Remaining() float64 {
	return s.cfg.Interval - s.accumulator
}

func (s *Interval) fire(dt float64, body func() error) error {
	err := s.Execute(dt, func() error {
		s.executions++
		return body()
	})
	if s.cfg.RunOnce && s.executions >= 1 {
		s.finished = true
	}
	if s.cfg.MaxExecutions > 0 && s.executions >= s.cfg.MaxExecutions {
		s.finished = true
	}
	return err
}
