package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestInterval(t *testing.T, cfg IntervalConfig) *Interval {
	t.Helper()
	s := NewInterval("interval", 100, cfg, nil)
	require.NoError(t, s.Initialize(context.Background(), nil))
	return s
}

func TestIntervalAccumulates(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0})
	fired := 0
	body := func() error { fired++; return nil }

	require.NoError(t, s.Tick(0.4, body))
	require.NoError(t, s.Tick(0.4, body))
	require.Equal(t, 0, fired)
	require.InDelta(t, 0.8, s.Progress(), 1e-9)
	require.InDelta(t, 0.2, s.Remaining(), 1e-9)

	require.NoError(t, s.Tick(0.4, body))
	require.Equal(t, 1, fired)
	require.InDelta(t, 0.2, s.Progress(), 1e-9)
}

func TestIntervalCatchesUpAfterSlowTick(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0})
	fired := 0

	require.NoError(t, s.Tick(3.5, func() error { fired++; return nil }))
	require.Equal(t, 3, fired)
}

func TestIntervalImmediateFirstFire(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0, Immediate: true})
	fired := 0

	require.NoError(t, s.Tick(0.1, func() error { fired++; return nil }))
	require.Equal(t, 1, fired)

	require.NoError(t, s.Tick(0.1, func() error { fired++; return nil }))
	require.Equal(t, 1, fired)
}

func TestIntervalRunOnce(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0, RunOnce: true})
	fired := 0
	body := func() error { fired++; return nil }

	require.NoError(t, s.Tick(2.5, body))
	require.Equal(t, 1, fired)
	require.True(t, s.Finished())

	require.NoError(t, s.Tick(2.5, body))
	require.Equal(t, 1, fired)

	s.ResetSchedule()
	require.False(t, s.Finished())
	require.NoError(t, s.Tick(1.0, body))
	require.Equal(t, 2, fired)
}

func TestIntervalMaxExecutions(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0, MaxExecutions: 2})
	fired := 0

	require.NoError(t, s.Tick(5.0, func() error { fired++; return nil }))
	require.Equal(t, 2, fired)
	require.True(t, s.Finished())
	require.Equal(t, uint64(2), s.Executions())
}

func TestIntervalForceExecuteAndSkip(t *testing.T) {
	s := newTestInterval(t, IntervalConfig{Interval: 1.0})
	fired := 0
	body := func() error { fired++; return nil }

	require.NoError(t, s.Tick(0.9, body))
	require.Equal(t, 0, fired)

	require.NoError(t, s.ForceExecute(body))
	require.Equal(t, 1, fired)
	require.InDelta(t, 0.0, s.Progress(), 1e-9)

	require.NoError(t, s.Tick(0.9, body))
	s.SkipCycle()
	require.NoError(t, s.Tick(0.9, body))
	require.Equal(t, 1, fired)
}
