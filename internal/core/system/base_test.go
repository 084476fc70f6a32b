package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifecycleStateMachine(t *testing.T) {
	b := NewBase("test", 100, nil)
	require.Equal(t, StateCreated, b.State())

	require.NoError(t, b.Initialize(context.Background(), nil))
	require.Equal(t, StateInitialized, b.State())

	err := b.Initialize(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidState)

	// first execution promotes to running
	require.NoError(t, b.Execute(0.1, func() error { return nil }))
	require.Equal(t, StateRunning, b.State())

	require.NoError(t, b.Pause())
	require.Equal(t, StatePaused, b.State())
	require.ErrorIs(t, b.Pause(), ErrInvalidState)

	require.NoError(t, b.Resume())
	require.Equal(t, StateRunning, b.State())
	require.ErrorIs(t, b.Resume(), ErrInvalidState)

	require.NoError(t, b.Destroy())
	require.Equal(t, StateDestroyed, b.State())
	require.NoError(t, b.Destroy())
}

func TestExecuteGating(t *testing.T) {
	b := NewBase("gated", 100, nil)
	calls := 0
	body := func() error { calls++; return nil }

	// created, not initialized: no-op
	require.NoError(t, b.Execute(0.1, body))
	require.Equal(t, 0, calls)

	require.NoError(t, b.Initialize(context.Background(), nil))
	require.NoError(t, b.Execute(0.1, body))
	require.Equal(t, 1, calls)

	b.SetEnabled(false)
	require.NoError(t, b.Execute(0.1, body))
	require.Equal(t, 1, calls)

	b.SetEnabled(true)
	require.NoError(t, b.Pause())
	require.NoError(t, b.Execute(0.1, body))
	require.Equal(t, 1, calls)

	require.NoError(t, b.Resume())
	require.NoError(t, b.Execute(0.1, body))
	require.Equal(t, 2, calls)
}

func TestExecuteMetricsAndErrors(t *testing.T) {
	b := NewBase("faulty", 100, nil)
	require.NoError(t, b.Initialize(context.Background(), nil))

	require.NoError(t, b.Execute(0.1, func() error { return nil }))

	boom := errors.New("boom")
	err := b.Execute(0.1, func() error { return boom })
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "faulty")

	m := b.Metrics()
	require.Equal(t, uint64(2), m.Updates)
	require.Equal(t, uint64(1), m.Errors)
	require.ErrorIs(t, m.LastError, boom)
	require.GreaterOrEqual(t, m.TotalTime, m.LastTime)
	require.False(t, m.LastUpdatedAt.IsZero())
}

func TestIdentity(t *testing.T) {
	b := NewBase("movement", 50, nil, "physics", "input")
	require.Equal(t, "movement", b.Name())
	require.Equal(t, 50, b.Priority())
	require.Equal(t, []string{"physics", "input"}, b.Dependencies())
	require.True(t, b.IsEnabled())
}
