package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingSystem appends its name to a shared trace on every update.
type recordingSystem struct {
	*Base
	trace *[]string
	fail  error
}

func newRecording(name string, priority int, trace *[]string, deps ...string) *recordingSystem {
	return &recordingSystem{Base: NewBase(name, priority, nil, deps...), trace: trace}
}

func (s *recordingSystem) Update(dt float64, _ World) error {
	return s.Execute(dt, func() error {
		*s.trace = append(*s.trace, s.Name())
		return s.fail
	})
}

func initManager(t *testing.T, systems ...System) *Manager {
	t.Helper()
	m := NewManager(nil)
	for _, s := range systems {
		require.NoError(t, m.Register(s))
	}
	require.NoError(t, m.InitializeAll(context.Background(), nil))
	return m
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	m := NewManager(nil)
	var trace []string
	require.NoError(t, m.Register(newRecording("a", 100, &trace)))
	require.ErrorIs(t, m.Register(newRecording("a", 200, &trace)), ErrAlreadyRegistered)
}

func TestPriorityOrdering(t *testing.T) {
	var trace []string
	m := initManager(t,
		newRecording("slow", 300, &trace),
		newRecording("fast", 100, &trace),
		newRecording("mid", 200, &trace),
	)

	require.NoError(t, m.Update(0.016, nil))
	require.Equal(t, []string{"fast", "mid", "slow"}, trace)
}

func TestRegistrationOrderBreaksPriorityTies(t *testing.T) {
	var trace []string
	m := initManager(t,
		newRecording("first", 100, &trace),
		newRecording("second", 100, &trace),
	)

	order, err := m.ExecutionOrder()
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestDependencyDominatesPriority(t *testing.T) {
	var trace []string
	// s2 has the lower priority number but depends on s1
	m := initManager(t,
		newRecording("s1", 100, &trace),
		newRecording("s2", 50, &trace, "s1"),
	)

	require.NoError(t, m.Update(0.016, nil))
	require.Equal(t, []string{"s1", "s2"}, trace)
}

func TestUnknownDependency(t *testing.T) {
	var trace []string
	m := NewManager(nil)
	require.NoError(t, m.Register(newRecording("orphan", 100, &trace, "missing")))

	err := m.ValidateDependencies()
	require.ErrorIs(t, err, ErrUnknownDependency)
	require.Contains(t, err.Error(), "missing")
}

func TestDependencyCycle(t *testing.T) {
	var trace []string
	m := NewManager(nil)
	require.NoError(t, m.Register(newRecording("a", 100, &trace, "b")))
	require.NoError(t, m.Register(newRecording("b", 100, &trace, "a")))

	err := m.ValidateDependencies()
	require.ErrorIs(t, err, ErrDependencyCycle)
}

func TestUpdateJoinsSystemErrors(t *testing.T) {
	var trace []string
	failing := newRecording("failing", 100, &trace)
	failing.fail = errors.New("tick fault")
	m := initManager(t, failing, newRecording("healthy", 200, &trace))

	err := m.Update(0.016, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing")
	// the healthy system still ran
	require.Equal(t, []string{"failing", "healthy"}, trace)
	require.Equal(t, uint64(1), m.Metrics().ErrorsBySystem["failing"])
}

func TestRemoveDestroysSystem(t *testing.T) {
	var trace []string
	s := newRecording("doomed", 100, &trace)
	m := initManager(t, s)

	require.NoError(t, m.Remove("doomed"))
	require.Equal(t, StateDestroyed, s.State())
	require.False(t, m.Has("doomed"))
	require.ErrorIs(t, m.Remove("doomed"), ErrNotFound)
}

func TestPauseResumeAll(t *testing.T) {
	var trace []string
	m := initManager(t, newRecording("worker", 100, &trace))
	require.NoError(t, m.Update(0.016, nil))
	require.Len(t, trace, 1)

	m.PauseAll()
	require.NoError(t, m.Update(0.016, nil))
	require.Len(t, trace, 1)

	m.ResumeAll()
	require.NoError(t, m.Update(0.016, nil))
	require.Len(t, trace, 2)
}

func TestDestroyAll(t *testing.T) {
	var trace []string
	s := newRecording("a", 100, &trace)
	m := initManager(t, s)

	require.NoError(t, m.DestroyAll())
	require.Equal(t, StateDestroyed, s.State())
	require.Equal(t, 0, m.Metrics().Registered)
}

func TestManagerMetrics(t *testing.T) {
	var trace []string
	m := initManager(t, newRecording("a", 100, &trace), newRecording("b", 200, &trace))
	require.NoError(t, m.Update(0.016, nil))

	metrics := m.Metrics()
	require.Equal(t, 2, metrics.Registered)
	require.Equal(t, 2, metrics.Enabled)
	require.Equal(t, uint64(1), metrics.Ticks)
	require.GreaterOrEqual(t, metrics.TotalTickTime, metrics.LastTickTime)
}
