package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helix-engine/helix/internal/core/entity"
)

func taggedEntities(tags ...uint64) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(tags))
	for _, tag := range tags {
		e := entity.New()
		e.Activate()
		e.SetTags(tag)
		out = append(out, e)
	}
	return out
}

func TestGroupPartitionsDeterministically(t *testing.T) {
	g := NewOrderedGroup("grouped", 100, GroupConfig{},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	entities := taggedEntities(3, 1, 2, 1, 3, 1)

	var keys []uint64
	var sizes []int
	err := g.Process(context.Background(), entities, func(_ context.Context, key uint64, group []*entity.Entity) error {
		keys = append(keys, key)
		sizes = append(sizes, len(group))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, keys)
	require.Equal(t, []int{3, 1, 2}, sizes)
	require.Equal(t, 3, g.Groups())
	require.Equal(t, uint64(6), g.Processed())
}

func TestGroupMaxGroupsKeepsLargest(t *testing.T) {
	g := NewOrderedGroup("capped", 100, GroupConfig{MaxGroups: 2},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	// key 1 has three entities, key 3 has two, key 2 has one
	entities := taggedEntities(1, 1, 1, 3, 3, 2)

	var keys []uint64
	err := g.Process(context.Background(), entities, func(_ context.Context, key uint64, _ []*entity.Entity) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3}, keys)
}

func TestGroupSequentialStopsAtFirstError(t *testing.T) {
	g := NewOrderedGroup("failing", 100, GroupConfig{},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	boom := errors.New("boom")
	var visited []uint64
	err := g.Process(context.Background(), taggedEntities(1, 2, 3), func(_ context.Context, key uint64, _ []*entity.Entity) error {
		visited = append(visited, key)
		if key == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []uint64{1, 2}, visited)
}

func TestGroupParallelProcessesAllGroups(t *testing.T) {
	g := NewOrderedGroup("parallel", 100, GroupConfig{ParallelThreshold: 2, MaxParallelism: 4},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	var mu sync.Mutex
	seen := make(map[uint64]int)
	err := g.Process(context.Background(), taggedEntities(1, 2, 3, 4, 1, 2), func(_ context.Context, key uint64, group []*entity.Entity) error {
		mu.Lock()
		seen[key] = len(group)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[uint64]int{1: 2, 2: 2, 3: 1, 4: 1}, seen)
	require.Equal(t, uint64(6), g.Processed())
}

func TestGroupParallelDeadlineCancelsHungGroup(t *testing.T) {
	g := NewOrderedGroup("hung", 100,
		GroupConfig{ParallelThreshold: 1, TickDeadline: 20 * time.Millisecond},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	err := g.Process(context.Background(), taggedEntities(1, 2), func(ctx context.Context, key uint64, _ []*entity.Entity) error {
		if key == 2 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroupBelowThresholdStaysSequential(t *testing.T) {
	g := NewOrderedGroup("sequential", 100, GroupConfig{ParallelThreshold: 10},
		func(e *entity.Entity) uint64 { return e.Tags() }, nil)
	require.NoError(t, g.Initialize(context.Background(), nil))

	var keys []uint64
	err := g.Process(context.Background(), taggedEntities(2, 1, 3), func(_ context.Context, key uint64, _ []*entity.Entity) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, keys)
}
