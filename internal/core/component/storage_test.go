package component

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/memory"
)

func TestStorageAttachGet(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	stored, err := s.Attach(e.ID(), newCounter(5))
	require.NoError(t, err)
	require.Equal(t, 5, stored.(*counter).count)

	got, ok := s.Get(e.ID(), counterType)
	require.True(t, ok)
	require.Same(t, stored, got)
	require.True(t, s.Has(e.ID(), counterType))
	require.True(t, s.MaskOf(e.ID()).Has(counterType))
	require.Equal(t, 1, s.CountByType(counterType))
}

func TestStorageAttachRejectsBadComponents(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	_, err := s.Attach(e.ID(), nil)
	require.ErrorIs(t, err, ErrNilComponent)

	_, err = s.Attach(e.ID(), newCounter(-1))
	require.ErrorIs(t, err, ErrInvalidComponent)
}

func TestStorageAttachReplacesSameType(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	first, err := s.Attach(e.ID(), newCounter(1))
	require.NoError(t, err)
	_, err = s.Attach(e.ID(), newCounter(2))
	require.NoError(t, err)

	got, _ := s.Get(e.ID(), counterType)
	require.Equal(t, 2, got.(*counter).count)
	require.Equal(t, 1, s.CountByType(counterType))

	// the replaced instance was reset and recycled
	require.Equal(t, 0, first.(*counter).count)
	require.Equal(t, 1, s.PooledCount(counterType))
}

func TestStorageDetachReturnsCopyAndRecycles(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	original, err := s.Attach(e.ID(), newCounter(7))
	require.NoError(t, err)

	removed := s.Detach(e.ID(), counterType)
	require.NotNil(t, removed)
	require.Equal(t, 7, removed.(*counter).count)
	require.NotSame(t, original, removed)

	// the stored instance went back to the pool reset
	require.Equal(t, 0, original.(*counter).count)
	require.Equal(t, 1, s.PooledCount(counterType))

	require.False(t, s.Has(e.ID(), counterType))
	require.True(t, s.MaskOf(e.ID()).IsEmpty())
	require.Nil(t, s.Detach(e.ID(), counterType))
}

func TestStorageAcquireRecyclesPooledInstances(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	attached, err := s.Attach(e.ID(), newCounter(3))
	require.NoError(t, err)
	s.Detach(e.ID(), counterType)
	require.Equal(t, 1, s.PooledCount(counterType))

	recycled, err := s.Acquire(counterType)
	require.NoError(t, err)
	require.Same(t, attached, recycled)
	require.Equal(t, 0, recycled.(*counter).count)
	require.Equal(t, 0, s.PooledCount(counterType))

	fresh, err := s.Acquire(counterType)
	require.NoError(t, err)
	require.NotSame(t, recycled, fresh)
}

func TestStoragePoolCapacityBound(t *testing.T) {
	s := NewStorage(1, nil, nil)
	e := entity.New()

	for i := 0; i < 3; i++ {
		_, err := s.Attach(e.ID(), newCounter(i))
		require.NoError(t, err)
		s.Detach(e.ID(), counterType)
	}
	require.Equal(t, 1, s.PooledCount(counterType))
}

func TestStorageDetachAll(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	_, err := s.Attach(e.ID(), newCounter(1))
	require.NoError(t, err)
	require.Equal(t, 1, s.DetachAll(e.ID()))
	require.Empty(t, s.All(e.ID()))
	require.Equal(t, 0, s.DetachAll(e.ID()))
}

func TestStorageClear(t *testing.T) {
	s := NewStorage(16, nil, nil)
	e := entity.New()

	_, err := s.Attach(e.ID(), newCounter(1))
	require.NoError(t, err)
	s.Clear()
	require.False(t, s.Has(e.ID(), counterType))
	require.Equal(t, 0, s.CountByType(counterType))
	require.Equal(t, 0, s.PooledCount(counterType))
}

func TestStorageAttachExhaustionKeepsPreviousComponent(t *testing.T) {
	layout := memory.NewLayout(memory.PoolConfig{
		InitialChunks:     1,
		MaxChunks:         1,
		ChunkCapacity:     4,
		CacheLineSize:     64,
		HotDataSeparation: true,
	}, nil)
	s := NewStorage(16, layout, nil)

	// the dirty instance takes the single hot slot
	e := entity.New()
	hot := newCounter(7)
	hot.AddFlag(FlagDirty)
	_, err := s.Attach(e.ID(), hot)
	require.NoError(t, err)

	// fill the only cold chunk
	for i := 0; i < 4; i++ {
		_, err = s.Attach(entity.New().ID(), newCounter(i))
		require.NoError(t, err)
	}

	// the replacement wants a cold slot and none is left; the attach must
	// fail without dislodging the component already in place
	_, err = s.Attach(e.ID(), newCounter(99))
	require.ErrorIs(t, err, memory.ErrOutOfMemory)

	got, ok := s.Get(e.ID(), counterType)
	require.True(t, ok)
	require.Equal(t, 7, got.(*counter).count)
	require.True(t, s.MaskOf(e.ID()).Has(counterType))
	require.Equal(t, 0, s.PooledCount(counterType), "nothing was recycled")
}

func TestStorageLayoutAccounting(t *testing.T) {
	layout := memory.NewLayout(memory.DefaultPoolConfig(), nil)
	s := NewStorage(16, layout, nil)
	e := entity.New()

	_, err := s.Attach(e.ID(), newCounter(1))
	require.NoError(t, err)
	require.Greater(t, layout.Stats().UsedBytes.Load(), int64(0))

	s.Detach(e.ID(), counterType)
	require.Equal(t, int64(0), layout.Stats().UsedBytes.Load())
}
