package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/helix-engine/helix/internal/core/observability/log"
)

// Cache-line sizing defaults.
const (
	DefaultCacheLineSize = 64
	DefaultChunkCapacity = 1024
)

// ErrOutOfMemory is returned when an allocation finds no free slot and the
// pool has reached its chunk ceiling. The condition is fatal for that
// request; the layout never retries internally.
var ErrOutOfMemory = errors.New("memory: component pool exhausted")

// PoolConfig sizes the chunk pool for one component type.
type PoolConfig struct {
	InitialChunks     int  `yaml:"initial_chunks"`
	MaxChunks         int  `yaml:"max_chunks"`
	ChunkCapacity     int  `yaml:"chunk_capacity"`
	CacheLineSize     int  `yaml:"cache_line_size"`
	HotDataSeparation bool `yaml:"hot_data_separation"`
}

// DefaultPoolConfig mirrors the engine defaults: four warm chunks, a 64-chunk
// ceiling, and hot/cold separation enabled.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		InitialChunks:     4,
		MaxChunks:         64,
		ChunkCapacity:     DefaultChunkCapacity,
		CacheLineSize:     DefaultCacheLineSize,
		HotDataSeparation: true,
	}
}

func (c PoolConfig) normalized() PoolConfig {
	if c.InitialChunks < 0 {
		c.InitialChunks = 0
	}
	if c.MaxChunks <= 0 {
		c.MaxChunks = 1
	}
	if c.ChunkCapacity <= 0 {
		c.ChunkCapacity = DefaultChunkCapacity
	}
	if c.CacheLineSize <= 0 {
		c.CacheLineSize = DefaultCacheLineSize
	}
	return c
}

// Chunk is a fixed-capacity, cache-line-aligned block of component backing
// storage. Slots are handed out from a bump pointer first and from a free
// list after slots have been released, so arbitrary-position deallocation is
// safe.
type Chunk struct {
	buf         []byte
	typeID      uint32
	elementSize int
	capacity    int
	used        int
	free        []int
}

func newChunk(typeID uint32, elementSize, capacity, cacheLine int) *Chunk {
	aligned := alignTo(elementSize*capacity, cacheLine)
	return &Chunk{
		buf:         make([]byte, aligned),
		typeID:      typeID,
		elementSize: elementSize,
		capacity:    capacity,
	}
}

// HasSpace reports whether the chunk can hand out another slot.
func (c *Chunk) HasSpace() bool { return len(c.free) > 0 || c.used < c.capacity }

// allocate returns a slot index, or -1 when full.
func (c *Chunk) allocate() int {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		return idx
	}
	if c.used < c.capacity {
		idx := c.used
		c.used++
		return idx
	}
	return -1
}

// release returns a slot to the free list.
func (c *Chunk) release(index int) {
	if index < 0 || index >= c.used {
		return
	}
	if index == c.used-1 {
		c.used--
		return
	}
	c.free = append(c.free, index)
}

// Live returns the number of occupied slots.
func (c *Chunk) Live() int { return c.used - len(c.free) }

// Capacity returns the slot capacity.
func (c *Chunk) Capacity() int { return c.capacity }

// ElementSize returns the aligned per-slot byte size.
func (c *Chunk) ElementSize() int { return c.elementSize }

// Bytes returns the total byte footprint of the chunk.
func (c *Chunk) Bytes() int { return len(c.buf) }

// Allocation is a handle to one slot inside a chunk.
type Allocation struct {
	chunk *Chunk
	index int
	size  int
	hot   bool
}

// Index returns the slot index inside the chunk.
func (a Allocation) Index() int { return a.index }

// Size returns the slot byte size.
func (a Allocation) Size() int { return a.size }

// Hot reports whether the slot came from the hot chunk.
func (a Allocation) Hot() bool { return a.hot }

// Statistics accumulates global counters for capacity tuning.
type Statistics struct {
	AllocatedBytes atomic.Int64
	UsedBytes      atomic.Int64
	ChunkCount     atomic.Int64
	HotHits        atomic.Int64
	HotMisses      atomic.Int64
}

// UtilizationRate returns used/allocated, or zero when nothing is allocated.
func (s *Statistics) UtilizationRate() float64 {
	allocated := s.AllocatedBytes.Load()
	if allocated <= 0 {
		return 0
	}
	return float64(s.UsedBytes.Load()) / float64(allocated)
}

// HotHitRate returns the fraction of hot allocations served from the hot chunk.
func (s *Statistics) HotHitRate() float64 {
	total := s.HotHits.Load() + s.HotMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(s.HotHits.Load()) / float64(total)
}

// TypeInfo summarizes the pool of one component type.
type TypeInfo struct {
	TypeID        uint32
	ChunkCount    int
	TotalCapacity int
	TotalLive     int
	TotalBytes    int
}

// UtilizationRate returns live/capacity for the type.
func (i TypeInfo) UtilizationRate() float64 {
	if i.TotalCapacity == 0 {
		return 0
	}
	return float64(i.TotalLive) / float64(i.TotalCapacity)
}

type typePool struct {
	config   PoolConfig
	elemSize int
	hot      *Chunk
	cold     []*Chunk
}

// Layout allocates component backing storage in cache-line-aligned chunks and
// optionally splits each type into a small hot chunk and bulk cold chunks.
// Allocation prefers hot and falls back to cold transparently.
type Layout struct {
	mu            sync.Mutex
	pools         map[uint32]*typePool
	configs       map[uint32]PoolConfig
	defaultConfig PoolConfig
	stats         Statistics
	logger        log.Log
}

// NewLayout builds an empty layout with the given defaults.
func NewLayout(defaultConfig PoolConfig, logger log.Log) *Layout {
	if logger == nil {
		logger = log.Nop()
	}
	return &Layout{
		pools:         make(map[uint32]*typePool),
		configs:       make(map[uint32]PoolConfig),
		defaultConfig: defaultConfig.normalized(),
		logger:        logger.With(log.String("module", "memory")),
	}
}

// ConfigurePool overrides the pool config for one type and warms it.
func (l *Layout) ConfigurePool(typeID uint32, elementSize int, config PoolConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[typeID] = config.normalized()
	l.initPoolLocked(typeID, elementSize)
}

// Allocate hands out one slot for the given type. Hot allocations prefer the
// small hot chunk and fall back to cold when it is full.
func (l *Layout) Allocate(typeID uint32, elementSize int, hot bool) (Allocation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool := l.pools[typeID]
	if pool == nil {
		pool = l.initPoolLocked(typeID, elementSize)
	}

	if hot && pool.config.HotDataSeparation && pool.hot != nil {
		if pool.hot.HasSpace() {
			idx := pool.hot.allocate()
			l.stats.HotHits.Add(1)
			l.stats.UsedBytes.Add(int64(pool.hot.elementSize))
			return Allocation{chunk: pool.hot, index: idx, size: pool.hot.elementSize, hot: true}, nil
		}
		l.stats.HotMisses.Add(1)
	}

	for _, chunk := range pool.cold {
		if chunk.HasSpace() {
			idx := chunk.allocate()
			l.stats.UsedBytes.Add(int64(chunk.elementSize))
			return Allocation{chunk: chunk, index: idx, size: chunk.elementSize}, nil
		}
	}

	if len(pool.cold) < pool.config.MaxChunks {
		chunk := l.growLocked(typeID, pool)
		idx := chunk.allocate()
		l.stats.UsedBytes.Add(int64(chunk.elementSize))
		return Allocation{chunk: chunk, index: idx, size: chunk.elementSize}, nil
	}

	return Allocation{}, fmt.Errorf("%w: type=%d chunks=%d", ErrOutOfMemory, typeID, len(pool.cold))
}

// Free releases a slot back to its chunk.
func (l *Layout) Free(a Allocation) {
	if a.chunk == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a.chunk.release(a.index)
	l.stats.UsedBytes.Add(-int64(a.size))
}

// Defragment drops fully-empty cold chunks for the given type.
func (l *Layout) Defragment(typeID uint32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	pool := l.pools[typeID]
	if pool == nil {
		return 0
	}
	kept := pool.cold[:0]
	dropped := 0
	for _, chunk := range pool.cold {
		if chunk.Live() == 0 {
			dropped++
			l.stats.ChunkCount.Add(-1)
			l.stats.AllocatedBytes.Add(-int64(chunk.Bytes()))
			continue
		}
		kept = append(kept, chunk)
	}
	pool.cold = kept
	if dropped > 0 {
		l.logger.Info("defragmented component pool",
			log.Uint32("type", typeID), log.Int("dropped_chunks", dropped))
	}
	return dropped
}

// PreWarm initializes pools for every configured type.
func (l *Layout) PreWarm(elementSizes map[uint32]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for typeID := range l.configs {
		size, ok := elementSizes[typeID]
		if !ok {
			size = DefaultCacheLineSize
		}
		if l.pools[typeID] == nil {
			l.initPoolLocked(typeID, size)
		}
	}
}

// Stats exposes the global counters.
func (l *Layout) Stats() *Statistics { return &l.stats }

// TypeInfos summarizes every pool, ordered by type id.
func (l *Layout) TypeInfos() []TypeInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TypeInfo, 0, len(l.pools))
	for typeID, pool := range l.pools {
		info := TypeInfo{TypeID: typeID}
		chunks := pool.cold
		if pool.hot != nil {
			chunks = append([]*Chunk{pool.hot}, chunks...)
		}
		for _, chunk := range chunks {
			info.ChunkCount++
			info.TotalCapacity += chunk.capacity
			info.TotalLive += chunk.Live()
			info.TotalBytes += chunk.Bytes()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}

// Cleanup drops every pool.
func (l *Layout) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pools = make(map[uint32]*typePool)
	l.stats.AllocatedBytes.Store(0)
	l.stats.UsedBytes.Store(0)
	l.stats.ChunkCount.Store(0)
}

func (l *Layout) initPoolLocked(typeID uint32, elementSize int) *typePool {
	config, ok := l.configs[typeID]
	if !ok {
		config = l.defaultConfig
	}
	elemSize := alignTo(elementSize, config.CacheLineSize)
	pool := &typePool{config: config, elemSize: elemSize}
	for i := 0; i < config.InitialChunks; i++ {
		chunk := newChunk(typeID, elemSize, config.ChunkCapacity, config.CacheLineSize)
		pool.cold = append(pool.cold, chunk)
		l.stats.AllocatedBytes.Add(int64(chunk.Bytes()))
		l.stats.ChunkCount.Add(1)
	}
	if config.HotDataSeparation {
		hotCapacity := config.ChunkCapacity / 4
		if hotCapacity < 1 {
			hotCapacity = 1
		}
		pool.hot = newChunk(typeID, elemSize, hotCapacity, config.CacheLineSize)
		l.stats.AllocatedBytes.Add(int64(pool.hot.Bytes()))
		l.stats.ChunkCount.Add(1)
	}
	l.pools[typeID] = pool
	l.logger.Debug("component pool initialized",
		log.Uint32("type", typeID), log.Int("chunks", config.InitialChunks), log.Int("element_size", elemSize))
	return pool
}

func (l *Layout) growLocked(typeID uint32, pool *typePool) *Chunk {
	chunk := newChunk(typeID, pool.elemSize, pool.config.ChunkCapacity, pool.config.CacheLineSize)
	pool.cold = append(pool.cold, chunk)
	l.stats.AllocatedBytes.Add(int64(chunk.Bytes()))
	l.stats.ChunkCount.Add(1)
	return chunk
}

func alignTo(size, boundary int) int {
	if boundary <= 0 {
		boundary = DefaultCacheLineSize
	}
	return (size + boundary - 1) / boundary * boundary
}
