package system

import (
	"cmp"
	"context"
	"sort"
	"time"

	"github.com/helix-engine/helix/internal/core/entity"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/pkg/concurrent"
)

// GroupConfig controls partitioned processing.
type GroupConfig struct {
	// ParallelThreshold enables parallel group processing once the group
	// count reaches it; zero keeps processing strictly sequential.
	ParallelThreshold int
	// MaxParallelism bounds the worker count in parallel mode; zero means
	// one worker per group.
	MaxParallelism int
	// MaxGroups caps how many groups are processed per tick, keeping the
	// largest ones; zero means unlimited.
	MaxGroups int
	// TickDeadline bounds one parallel processing pass; a group that
	// overruns it cancels the remaining work instead of hanging the tick.
	// Zero applies no deadline. Sequential processing is not bounded.
	TickDeadline time.Duration
}

// GroupHandler processes one group of entities sharing a key.
type GroupHandler[K comparable] func(ctx context.Context, key K, entities []*entity.Entity) error

// Group is a scheduling base that partitions a matched entity set by a
// caller-supplied key before processing group by group. Sequential
// processing visits groups in the comparator's order, so results are
// deterministic; parallel mode trades that ordering for throughput.
type Group[K comparable] struct {
	*Base
	cfg   GroupConfig
	keyOf func(*entity.Entity) K
	less  func(a, b K) bool

	groups    int
	lastKeys  []K
	processed uint64
}

// NewGroup builds the embedded core of a grouping system. less orders the
// groups for sequential processing and for the MaxGroups tie-break.
func NewGroup[K comparable](name string, priority int, cfg GroupConfig, keyOf func(*entity.Entity) K, less func(a, b K) bool, logger log.Log, deps ...string) *Group[K] {
	return &Group[K]{
		Base:  NewBase(name, priority, logger, deps...),
		cfg:   cfg,
		keyOf: keyOf,
		less:  less,
	}
}

// NewOrderedGroup is NewGroup for naturally ordered key types.
func NewOrderedGroup[K cmp.Ordered](name string, priority int, cfg GroupConfig, keyOf func(*entity.Entity) K, logger log.Log, deps ...string) *Group[K] {
	return NewGroup(name, priority, cfg, keyOf, func(a, b K) bool { return a < b }, logger, deps...)
}

// Process partitions the entities and runs the handler per group. Concrete
// systems call it from inside Execute.
func (g *Group[K]) Process(ctx context.Context, entities []*entity.Entity, handler GroupHandler[K]) error {
	buckets := make(map[K][]*entity.Entity)
	for _, e := range entities {
		k := g.keyOf(e)
		buckets[k] = append(buckets[k], e)
	}

	keys := make([]K, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	if g.less != nil {
		sort.Slice(keys, func(i, j int) bool { return g.less(keys[i], keys[j]) })
	}

	if g.cfg.MaxGroups > 0 && len(keys) > g.cfg.MaxGroups {
		// keep the largest groups, then restore the comparator's order
		sort.SliceStable(keys, func(i, j int) bool { return len(buckets[keys[i]]) > len(buckets[keys[j]]) })
		keys = keys[:g.cfg.MaxGroups]
		if g.less != nil {
			sort.Slice(keys, func(i, j int) bool { return g.less(keys[i], keys[j]) })
		}
	}

	g.groups = len(keys)
	g.lastKeys = keys

	if g.cfg.ParallelThreshold > 0 && len(keys) >= g.cfg.ParallelThreshold {
		return g.processParallel(ctx, keys, buckets, handler)
	}

	for _, k := range keys {
		if err := handler(ctx, k, buckets[k]); err != nil {
			return err
		}
		g.processed += uint64(len(buckets[k]))
	}
	return nil
}

// Groups returns the group count of the last Process call.
func (g *Group[K]) Groups() int { return g.groups }

// LastKeys returns the keys processed by the last Process call, in
// processing order for the sequential path.
func (g *Group[K]) LastKeys() []K { return g.lastKeys }

// Processed returns the cumulative number of entities handled.
func (g *Group[K]) Processed() uint64 { return g.processed }

func (g *Group[K]) processParallel(ctx context.Context, keys []K, buckets map[K][]*entity.Entity, handler GroupHandler[K]) error {
	if g.cfg.TickDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.TickDeadline)
		defer cancel()
	}
	workers := g.cfg.MaxParallelism
	if workers <= 0 {
		workers = len(keys)
	}
	g.logger.Debug("processing groups in parallel",
		log.Int("groups", len(keys)), log.Int("workers", workers))

	err := concurrent.ForEach(ctx, keys, workers, func(ctx context.Context, k K) error {
		return handler(ctx, k, buckets[k])
	})
	if err == nil {
		for _, k := range keys {
			g.processed += uint64(len(buckets[k]))
		}
	}
	return err
}
