package query

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/helix-engine/helix/internal/core/component"
	"github.com/helix-engine/helix/internal/core/entity"
)

// Source is the slice of world behavior a query needs: the live entity set
// and per-entity component masks. The world implements it.
type Source interface {
	ActiveEntities() []*entity.Entity
	ComponentMask(id entity.ID) component.Mask
}

// Builder assembles an entity filter. Filters compose by intersection:
// an entity matches when it owns every included type, none of the excluded
// ones, and satisfies the tag conditions.
type Builder struct {
	source  Source
	cache   *Cache
	include component.Mask
	exclude component.Mask
	tagAll  uint64
	tagAny  uint64
	active  bool
}

// NewBuilder starts a filter against the given source. By default only
// active entities are considered.
func NewBuilder(source Source) *Builder {
	return &Builder{source: source, active: true}
}

// Cached routes Execute through the given result cache.
func (b *Builder) Cached(cache *Cache) *Builder {
	b.cache = cache
	return b
}

// With requires every listed component type.
func (b *Builder) With(types ...component.TypeID) *Builder {
	for _, t := range types {
		b.include.Set(t)
	}
	return b
}

// Without rejects entities owning any listed component type.
func (b *Builder) Without(types ...component.TypeID) *Builder {
	for _, t := range types {
		b.exclude.Set(t)
	}
	return b
}

// WithTagsAll requires every tag bit in the mask.
func (b *Builder) WithTagsAll(tags uint64) *Builder {
	b.tagAll |= tags
	return b
}

// WithTagsAny requires at least one tag bit from the mask.
func (b *Builder) WithTagsAny(tags uint64) *Builder {
	b.tagAny |= tags
	return b
}

// IncludeInactive widens the candidate set to non-active entities.
func (b *Builder) IncludeInactive() *Builder {
	b.active = false
	return b
}

// Signature hashes the filter into a stable cache key. Two builders with the
// same conditions produce the same signature regardless of call order.
func (b *Builder) Signature() uint64 {
	var buf [8*8 + 2*8 + 1]byte
	off := 0
	for _, w := range b.include {
		binary.LittleEndian.PutUint64(buf[off:], w)
		off += 8
	}
	for _, w := range b.exclude {
		binary.LittleEndian.PutUint64(buf[off:], w)
		off += 8
	}
	binary.LittleEndian.PutUint64(buf[off:], b.tagAll)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], b.tagAny)
	off += 8
	if b.active {
		buf[off] = 1
	}
	return xxhash.Sum64(buf[:])
}

// Execute evaluates the filter, consulting the cache when one is attached.
func (b *Builder) Execute() []*entity.Entity {
	if b.cache == nil {
		return b.evaluate()
	}
	sig := b.Signature()
	if cached, ok := b.cache.Lookup(sig); ok {
		return cached
	}
	result := b.evaluate()
	b.cache.Store(sig, result)
	return result
}

// Count evaluates the filter and returns only the match count.
func (b *Builder) Count() int {
	return len(b.Execute())
}

// First returns the first match, or nil when nothing matches.
func (b *Builder) First() *entity.Entity {
	for _, e := range b.source.ActiveEntities() {
		if b.matches(e) {
			return e
		}
	}
	return nil
}

func (b *Builder) evaluate() []*entity.Entity {
	candidates := b.source.ActiveEntities()
	result := make([]*entity.Entity, 0, len(candidates))
	for _, e := range candidates {
		if b.matches(e) {
			result = append(result, e)
		}
	}
	return result
}

func (b *Builder) matches(e *entity.Entity) bool {
	if b.active && !e.IsActive() {
		return false
	}
	mask := b.source.ComponentMask(e.ID())
	if !mask.ContainsAll(b.include) {
		return false
	}
	if mask.Intersects(b.exclude) {
		return false
	}
	tags := e.Tags()
	if b.tagAll != 0 && tags&b.tagAll != b.tagAll {
		return false
	}
	if b.tagAny != 0 && tags&b.tagAny == 0 {
		return false
	}
	return true
}
