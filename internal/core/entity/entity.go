package entity

import (
	"fmt"
	"sync/atomic"
)

// ID is an opaque entity identifier. IDs are generated monotonically for the
// lifetime of the process and are never reused, so a stale ID can always be
// detected by a failed table lookup.
type ID uint64

// InvalidID is never issued by the generator.
const InvalidID ID = 0

var idGenerator atomic.Uint64

// Flag bits describing entity state.
const (
	FlagActive uint32 = 1 << iota
	FlagDestroyed
	FlagPendingRemoval
	FlagPersistent
	FlagDebug
)

// Predefined tag bits for cheap group membership. Applications may define
// their own bits above TagUserBase.
const (
	TagPlayer uint64 = 1 << iota
	TagNPC
	TagItem
	TagBuilding
	TagSkill
	TagBuff
	TagTemporary
	TagStatic

	TagUserBase uint64 = 1 << 16
)

// Entity is an identifier plus mutable metadata. It holds no component data
// itself; components live in storage keyed by the entity ID.
//
// Metadata fields are atomics so that read-mostly inspection from another
// goroutine (monitoring, debug tooling) observes consistent values. This is a
// defense-in-depth guarantee, not a promise of multi-writer linearizability;
// structural mutation belongs to the simulation goroutine.
type Entity struct {
	id        ID
	version   atomic.Uint64
	tags      atomic.Uint64
	flags     atomic.Uint32
	archetype atomic.Uint64
}

// New issues an entity with a fresh, never-recycled ID.
func New() *Entity {
	e := &Entity{id: ID(idGenerator.Add(1))}
	e.version.Store(1)
	e.flags.Store(FlagActive)
	return e
}

// NewWithID reconstructs an entity with a known ID, for deserialization. The
// generator is advanced past the ID so future entities cannot collide.
func NewWithID(id ID) (*Entity, error) {
	if id == InvalidID {
		return nil, fmt.Errorf("entity: invalid id %d", id)
	}
	for {
		cur := idGenerator.Load()
		if uint64(id) < cur || idGenerator.CompareAndSwap(cur, uint64(id)) {
			break
		}
	}
	e := &Entity{id: id}
	e.version.Store(1)
	e.flags.Store(FlagActive)
	return e, nil
}

// ID returns the entity identifier.
func (e *Entity) ID() ID { return e.id }

// Version returns the current version counter. The counter strictly increases
// on every metadata or structural mutation and supports optimistic change
// detection by external observers.
func (e *Entity) Version() uint64 { return e.version.Load() }

// BumpVersion increments the version counter and returns the new value.
func (e *Entity) BumpVersion() uint64 { return e.version.Add(1) }

// SetVersion overwrites the version counter, for deserialization only.
func (e *Entity) SetVersion(v uint64) { e.version.Store(v) }

// Tags returns the tag bitmask.
func (e *Entity) Tags() uint64 { return e.tags.Load() }

// SetTags replaces the whole tag bitmask.
func (e *Entity) SetTags(tags uint64) {
	e.tags.Store(tags)
	e.BumpVersion()
}

// AddTag sets the given tag bits.
func (e *Entity) AddTag(tag uint64) {
	for {
		old := e.tags.Load()
		if e.tags.CompareAndSwap(old, old|tag) {
			break
		}
	}
	e.BumpVersion()
}

// RemoveTag clears the given tag bits.
func (e *Entity) RemoveTag(tag uint64) {
	for {
		old := e.tags.Load()
		if e.tags.CompareAndSwap(old, old&^tag) {
			break
		}
	}
	e.BumpVersion()
}

// HasTag reports whether any of the given tag bits are set.
func (e *Entity) HasTag(tag uint64) bool { return e.tags.Load()&tag != 0 }

// HasAllTags reports whether every given tag bit is set.
func (e *Entity) HasAllTags(tags uint64) bool { return e.tags.Load()&tags == tags }

// HasAnyTag reports whether at least one of the given tag bits is set.
func (e *Entity) HasAnyTag(tags uint64) bool { return e.tags.Load()&tags != 0 }

// ArchetypeID returns the template the entity was stamped from, or zero.
func (e *Entity) ArchetypeID() uint64 { return e.archetype.Load() }

// SetArchetypeID records the template the entity was stamped from.
func (e *Entity) SetArchetypeID(id uint64) {
	e.archetype.Store(id)
	e.BumpVersion()
}

// Flags returns the status flag word.
func (e *Entity) Flags() uint32 { return e.flags.Load() }

// AddFlag sets the given flag bits.
func (e *Entity) AddFlag(flag uint32) {
	for {
		old := e.flags.Load()
		if e.flags.CompareAndSwap(old, old|flag) {
			break
		}
	}
	e.BumpVersion()
}

// RemoveFlag clears the given flag bits.
func (e *Entity) RemoveFlag(flag uint32) {
	for {
		old := e.flags.Load()
		if e.flags.CompareAndSwap(old, old&^flag) {
			break
		}
	}
	e.BumpVersion()
}

// HasFlag reports whether any of the given flag bits are set.
func (e *Entity) HasFlag(flag uint32) bool { return e.flags.Load()&flag != 0 }

// IsActive reports whether the entity is live and not destroyed.
func (e *Entity) IsActive() bool { return e.HasFlag(FlagActive) && !e.HasFlag(FlagDestroyed) }

// IsDestroyed reports whether the entity has been physically reclaimed.
func (e *Entity) IsDestroyed() bool { return e.HasFlag(FlagDestroyed) }

// IsPendingRemoval reports whether the entity is marked for the next reap.
func (e *Entity) IsPendingRemoval() bool { return e.HasFlag(FlagPendingRemoval) }

// IsPersistent reports whether the entity should survive persistence sweeps.
func (e *Entity) IsPersistent() bool { return e.HasFlag(FlagPersistent) }

// Activate marks the entity live, clearing destruction markers.
func (e *Entity) Activate() {
	e.AddFlag(FlagActive)
	e.RemoveFlag(FlagDestroyed | FlagPendingRemoval)
}

// Destroy marks the entity destroyed. Called by the world during reclamation;
// a destroyed entity owns zero components.
func (e *Entity) Destroy() {
	e.AddFlag(FlagDestroyed)
	e.RemoveFlag(FlagActive)
}

// MarkForRemoval flags the entity for deferred reclamation at the start of
// the next tick.
func (e *Entity) MarkForRemoval() { e.AddFlag(FlagPendingRemoval) }

// SetPersistent toggles the persistence flag.
func (e *Entity) SetPersistent(persistent bool) {
	if persistent {
		e.AddFlag(FlagPersistent)
	} else {
		e.RemoveFlag(FlagPersistent)
	}
}

// String renders the entity for debugging.
func (e *Entity) String() string {
	return fmt.Sprintf("Entity(%d v%d tags=%#x flags=%#x)", e.id, e.Version(), e.Tags(), e.Flags())
}

// IsValidID reports whether id could have been issued by the generator.
func IsValidID(id ID) bool { return id != InvalidID }

// CurrentGeneratorValue exposes the ID high-water mark for diagnostics.
func CurrentGeneratorValue() uint64 { return idGenerator.Load() }
