package component

import "time"

// TypeID identifies a component type. IDs are small integers assigned once
// per process via explicit registration; they are stable for the process
// lifetime but not across restarts unless registration order is fixed, which
// is why serialization must go through the registry's names.
type TypeID uint32

// InvalidTypeID is never assigned by the registry.
const InvalidTypeID TypeID = 0

// Flag bits carried by every component.
const (
	FlagDirty uint32 = 1 << iota
	FlagPersistent
	FlagTemporary
	FlagReadOnly
	FlagDebug
)

// Component is a typed, versioned, poolable data record attached to exactly
// one entity at a time.
//
// Reset returns the instance to its pristine default state for pool reuse.
// Clone produces a value-identical but independently owned copy with a fresh
// version. IsValid lets the component self-check invariants. Size reports an
// estimated byte footprint for capacity planning.
type Component interface {
	TypeID() TypeID
	Version() uint64
	Flags() uint32
	CreatedAt() time.Time
	ModifiedAt() time.Time
	Reset()
	Clone() Component
	IsValid() bool
	Size() int
}
