package component

import (
	"sync/atomic"
	"time"
)

// Base carries the bookkeeping shared by all components: version counter,
// creation and last-modified timestamps, and the flag word. Concrete types
// embed it and call NotifyModified from their mutators.
type Base struct {
	version  atomic.Uint64
	flags    atomic.Uint32
	created  time.Time
	modified atomic.Int64
}

// NewBase returns initialized bookkeeping. Concrete constructors call this
// and embed the result by value.
func NewBase() Base {
	now := time.Now()
	b := Base{created: now}
	b.version.Store(1)
	b.modified.Store(now.UnixNano())
	return b
}

// Version returns the component version counter. It strictly increases on
// every field mutation routed through NotifyModified.
func (b *Base) Version() uint64 { return b.version.Load() }

// Flags returns the component flag word.
func (b *Base) Flags() uint32 { return b.flags.Load() }

// CreatedAt returns the creation timestamp.
func (b *Base) CreatedAt() time.Time { return b.created }

// ModifiedAt returns the last-modified timestamp.
func (b *Base) ModifiedAt() time.Time { return time.Unix(0, b.modified.Load()) }

// NotifyModified bumps the version, refreshes the modified timestamp, and
// marks the component dirty. Mutators call it after every field change.
func (b *Base) NotifyModified() {
	b.version.Add(1)
	b.modified.Store(time.Now().UnixNano())
	b.AddFlag(FlagDirty)
}

// AddFlag sets the given flag bits without touching the version.
func (b *Base) AddFlag(flag uint32) {
	for {
		old := b.flags.Load()
		if b.flags.CompareAndSwap(old, old|flag) {
			return
		}
	}
}

// RemoveFlag clears the given flag bits.
func (b *Base) RemoveFlag(flag uint32) {
	for {
		old := b.flags.Load()
		if b.flags.CompareAndSwap(old, old&^flag) {
			return
		}
	}
}

// HasFlag reports whether any of the given flag bits are set.
func (b *Base) HasFlag(flag uint32) bool { return b.flags.Load()&flag != 0 }

// ClearDirty clears the dirty bit, typically after a persistence sweep.
func (b *Base) ClearDirty() { b.RemoveFlag(FlagDirty) }

// ResetBase returns the bookkeeping to its pristine state. Concrete Reset
// implementations call it first.
func (b *Base) ResetBase() {
	now := time.Now()
	b.version.Store(1)
	b.flags.Store(0)
	b.created = now
	b.modified.Store(now.UnixNano())
}

// CloneBase returns fresh bookkeeping for an independently owned copy. The
// clone starts at version 1 regardless of the source's history.
func (b *Base) CloneBase() Base {
	nb := NewBase()
	nb.flags.Store(b.flags.Load() &^ FlagDirty)
	return nb
}
