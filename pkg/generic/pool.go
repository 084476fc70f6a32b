package generic

import "sync"

// Pool is a capacity-bounded object pool. Unlike sync.Pool it never drops
// items under GC pressure and it refuses items past its capacity, which lets
// callers implement discard-at-capacity recycling policies.
type Pool[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	generate func() T
}

// NewPool builds an empty pool. A capacity of zero or less means unbounded.
func NewPool[T any](generate func() T, capacity int) *Pool[T] {
	return &Pool[T]{
		capacity: capacity,
		generate: generate,
	}
}

// NewHotPool builds a pool pre-filled with hotSize generated items.
func NewHotPool[T any](generate func() T, capacity, hotSize int) *Pool[T] {
	p := NewPool(generate, capacity)
	if capacity > 0 && hotSize > capacity {
		hotSize = capacity
	}
	for i := 0; i < hotSize; i++ {
		p.items = append(p.items, generate())
	}
	return p
}

// Get pops a pooled item, or generates a fresh one when the pool is empty.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	if n := len(p.items); n > 0 {
		v := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()
	return p.generate()
}

// TryGet pops a pooled item without generating. The second result reports
// whether an item was available.
func (p *Pool[T]) TryGet() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.items); n > 0 {
		v := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		return v, true
	}
	var zero T
	return zero, false
}

// Put returns an item to the pool. It reports false when the pool is at
// capacity and the item was discarded.
func (p *Pool[T]) Put(value T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity > 0 && len(p.items) >= p.capacity {
		return false
	}
	p.items = append(p.items, value)
	return true
}

// Len returns the number of pooled items.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
