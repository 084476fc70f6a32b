// Package sequence provides a small chainable wrapper over iter.Seq for
// slice and map pipelines.
package sequence

import (
	"iter"
	"sort"
)

// Iterator chains lazy transformations over a sequence of T. Terminal
// operations such as Collect drain it.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// FromMap wraps the values of a map, in map iteration order.
func FromMap[K comparable, T any](data map[K]T) *Iterator[T] {
	return &Iterator[T]{seq: func(yield func(T) bool) {
		for _, v := range data {
			if !yield(v) {
				return
			}
		}
	}}
}

func from[T any](data []T) *Iterator[T] {
	return &Iterator[T]{seq: func(yield func(T) bool) {
		for _, v := range data {
			if !yield(v) {
				return
			}
		}
	}}
}

// Sort materializes the sequence and orders it with a stable sort.
func (i *Iterator[T]) Sort(less func(a, b T) bool) *Iterator[T] {
	data := i.Collect()
	sort.SliceStable(data, func(a, b int) bool { return less(data[a], data[b]) })
	return from(data)
}

// Collect drains the sequence into a slice.
func (i *Iterator[T]) Collect() []T {
	var out []T
	i.seq(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}
