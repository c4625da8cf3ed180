package linkcheck

import "iter"

// Occurrences maps each distinct item to the number of times it was seen and
// remembers the order in which items first appeared.
type Occurrences[T comparable] struct {
	order  []T
	counts map[T]int
}

// Count tallies items. It is pure and never fails.
func Count[T comparable](items []T) Occurrences[T] {
	occ := Occurrences[T]{counts: make(map[T]int, len(items))}
	for _, item := range items {
		if _, seen := occ.counts[item]; !seen {
			occ.order = append(occ.order, item)
		}
		occ.counts[item]++
	}
	return occ
}

// Len returns the number of distinct items.
func (o Occurrences[T]) Len() int {
	return len(o.order)
}

// Count returns how often item occurred, or zero.
func (o Occurrences[T]) Count(item T) int {
	return o.counts[item]
}

// Keys returns the distinct items in first-seen order.
func (o Occurrences[T]) Keys() []T {
	return append([]T(nil), o.order...)
}

// All iterates over (item, count) pairs in first-seen order.
func (o Occurrences[T]) All() iter.Seq2[T, int] {
	return func(yield func(T, int) bool) {
		for _, item := range o.order {
			if !yield(item, o.counts[item]) {
				return
			}
		}
	}
}

// Map returns a copy of the counts keyed by item.
func (o Occurrences[T]) Map() map[T]int {
	out := make(map[T]int, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}
