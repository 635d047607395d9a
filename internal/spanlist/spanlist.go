// Package spanlist provides a free-list of integer indices kept as sorted
// spans of contiguous ranges. Adjacent indices coalesce on insert, and the
// highest free index pops in constant time, so index allocators that free in
// clusters (such as recycled octree child groups) stay compact.
package spanlist

import "iter"

// sentinelIndex can never be pushed; it backs the guard span at the front.
const sentinelIndex = ^uint32(0)

type span struct {
	lo, hi uint32 // inclusive
}

// List holds disjoint spans sorted descending by start, with a guard span at
// the front so coalescing never needs a bounds check on its predecessor.
// The zero value is an empty list ready for use.
type List struct {
	spans []span
	count int
}

func (l *List) init() {
	if len(l.spans) == 0 {
		l.spans = append(l.spans, span{lo: sentinelIndex, hi: sentinelIndex})
	}
}

// Len returns the number of free indices.
func (l *List) Len() int { return l.count }

// Empty reports whether no index is free.
func (l *List) Empty() bool { return l.count == 0 }

// Reset discards all free indices but keeps the backing capacity.
func (l *List) Reset() {
	if len(l.spans) > 0 {
		l.spans = l.spans[:1]
	}
	l.count = 0
}

// Push adds index i to the list, coalescing with adjacent spans. Pushing an
// index that is already free corrupts the list; callers guarantee freshness.
func (l *List) Push(i uint32) {
	l.init()

	// Find the first span starting at or below i+1. The guard span keeps
	// j >= 1, so the slots above the insertion point always exist.
	j := 1
	for j < len(l.spans) && l.spans[j].lo > i+1 {
		j++
	}

	switch {
	case j < len(l.spans) && l.spans[j].lo == i+1:
		// i extends span j downward.
		l.spans[j].lo = i
		if j+1 < len(l.spans) && l.spans[j+1].hi+1 == i {
			// i filled the whole gap; merge with the span below.
			l.spans[j].lo = l.spans[j+1].lo
			l.spans = append(l.spans[:j+1], l.spans[j+2:]...)
		}
	case j < len(l.spans) && l.spans[j].hi+1 == i:
		// i extends span j upward. The span above starts at i+2 or
		// higher, so no second merge is possible.
		l.spans[j].hi = i
	default:
		l.spans = append(l.spans, span{})
		copy(l.spans[j+1:], l.spans[j:])
		l.spans[j] = span{lo: i, hi: i}
	}
	l.count++
}

// Pop removes and returns the highest free index. The second return is false
// when the list is empty.
func (l *List) Pop() (uint32, bool) {
	if l.count == 0 {
		return 0, false
	}

	s := &l.spans[1]
	i := s.hi
	if s.hi == s.lo {
		l.spans = append(l.spans[:1], l.spans[2:]...)
	} else {
		s.hi--
	}
	l.count--
	return i, true
}

// All iterates every free index, span by span.
func (l *List) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for j := 1; j < len(l.spans); j++ {
			for i := l.spans[j].lo; ; i++ {
				if !yield(i) {
					return
				}
				if i == l.spans[j].hi {
					break
				}
			}
		}
	}
}
