package search

import (
	"container/heap"
	"sort"
)

// Candidate is one scored match. Block and Pos locate the matched entry in
// the caller's snapshot and take no part in ranking.
type Candidate struct {
	Score  int
	Length int
	Order  int
	Block  int
	Pos    int
}

// Better reports whether c ranks ahead of o: higher score, then shorter
// name, then earlier discovery order.
func (c Candidate) Better(o Candidate) bool {
	if c.Score != o.Score {
		return c.Score > o.Score
	}
	if c.Length != o.Length {
		return c.Length < o.Length
	}
	return c.Order < o.Order
}

// Selector keeps the best limit candidates seen so far in a min-heap whose
// root is the current worst, so memory stays bounded by the limit.
type Selector struct {
	limit int
	h     worstFirst
}

// NewSelector creates a selector for at most limit candidates.
func NewSelector(limit int) *Selector {
	if limit < 0 {
		limit = 0
	}
	capacity := limit
	if capacity > 1024 {
		capacity = 1024
	}
	return &Selector{limit: limit, h: make(worstFirst, 0, capacity)}
}

// Offer considers one candidate.
func (s *Selector) Offer(c Candidate) {
	if s.limit == 0 {
		return
	}
	if len(s.h) < s.limit {
		heap.Push(&s.h, c)
		return
	}
	if c.Better(s.h[0]) {
		s.h[0] = c
		heap.Fix(&s.h, 0)
	}
}

// Len returns the number of retained candidates.
func (s *Selector) Len() int { return len(s.h) }

// Results drains the selector, best first.
func (s *Selector) Results() []Candidate {
	out := make([]Candidate, len(s.h))
	copy(out, s.h)
	s.h = s.h[:0]
	Sort(out)
	return out
}

// Sort orders candidates best first.
func Sort(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Better(cs[j]) })
}

type worstFirst []Candidate

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return h[j].Better(h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
