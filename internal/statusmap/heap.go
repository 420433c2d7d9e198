// Package statusmap implements monotone forward status propagation and
// usefulness back-propagation over a constructed status graph.
package statusmap

import "container/heap"

// minRankHeap is a min-heap of ranks, used as the dirty queue for forward
// propagation (lowest rank popped first).
type minRankHeap []int

func (h minRankHeap) Len() int            { return len(h) }
func (h minRankHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h minRankHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minRankHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *minRankHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// maxRankHeap is a max-heap of ranks, used as the usefulness-dirty queue
// for back-propagation (highest rank popped first).
type maxRankHeap []int

func (h maxRankHeap) Len() int            { return len(h) }
func (h maxRankHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h maxRankHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxRankHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *maxRankHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// dirtyQueue wraps a min-heap of ranks with a membership set so the same
// rank is never enqueued twice concurrently.
type dirtyQueue struct {
	h       minRankHeap
	pending map[int]bool
}

func newDirtyQueue() *dirtyQueue {
	return &dirtyQueue{pending: make(map[int]bool)}
}

func (q *dirtyQueue) push(rank int) {
	if q.pending[rank] {
		return
	}
	q.pending[rank] = true
	heap.Push(&q.h, rank)
}

func (q *dirtyQueue) pop() (int, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	r := heap.Pop(&q.h).(int)
	delete(q.pending, r)
	return r, true
}

func (q *dirtyQueue) empty() bool { return q.h.Len() == 0 }

// usefulQueue wraps a max-heap of ranks with a membership set, used for
// usefulness back-propagation.
type usefulQueue struct {
	h       maxRankHeap
	pending map[int]bool
}

func newUsefulQueue() *usefulQueue {
	return &usefulQueue{pending: make(map[int]bool)}
}

func (q *usefulQueue) push(rank int) {
	if q.pending[rank] {
		return
	}
	q.pending[rank] = true
	heap.Push(&q.h, rank)
}

func (q *usefulQueue) pop() (int, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	r := heap.Pop(&q.h).(int)
	delete(q.pending, r)
	return r, true
}

func (q *usefulQueue) empty() bool { return q.h.Len() == 0 }
