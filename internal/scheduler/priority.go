package scheduler

// Priority is a solver task's scheduling priority triple (spec §4.8 step
// 5): (entity_priority, -solve_order_index, -dependency_order). Dispatch
// prefers, in order: higher entity priority, lower solve-order index,
// lower dependency order (earlier sinks in the status graph run first).
type Priority struct {
	EntityPriority  int
	SolveOrderIndex int
	DependencyOrder int
}

// Positive reports whether this priority belongs to the positive bucket.
// Priority zero is treated as negative (spec §9 resolved open question).
func (p Priority) Positive() bool {
	return p.EntityPriority > 0
}

// better reports whether p should dispatch before o.
func (p Priority) better(o Priority) bool {
	if p.EntityPriority != o.EntityPriority {
		return p.EntityPriority > o.EntityPriority
	}
	if p.SolveOrderIndex != o.SolveOrderIndex {
		return p.SolveOrderIndex < o.SolveOrderIndex
	}
	return p.DependencyOrder < o.DependencyOrder
}

// dispatchQueue is a binary max-heap (by better-ness) over pending
// dispatch entries, used to order solver-task spawns within the scheduler
// thread's single-threaded dispatch loop.
type dispatchQueue struct {
	items []*taskState
}

func (q *dispatchQueue) push(t *taskState) {
	q.items = append(q.items, t)
	i := len(q.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !q.items[i].priority.better(q.items[parent].priority) {
			break
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *dispatchQueue) pop() (*taskState, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	top := q.items[0]
	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items = q.items[:last]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		best := i
		if left < len(q.items) && q.items[left].priority.better(q.items[best].priority) {
			best = left
		}
		if right < len(q.items) && q.items[right].priority.better(q.items[best].priority) {
			best = right
		}
		if best == i {
			break
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
	return top, true
}

func (q *dispatchQueue) empty() bool { return len(q.items) == 0 }
