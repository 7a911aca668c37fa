package edgequeue

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

type entry struct {
	priority float64
	id       EdgeID
}

// compareEntries orders by priority, then by edge id so that ties pop in a
// reproducible order
func compareEntries(a, b interface{}) int {
	ea := a.(entry)
	eb := b.(entry)
	switch {
	case ea.priority < eb.priority:
		return -1
	case ea.priority > eb.priority:
		return 1
	case ea.id < eb.id:
		return -1
	case ea.id > eb.id:
		return 1
	}
	return 0
}

// Queue is a min-priority queue of edges that holds at most one entry per edge
// and supports removal of arbitrary entries
type Queue struct {
	tree     *redblacktree.Tree
	priority map[EdgeID]float64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		tree:     redblacktree.NewWith(compareEntries),
		priority: make(map[EdgeID]float64),
	}
}

// Insert queues an edge, replacing any entry it already has
func (q *Queue) Insert(id EdgeID, priority float64) {
	q.Remove(id)
	q.tree.Put(entry{priority: priority, id: id}, nil)
	q.priority[id] = priority
}

// Remove drops the entry of an edge and reports whether it was queued
func (q *Queue) Remove(id EdgeID) bool {
	p, ok := q.priority[id]
	if !ok {
		return false
	}
	q.tree.Remove(entry{priority: p, id: id})
	delete(q.priority, id)
	return true
}

// PopMin removes and returns the edge with the smallest priority
func (q *Queue) PopMin() (EdgeID, float64, bool) {
	node := q.tree.Left()
	if node == nil {
		return 0, 0, false
	}
	e := node.Key.(entry)
	q.tree.Remove(e)
	delete(q.priority, e.id)
	return e.id, e.priority, true
}

// Len returns the number of queued edges
func (q *Queue) Len() int {
	return len(q.priority)
}

// IsEmpty reports whether the queue has no entries
func (q *Queue) IsEmpty() bool {
	return len(q.priority) == 0
}
