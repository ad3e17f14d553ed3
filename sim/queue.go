package sim

import "container/heap"

// eventQueue is a min-priority queue over Events, keyed by (Time, Seq). It
// has no cancel operation: a superseded event stays in the queue until
// popped and is discarded by its handler's guard.
type eventQueue struct {
	items eventHeap
}

func newEventQueue() *eventQueue {
	return &eventQueue{items: make(eventHeap, 0)}
}

func (q *eventQueue) push(e Event) {
	heap.Push(&q.items, e)
}

// pop removes and returns the earliest-ordered event. ok is false when the
// queue is empty.
func (q *eventQueue) pop() (e Event, ok bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.items).(Event), true
}

func (q *eventQueue) len() int {
	return len(q.items)
}

func (q *eventQueue) clear() {
	q.items = q.items[:0]
}

// eventHeap is the container/heap.Interface implementation backing eventQueue.
type eventHeap []Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
