package sim

import "container/heap"

// EventQueue is a time-ordered priority queue of events. Ties are broken
// by insertion order so that same-tick events dispatch deterministically.
type EventQueue struct {
	inner eventHeap
	seq   uint64
}

type eventQueueItem struct {
	event Event
	seq   uint64
}

type eventHeap []*eventQueueItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].event.Time(), h[j].event.Time()
	if ti != tj {
		return ti < tj
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*eventQueueItem))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.inner)
	return q
}

// Push adds an event to the queue.
func (q *EventQueue) Push(e Event) {
	q.seq++
	heap.Push(&q.inner, &eventQueueItem{event: e, seq: q.seq})
}

// Pop removes and returns the earliest event in the queue. It panics if
// the queue is empty; callers must check Len first.
func (q *EventQueue) Pop() Event {
	item := heap.Pop(&q.inner).(*eventQueueItem)
	return item.event
}

// Peek returns the earliest event without removing it, or nil if the
// queue is empty.
func (q *EventQueue) Peek() Event {
	if len(q.inner) == 0 {
		return nil
	}

	return q.inner[0].event
}

// Len returns the number of events currently queued.
func (q *EventQueue) Len() int {
	return len(q.inner)
}
