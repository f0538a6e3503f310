package inputhook

import "sync/atomic"

// spscQueue is an unbounded single-producer single-consumer queue. Push
// allocates one node and never blocks; Pop never blocks and returns false
// when the queue is empty.
type spscQueue[T any] struct {
	head *node[T] // consumer side
	tail *node[T] // producer side
}

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

func newSPSCQueue[T any]() *spscQueue[T] {
	stub := &node[T]{}
	return &spscQueue[T]{head: stub, tail: stub}
}

// Push must only be called from the producer goroutine
func (q *spscQueue[T]) Push(v T) {
	n := &node[T]{value: v}
	q.tail.next.Store(n)
	q.tail = n
}

// Pop must only be called from the consumer goroutine
func (q *spscQueue[T]) Pop() (T, bool) {
	next := q.head.next.Load()
	if next == nil {
		var zero T
		return zero, false
	}
	v := next.value
	var zero T
	next.value = zero
	q.head = next
	return v, true
}
