package eventloop

import "sync"

// Queue is a Dispatcher drained by its owner instead of a dedicated
// goroutine. It suits hosts that already have an event thread of their own,
// such as a terminal UI's update loop: the host waits on Ready and calls
// Drain from that thread.
type Queue struct {
	mu    sync.Mutex
	queue []func()
	ready chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post implements Dispatcher. It never blocks.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.queue = append(q.queue, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after a Post. One signal may cover several posts.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Drain runs queued functions in order, including ones they post, and
// returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.mu.Unlock()
			return n
		}
		fn := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()
		fn()
		n++
	}
}

// Len returns the number of queued functions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
