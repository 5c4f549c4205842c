// Package eventloop provides the single-threaded dispatch discipline used by
// the navigation hosts: controller state is only ever touched from the
// goroutine a Dispatcher runs posted functions on.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Call once the loop has been closed.
var ErrClosed = errors.New("eventloop: closed")

// Dispatcher posts a function onto an event thread. Posted functions run one
// at a time in posting order.
type Dispatcher interface {
	Post(fn func())
}

// Inline runs posted functions immediately on the caller's goroutine.
type Inline struct{}

// Post implements Dispatcher.
func (Inline) Post(fn func()) { fn() }

// Loop manages an event thread backed by one goroutine.
//
// Concurrency model: the queue is unbounded so Post never blocks, including
// when called from a task already running on the loop. Tasks still queued at
// Close are dropped.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewLoop starts a new event loop.
func NewLoop() *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			return
		case <-l.wake:
		}
		for {
			fn := l.next()
			if fn == nil {
				break
			}
			select {
			case <-l.stopCh:
				return
			default:
			}
			fn()
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

// Post implements Dispatcher. Posts after Close are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil || l.closed.Load() {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from a task running on the same loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop after the running task (if any) returns.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
	l.mu.Lock()
	l.queue = nil
	l.mu.Unlock()
}
