package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scope ties background work to the lifetime of one screen.
//
// Go runs a blocking call off the event thread and delivers its result back
// through the Dispatcher. Once Detach has been called the scope's context is
// cancelled and results that have not been delivered yet are dropped, so a
// screen that went away never sees a late completion.
type Scope struct {
	d        Dispatcher
	ctx      context.Context
	cancel   context.CancelFunc
	detached atomic.Bool
	wg       sync.WaitGroup
}

// NewScope creates a scope whose context derives from parent.
func NewScope(parent context.Context, d Dispatcher) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{d: d, ctx: ctx, cancel: cancel}
}

// Context returns the scope's context. It is cancelled by Detach.
func (s *Scope) Context() context.Context { return s.ctx }

// Go starts call on a new goroutine and posts done(err) to the dispatcher
// when it returns. It reports false, without running anything, when the
// scope is already detached.
func (s *Scope) Go(call func(ctx context.Context) error, done func(error)) bool {
	if s.detached.Load() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := call(s.ctx)
		if s.detached.Load() {
			return
		}
		s.d.Post(func() {
			if s.detached.Load() || done == nil {
				return
			}
			done(err)
		})
	}()
	return true
}

// Detach cancels in-flight calls and drops their completions. Idempotent.
func (s *Scope) Detach() {
	if s.detached.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// Detached reports whether Detach has been called.
func (s *Scope) Detached() bool { return s.detached.Load() }

// Wait blocks until every call started with Go has returned. With an Inline
// dispatcher the completions have also run by then.
func (s *Scope) Wait() { s.wg.Wait() }
