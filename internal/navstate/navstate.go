// Package navstate holds the media list shared by every screen of one
// navigation session. The gallery publishes into it and the pager both reads
// and publishes it, so the two stay consistent across navigation.
package navstate

import (
	"sync"
	"sync/atomic"

	"github.com/starford/camroll/internal/models"
)

// Subscriber receives each published list. The list is the subscriber's own
// copy.
type Subscriber func(list models.MediaList)

// State is the shared list holder. Its lifetime is owned by the navigation
// host, not by any screen. It is safe for concurrent use.
//
// Set holds a writer lock for the whole notification pass, so concurrent
// writers are serialised and every subscriber sees sets in the same order.
// A subscriber must not call Set on the State that is notifying it.
type State struct {
	writeMu sync.Mutex

	mu      sync.Mutex
	list    models.MediaList
	version uint64
	subs    []*subscriber
}

type subscriber struct {
	fn        Subscriber
	cancelled atomic.Bool

	mu   sync.Mutex
	seen uint64
}

// deliver calls fn unless this version (or a newer one) was already seen.
func (s *subscriber) deliver(version uint64, list models.MediaList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled.Load() || version <= s.seen {
		return
	}
	s.seen = version
	s.fn(list)
}

// New returns an empty State. Version is zero until the first Set.
func New() *State {
	return &State{list: models.MediaList{}}
}

// Set replaces the shared list with a copy of list and notifies every live
// subscriber, in attach order, before returning.
func (s *State) Set(list models.MediaList) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snapshot := list.Clone()
	s.mu.Lock()
	s.list = snapshot
	s.version++
	version := s.version
	subs := append([]*subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(version, snapshot.Clone())
	}
}

// Get returns a copy of the current list.
func (s *State) Get() models.MediaList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Clone()
}

// Version returns how many times Set has been called.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe attaches fn. If a list has already been set, fn is called with
// it before Subscribe returns.
func (s *State) Subscribe(fn Subscriber) *Subscription {
	sub := &subscriber{fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	version := s.version
	current := s.list.Clone()
	s.mu.Unlock()

	if version > 0 {
		sub.deliver(version, current)
	}
	return &Subscription{state: s, sub: sub}
}

func (s *State) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.subs {
		if x == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	state *State
	sub   *subscriber
	once  sync.Once
}

// Cancel detaches the subscriber. No notification starts after Cancel
// returns. Calling Cancel more than once is a no-op.
func (c *Subscription) Cancel() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.sub.cancelled.Store(true)
		c.state.remove(c.sub)
	})
}
