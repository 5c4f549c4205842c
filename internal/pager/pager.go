// Package pager implements the detail pager controller: it shows one item of
// the shared media list at a time and can delete the item on screen.
//
// A Controller is owned by one event thread; see package gallery.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/eventloop"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/navstate"
)

var (
	// ErrOutOfRange is returned for a position outside the list.
	ErrOutOfRange = errors.New("pager: position out of range")
	// ErrNotLoaded is returned by operations that need a Loaded pager.
	ErrNotLoaded = errors.New("pager: not loaded")
)

// State is the pager's lifecycle state.
type State uint8

const (
	// Idle: constructed, not initialised yet.
	Idle State = iota
	// Loaded: a non-empty list and a valid current index.
	Loaded
	// Terminal: the list became empty and the screen should close.
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Index is the part of the media index the pager needs.
type Index interface {
	MimeLookup
	Delete(ctx context.Context, loc models.Locator) error
}

// Listener receives the pager's outcomes. It is fixed at construction.
type Listener interface {
	// Showing reports the item now on screen.
	Showing(position int, loc models.Locator)
	// Deleted reports a confirmed delete of loc.
	Deleted(loc models.Locator)
	// Closed reports the transition to Terminal.
	Closed()
	// Failed reports a delete that left the state unchanged.
	Failed(err error)
}

// Controller is the detail pager controller.
type Controller struct {
	idx      Index
	nav      *navstate.State
	d        eventloop.Dispatcher
	listener Listener
	logger   *slog.Logger

	scope *eventloop.Scope
	sub   *navstate.Subscription

	state    State
	list     models.MediaList
	current  int
	deleting bool
}

// New creates an Idle pager.
func New(idx Index, nav *navstate.State, d eventloop.Dispatcher, l Listener, logger *slog.Logger) *Controller {
	return &Controller{
		idx:      idx,
		nav:      nav,
		d:        d,
		listener: l,
		logger:   logger,
		scope:    eventloop.NewScope(context.Background(), d),
		list:     models.MediaList{},
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Current returns the current position. It is meaningful only when Loaded.
func (c *Controller) Current() int { return c.current }

// List returns a copy of the pager's list.
func (c *Controller) List() models.MediaList { return c.list.Clone() }

// CurrentLocator returns the locator on screen.
func (c *Controller) CurrentLocator() (models.Locator, bool) {
	if c.state != Loaded {
		return "", false
	}
	return c.list.At(c.current)
}

// Deleting reports whether a delete is in flight.
func (c *Controller) Deleting() bool { return c.deleting }

// Initialize loads list and shows the item at start, clamped into range. An
// empty list goes straight to Terminal.
func (c *Controller) Initialize(list models.MediaList, start int) {
	if c.state == Terminal {
		return
	}
	if len(list) == 0 {
		c.terminate()
		return
	}
	c.list = list.Clone()
	c.current = clamp(start, len(c.list))
	c.state = Loaded
	c.show()
}

// Attach subscribes to navstate so lists published elsewhere reach
// OnListUpdated. Attaching twice is a no-op.
func (c *Controller) Attach() {
	if c.sub != nil || c.scope.Detached() {
		return
	}
	c.sub = c.nav.Subscribe(func(list models.MediaList) {
		c.d.Post(func() {
			if c.scope.Detached() {
				return
			}
			c.OnListUpdated(list)
		})
	})
}

// Close detaches from navstate and drops a delete completion still in flight.
func (c *Controller) Close() {
	c.sub.Cancel()
	c.scope.Detach()
}

// Wait blocks until an in-flight delete has returned.
func (c *Controller) Wait() { c.scope.Wait() }

// OnListUpdated replaces the list. The current index is kept when still in
// range and clamped to the new last index otherwise; an empty list goes to
// Terminal. Updates are ignored unless Loaded.
func (c *Controller) OnListUpdated(list models.MediaList) {
	if c.state != Loaded {
		return
	}
	if len(list) == 0 {
		c.terminate()
		return
	}
	if c.list.Equal(list) {
		return
	}
	c.list = list.Clone()
	c.current = clamp(c.current, len(c.list))
	c.show()
}

// SetCurrent records a swipe to position.
func (c *Controller) SetCurrent(position int) error {
	if c.state != Loaded {
		return ErrNotLoaded
	}
	if position < 0 || position >= len(c.list) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(c.list))
	}
	if position != c.current {
		c.current = position
		c.show()
	}
	return nil
}

// DeleteCurrent deletes the item on screen. The outcome arrives through the
// Listener: Deleted followed by Showing or Closed on success, Failed
// otherwise. It returns apperr.ErrBusy while a delete is in flight.
func (c *Controller) DeleteCurrent() error {
	if c.state != Loaded {
		return ErrNotLoaded
	}
	if c.deleting {
		return apperr.ErrBusy
	}
	loc := c.list[c.current]
	c.deleting = true
	c.scope.Go(func(ctx context.Context) error {
		return c.idx.Delete(ctx, loc)
	}, func(err error) {
		c.deleting = false
		if err != nil {
			c.logger.Warn("pager: delete failed",
				slog.String("locator", loc.String()),
				slog.String("error", err.Error()))
			c.listener.Failed(err)
			return
		}
		c.removed(loc)
	})
	return nil
}

func (c *Controller) removed(loc models.Locator) {
	c.listener.Deleted(loc)
	if c.state != Loaded {
		return
	}
	next := c.list.Without(loc)
	// Settle local state before publishing: with a synchronous dispatcher
	// the pager's own subscription runs inside Set.
	if len(next) == 0 {
		c.terminate()
	} else {
		c.list = next
		c.current = clamp(c.current, len(next))
		c.show()
	}
	c.nav.Set(next)
}

// LoadPage resolves the item at position into its display variant off the
// event thread and hands the result to done on it. Nothing is delivered
// after Close.
func (c *Controller) LoadPage(position int, done func(Page, error)) error {
	if c.state != Loaded {
		return ErrNotLoaded
	}
	loc, ok := c.list.At(position)
	if !ok {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(c.list))
	}
	var page Page
	c.scope.Go(func(ctx context.Context) error {
		var err error
		page, err = NewPage(ctx, c.idx, position, loc)
		return err
	}, func(err error) {
		done(page, err)
	})
	return nil
}

func (c *Controller) show() {
	c.listener.Showing(c.current, c.list[c.current])
}

func (c *Controller) terminate() {
	c.state = Terminal
	c.list = models.MediaList{}
	c.current = 0
	c.listener.Closed()
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
