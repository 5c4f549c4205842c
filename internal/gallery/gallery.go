// Package gallery implements the gallery grid controller: it loads the media
// list from the index, interprets taps according to the selection mode, and
// deletes the selected items.
//
// A Controller is owned by one event thread. Every exported method must be
// called from the goroutine its Dispatcher runs posted functions on, and every
// Listener method is invoked there.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/eventloop"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/navstate"
	"github.com/starford/camroll/internal/selection"
)

// ErrOutOfRange is returned by OnTap for a position outside the list.
var ErrOutOfRange = errors.New("gallery: position out of range")

// Index is the part of the media index the gallery needs.
type Index interface {
	Query(ctx context.Context, kind models.Kind) ([]models.Locator, error)
	Delete(ctx context.Context, loc models.Locator) error
}

// Op names the asynchronous operation a failure belongs to.
type Op string

const (
	OpRefresh Op = "refresh"
	OpDelete  Op = "delete"
)

// Listener receives the controller's outcomes. It is fixed at construction.
type Listener interface {
	// OpenDetail is the navigation intent for a tap in Single mode.
	OpenDetail(position int, loc models.Locator)
	// SelectionChanged reports the new number of selected items.
	SelectionChanged(count int)
	// Refreshed reports the list after a completed refresh.
	Refreshed(list models.MediaList)
	// DeleteFinished reports the outcome of DeleteSelected.
	DeleteFinished(res DeleteResult)
	// Failed reports an operation that left the state unchanged. A delete
	// batch in which nothing succeeded is reported here before its
	// DeleteFinished.
	Failed(op Op, err error)
}

// Controller is the gallery list controller.
type Controller struct {
	idx      Index
	nav      *navstate.State
	d        eventloop.Dispatcher
	listener Listener
	logger   *slog.Logger

	scope *eventloop.Scope
	sub   *navstate.Subscription

	sel  *selection.Model
	list models.MediaList

	refreshGen uint64
	refreshing bool
	deleting   bool
}

// New creates a controller and attaches it to nav, so lists published by
// other screens (the pager after a delete) replace the gallery's list.
func New(idx Index, nav *navstate.State, d eventloop.Dispatcher, l Listener, logger *slog.Logger) *Controller {
	c := &Controller{
		idx:      idx,
		nav:      nav,
		d:        d,
		listener: l,
		logger:   logger,
		scope:    eventloop.NewScope(context.Background(), d),
		sel:      selection.New(),
		list:     models.MediaList{},
	}
	c.sub = nav.Subscribe(func(list models.MediaList) {
		d.Post(func() {
			if c.scope.Detached() {
				return
			}
			c.apply(list)
		})
	})
	return c
}

// Close detaches from navstate and drops completions still in flight.
func (c *Controller) Close() {
	c.sub.Cancel()
	c.scope.Detach()
}

// Wait blocks until in-flight index calls have returned.
func (c *Controller) Wait() { c.scope.Wait() }

// List returns a copy of the current list.
func (c *Controller) List() models.MediaList { return c.list.Clone() }

// Mode returns the selection mode.
func (c *Controller) Mode() selection.Mode { return c.sel.Mode() }

// Selected returns the selected locators.
func (c *Controller) Selected() []models.Locator { return c.sel.Selected() }

// SelectedCount returns the number of selected items.
func (c *Controller) SelectedCount() int { return c.sel.Len() }

// Busy reports whether a refresh or delete is in flight.
func (c *Controller) Busy() bool { return c.refreshing || c.deleting }

// Highlighted reports whether the item at position is selected. It is a
// rendering hint only.
func (c *Controller) Highlighted(position int) bool {
	loc, ok := c.list.At(position)
	return ok && c.sel.Contains(loc)
}

// SetMode switches the selection mode; leaving Multi clears the selection.
func (c *Controller) SetMode(mode selection.Mode) {
	before := c.sel.Len()
	c.sel.SetMode(mode)
	if c.sel.Len() != before {
		c.listener.SelectionChanged(c.sel.Len())
	}
}

// ToggleMode flips between Single and Multi and returns the new mode.
func (c *Controller) ToggleMode() selection.Mode {
	if c.sel.Mode() == selection.Multi {
		c.SetMode(selection.Single)
	} else {
		c.SetMode(selection.Multi)
	}
	return c.sel.Mode()
}

// OnTap handles a tap at position: in Single mode it emits OpenDetail, in
// Multi mode it toggles the item's selection.
func (c *Controller) OnTap(position int) error {
	loc, ok := c.list.At(position)
	if !ok {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(c.list))
	}
	if c.sel.Mode() == selection.Single {
		c.listener.OpenDetail(position, loc)
		return nil
	}
	n, err := c.sel.Toggle(loc)
	if err != nil {
		return err
	}
	c.listener.SelectionChanged(n)
	return nil
}

// Refresh reloads the list from the index: images then videos, each most
// recent first. The new list replaces the old one in full and is published to
// navstate. A refresh started while another is in flight supersedes it.
func (c *Controller) Refresh() {
	c.refreshGen++
	gen := c.refreshGen
	c.refreshing = true

	var fresh models.MediaList
	c.scope.Go(func(ctx context.Context) error {
		list := models.MediaList{}
		for _, kind := range models.Kinds {
			locs, err := c.idx.Query(ctx, kind)
			if err != nil {
				return fmt.Errorf("gallery: query %s: %w", kind, err)
			}
			list = append(list, locs...)
		}
		fresh = list
		return nil
	}, func(err error) {
		if gen != c.refreshGen {
			return
		}
		c.refreshing = false
		if err != nil {
			c.logger.Warn("gallery: refresh failed", slog.String("error", err.Error()))
			c.listener.Failed(OpRefresh, err)
			return
		}
		c.apply(fresh)
		c.nav.Set(fresh)
		c.logger.Debug("gallery: refreshed", slog.Int("items", len(fresh)))
		c.listener.Refreshed(fresh.Clone())
	})
}

// DeleteSelected deletes every selected item from the index. An empty
// selection reports NothingSelected at once without touching the index.
// Otherwise the outcome arrives through Listener.DeleteFinished. It returns
// apperr.ErrBusy while a previous delete is still running.
func (c *Controller) DeleteSelected() error {
	if c.deleting {
		return apperr.ErrBusy
	}
	targets := c.sel.Selected()
	if len(targets) == 0 {
		c.listener.DeleteFinished(DeleteResult{Status: NothingSelected})
		return nil
	}
	c.deleting = true

	var res DeleteResult
	c.scope.Go(func(ctx context.Context) error {
		for _, loc := range targets {
			if err := ctx.Err(); err != nil {
				res.Failures = append(res.Failures, ItemFailure{Locator: loc, Err: err})
				continue
			}
			if err := c.idx.Delete(ctx, loc); err != nil {
				res.Failures = append(res.Failures, ItemFailure{Locator: loc, Err: err})
				continue
			}
			res.Deleted = append(res.Deleted, loc)
		}
		return nil
	}, func(error) {
		c.deleting = false
		c.finishDelete(res)
	})
	return nil
}

func (c *Controller) finishDelete(res DeleteResult) {
	for _, f := range res.Failures {
		c.logger.Warn("gallery: delete failed",
			slog.String("locator", f.Locator.String()),
			slog.String("error", f.Err.Error()))
	}
	if len(res.Deleted) == 0 {
		res.Status = NothingChanged
		errs := make([]error, 0, len(res.Failures))
		for _, f := range res.Failures {
			errs = append(errs, f.Err)
		}
		c.listener.Failed(OpDelete, errors.Join(errs...))
		c.listener.DeleteFinished(res)
		return
	}

	res.Status = Applied
	next := c.list.Without(res.Deleted...)
	c.list = next
	// Failed items stay selected; Retain drops exactly the deleted ones.
	c.sel.Retain(next)
	c.nav.Set(next)
	c.logger.Info("gallery: deleted", slog.Int("count", len(res.Deleted)), slog.Int("failed", len(res.Failures)))
	c.listener.SelectionChanged(c.sel.Len())
	c.listener.DeleteFinished(res)

	// A refresh that queried before the delete would resurrect the items.
	if c.refreshing {
		c.Refresh()
	}
}

// apply replaces the list with one published to navstate and drops selected
// items that are no longer in it. The gallery's own publishes arrive here
// with an unchanged list.
func (c *Controller) apply(list models.MediaList) {
	if c.list.Equal(list) {
		return
	}
	c.list = list.Clone()
	if dropped := c.sel.Retain(c.list); dropped > 0 {
		c.listener.SelectionChanged(c.sel.Len())
	}
	// Another screen changed the list while a query was running; its result
	// may predate that change.
	if c.refreshing {
		c.Refresh()
	}
}
