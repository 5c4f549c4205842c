// Package session is the navigation host behind the HTTP API. It owns the
// shared navigation state, the gallery controller and at most one open detail
// pager, and runs every controller call on a single event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/camroll/internal/eventloop"
	"github.com/starford/camroll/internal/gallery"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/navstate"
	"github.com/starford/camroll/internal/pager"
	"github.com/starford/camroll/internal/selection"
	"github.com/starford/camroll/internal/sse"
)

// ErrNoViewer is returned by viewer operations while no pager is open.
var ErrNoViewer = errors.New("session: no viewer open")

// Event types published by the host.
const (
	TypeGalleryRefreshed = "gallery.refreshed"
	TypeGallerySelection = "gallery.selection"
	TypeGalleryDeleted   = "gallery.deleted"
	TypeGalleryFailed    = "gallery.failed"
	TypeViewerShowing    = "viewer.showing"
	TypeViewerDeleted    = "viewer.deleted"
	TypeViewerClosed     = "viewer.closed"
	TypeViewerFailed     = "viewer.failed"
)

// Index is the media index both controllers use.
type Index interface {
	gallery.Index
	pager.Index
}

// Publisher broadcasts host events to clients.
type Publisher interface {
	Publish(event sse.Event)
}

// Host is one navigation session.
type Host struct {
	loop   *eventloop.Loop
	nav    *navstate.State
	idx    Index
	pub    Publisher
	logger *slog.Logger

	// Owned by the loop goroutine.
	gallery *gallery.Controller
	viewer  *pager.Controller
	notice  string

	refreshWaiters []chan error
	deleteWaiter   chan gallery.DeleteResult
	viewerWaiter   chan error
}

// New starts a host and kicks off the first gallery refresh.
func New(idx Index, pub Publisher, logger *slog.Logger) *Host {
	h := &Host{
		loop:   eventloop.NewLoop(),
		nav:    navstate.New(),
		idx:    idx,
		pub:    pub,
		logger: logger,
	}
	h.loop.Post(func() {
		h.gallery = gallery.New(idx, h.nav, h.loop, galleryListener{h}, logger)
		h.gallery.Refresh()
	})
	return h
}

// Close tears down the controllers and stops the loop.
func (h *Host) Close() {
	_ = h.loop.Call(context.Background(), func() {
		if h.viewer != nil {
			h.viewer.Close()
			h.viewer = nil
		}
		h.gallery.Close()
	})
	h.loop.Close()
}

// Nav exposes the shared navigation state.
func (h *Host) Nav() *navstate.State { return h.nav }

// Gallery returns a snapshot of the gallery screen.
func (h *Host) Gallery(ctx context.Context) (GalleryState, error) {
	var st GalleryState
	err := h.loop.Call(ctx, func() { st = h.galleryState() })
	return st, err
}

// Refresh reloads the gallery from the index and waits for the outcome.
func (h *Host) Refresh(ctx context.Context) (GalleryState, error) {
	w := make(chan error, 1)
	if err := h.loop.Call(ctx, func() {
		h.refreshWaiters = append(h.refreshWaiters, w)
		h.gallery.Refresh()
	}); err != nil {
		return GalleryState{}, err
	}
	select {
	case err := <-w:
		if err != nil {
			return GalleryState{}, err
		}
	case <-ctx.Done():
		return GalleryState{}, ctx.Err()
	}
	return h.Gallery(ctx)
}

// SetMode switches the gallery's selection mode.
func (h *Host) SetMode(ctx context.Context, mode selection.Mode) (GalleryState, error) {
	var st GalleryState
	err := h.loop.Call(ctx, func() {
		h.gallery.SetMode(mode)
		st = h.galleryState()
	})
	return st, err
}

// ToggleMode flips the gallery between single and multi selection.
func (h *Host) ToggleMode(ctx context.Context) (GalleryState, error) {
	var st GalleryState
	err := h.loop.Call(ctx, func() {
		h.gallery.ToggleMode()
		st = h.galleryState()
	})
	return st, err
}

// Tap handles a tap on a grid position. In single mode it opens the viewer.
func (h *Host) Tap(ctx context.Context, position int) (GalleryState, error) {
	var (
		st     GalleryState
		tapErr error
	)
	err := h.loop.Call(ctx, func() {
		tapErr = h.gallery.OnTap(position)
		st = h.galleryState()
	})
	if err != nil {
		return GalleryState{}, err
	}
	return st, tapErr
}

// DeleteSelected deletes the selected items and waits for the outcome.
func (h *Host) DeleteSelected(ctx context.Context) (gallery.DeleteResult, error) {
	w := make(chan gallery.DeleteResult, 1)
	var startErr error
	if err := h.loop.Call(ctx, func() {
		if h.deleteWaiter != nil {
			startErr = errBusy()
			return
		}
		h.deleteWaiter = w
		if startErr = h.gallery.DeleteSelected(); startErr != nil {
			h.deleteWaiter = nil
		}
	}); err != nil {
		return gallery.DeleteResult{}, err
	}
	if startErr != nil {
		return gallery.DeleteResult{}, startErr
	}
	select {
	case res := <-w:
		return res, nil
	case <-ctx.Done():
		return gallery.DeleteResult{}, ctx.Err()
	}
}

// OpenViewer opens the detail pager on the shared list at position start,
// replacing any viewer already open.
func (h *Host) OpenViewer(ctx context.Context, start int) (ViewerState, error) {
	var st ViewerState
	err := h.loop.Call(ctx, func() {
		h.openViewer(start)
		st = h.viewerState()
	})
	return st, err
}

// Viewer returns a snapshot of the detail pager.
func (h *Host) Viewer(ctx context.Context) (ViewerState, error) {
	var (
		st  ViewerState
		err error
	)
	if callErr := h.loop.Call(ctx, func() {
		if h.viewer == nil {
			err = ErrNoViewer
			return
		}
		st = h.viewerState()
	}); callErr != nil {
		return ViewerState{}, callErr
	}
	return st, err
}

// Page resolves the display variant at position in the open viewer. Only
// the locator is read on the loop; the index lookup runs on the caller's
// goroutine.
func (h *Host) Page(ctx context.Context, position int) (pager.Page, error) {
	var (
		loc models.Locator
		err error
	)
	if callErr := h.loop.Call(ctx, func() {
		if h.viewer == nil {
			err = ErrNoViewer
			return
		}
		if h.viewer.State() != pager.Loaded {
			err = pager.ErrNotLoaded
			return
		}
		list := h.viewer.List()
		var ok bool
		if loc, ok = list.At(position); !ok {
			err = fmt.Errorf("%w: %d of %d", pager.ErrOutOfRange, position, len(list))
		}
	}); callErr != nil {
		return nil, callErr
	}
	if err != nil {
		return nil, err
	}
	return pager.NewPage(ctx, h.idx, position, loc)
}

// SetCurrent records a swipe in the open viewer.
func (h *Host) SetCurrent(ctx context.Context, position int) (ViewerState, error) {
	var (
		st  ViewerState
		err error
	)
	if callErr := h.loop.Call(ctx, func() {
		if h.viewer == nil {
			err = ErrNoViewer
			return
		}
		err = h.viewer.SetCurrent(position)
		st = h.viewerState()
	}); callErr != nil {
		return ViewerState{}, callErr
	}
	return st, err
}

// DeleteCurrent deletes the item shown in the viewer and waits for the
// outcome. The returned state is Terminal when the last item was deleted.
func (h *Host) DeleteCurrent(ctx context.Context) (ViewerState, error) {
	w := make(chan error, 1)
	var startErr error
	if err := h.loop.Call(ctx, func() {
		if h.viewer == nil {
			startErr = ErrNoViewer
			return
		}
		if startErr = h.viewer.DeleteCurrent(); startErr == nil {
			h.viewerWaiter = w
		}
	}); err != nil {
		return ViewerState{}, err
	}
	if startErr != nil {
		return ViewerState{}, startErr
	}
	select {
	case err := <-w:
		if err != nil {
			return ViewerState{}, err
		}
	case <-ctx.Done():
		return ViewerState{}, ctx.Err()
	}

	var st ViewerState
	err := h.loop.Call(ctx, func() { st = h.viewerState() })
	return st, err
}

// CloseViewer closes the detail pager. A delete still in flight is detached
// and its completion ignored.
func (h *Host) CloseViewer(ctx context.Context) error {
	var err error
	if callErr := h.loop.Call(ctx, func() {
		if h.viewer == nil {
			err = ErrNoViewer
			return
		}
		h.closeViewer()
	}); callErr != nil {
		return callErr
	}
	return err
}

func (h *Host) openViewer(start int) {
	if h.viewer != nil {
		h.closeViewer()
	}
	v := pager.New(h.idx, h.nav, h.loop, pagerListener{h}, h.logger)
	h.viewer = v
	v.Initialize(h.nav.Get(), start)
	if h.viewer == v {
		v.Attach()
	}
}

// closeViewer drops the current pager. A pending delete waiter is released
// with ErrNoViewer since the completion will never be delivered.
func (h *Host) closeViewer() {
	h.viewer.Close()
	h.viewer = nil
	if h.viewerWaiter != nil {
		h.viewerWaiter <- ErrNoViewer
		h.viewerWaiter = nil
	}
}

func (h *Host) publish(typ string, data any) {
	if h.pub != nil {
		h.pub.Publish(sse.Event{Type: typ, Data: data})
	}
}

func (h *Host) galleryState() GalleryState {
	list := h.gallery.List()
	items := make([]GalleryItem, len(list))
	for i, loc := range list {
		kind, _, _ := loc.Split()
		items[i] = GalleryItem{
			Position:    i,
			Locator:     loc,
			Video:       kind == models.KindVideo,
			Highlighted: h.gallery.Highlighted(i),
		}
	}
	st := GalleryState{
		Items:    items,
		Mode:     h.gallery.Mode().String(),
		Selected: h.gallery.SelectedCount(),
		Busy:     h.gallery.Busy(),
		Notice:   h.notice,
	}
	if h.viewer != nil {
		v := h.viewerState()
		st.Viewer = &v
	}
	return st
}

func (h *Host) viewerState() ViewerState {
	if h.viewer == nil {
		return ViewerState{State: pager.Terminal, Locators: []models.Locator{}}
	}
	st := ViewerState{
		State:    h.viewer.State(),
		Locators: h.viewer.List(),
		Deleting: h.viewer.Deleting(),
	}
	if loc, ok := h.viewer.CurrentLocator(); ok {
		st.Current = h.viewer.Current()
		st.Locator = loc
	}
	return st
}

// RefreshGallery reloads the gallery and returns its item count.
func (h *Host) RefreshGallery(ctx context.Context) (int, error) {
	st, err := h.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return len(st.Items), nil
}
