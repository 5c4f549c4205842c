package session

import (
	"log/slog"
	"strconv"

	"github.com/starford/camroll/internal/gallery"
	"github.com/starford/camroll/internal/models"
)

// galleryListener and pagerListener run on the host's loop.
type galleryListener struct{ h *Host }

func (l galleryListener) OpenDetail(position int, _ models.Locator) {
	l.h.openViewer(position)
}

func (l galleryListener) SelectionChanged(count int) {
	l.h.notice = selectedNotice(count)
	l.h.publish(TypeGallerySelection, map[string]int{"selected": count})
}

func (l galleryListener) Refreshed(list models.MediaList) {
	for _, w := range l.h.refreshWaiters {
		w <- nil
	}
	l.h.refreshWaiters = nil
	l.h.publish(TypeGalleryRefreshed, map[string]any{"count": len(list), "locators": list})
}

func (l galleryListener) DeleteFinished(res gallery.DeleteResult) {
	l.h.notice = res.Message()
	if w := l.h.deleteWaiter; w != nil {
		w <- res
		l.h.deleteWaiter = nil
	}
	l.h.publish(TypeGalleryDeleted, map[string]any{
		"status":  res.Status,
		"deleted": res.Deleted,
		"failed":  len(res.Failures),
		"message": res.Message(),
	})
}

func (l galleryListener) Failed(op gallery.Op, err error) {
	l.h.logger.Warn("session: gallery failed", slog.String("op", string(op)), slog.String("error", err.Error()))
	l.h.notice = string(op) + " failed"
	if op == gallery.OpRefresh {
		for _, w := range l.h.refreshWaiters {
			w <- err
		}
		l.h.refreshWaiters = nil
	}
	l.h.publish(TypeGalleryFailed, map[string]string{"op": string(op), "error": err.Error()})
}

type pagerListener struct{ h *Host }

func (l pagerListener) Showing(position int, loc models.Locator) {
	l.h.publish(TypeViewerShowing, map[string]any{"position": position, "locator": loc})
}

func (l pagerListener) Deleted(loc models.Locator) {
	if w := l.h.viewerWaiter; w != nil {
		w <- nil
		l.h.viewerWaiter = nil
	}
	l.h.publish(TypeViewerDeleted, map[string]any{"locator": loc})
}

func (l pagerListener) Closed() {
	if l.h.viewer != nil {
		l.h.closeViewer()
	}
	l.h.publish(TypeViewerClosed, map[string]any{})
}

func (l pagerListener) Failed(err error) {
	l.h.logger.Warn("session: viewer failed", slog.String("error", err.Error()))
	if w := l.h.viewerWaiter; w != nil {
		w <- err
		l.h.viewerWaiter = nil
	}
	l.h.publish(TypeViewerFailed, map[string]string{"error": err.Error()})
}

func selectedNotice(n int) string {
	if n == 0 {
		return ""
	}
	return "selected: " + strconv.Itoa(n)
}
