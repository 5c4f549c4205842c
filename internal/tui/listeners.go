package tui

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/gallery"
	"github.com/starford/camroll/internal/models"
)

type galleryListener struct{ m *Model }

func (l galleryListener) OpenDetail(position int, _ models.Locator) {
	l.m.openViewer(position)
}

func (l galleryListener) SelectionChanged(count int) {
	if count == 0 {
		l.m.setNotice("")
		return
	}
	l.m.setNotice("selected: " + strconv.Itoa(count))
}

func (l galleryListener) Refreshed(models.MediaList) {
	l.m.moveCursor(0)
}

func (l galleryListener) DeleteFinished(res gallery.DeleteResult) {
	l.m.moveCursor(0)
	l.m.notice, l.m.failed = res.Message(), len(res.Failures) > 0
}

func (l galleryListener) Failed(op gallery.Op, err error) {
	l.m.logger.Warn("tui: gallery failed", slog.String("op", string(op)), slog.String("error", err.Error()))
	l.m.notice, l.m.failed = string(op)+" failed", true
}

type pagerListener struct{ m *Model }

func (l pagerListener) Showing(position int, _ models.Locator) {
	l.m.resolvePage(position)
}

func (l pagerListener) Deleted(models.Locator) {
	l.m.setNotice("deleted: 1")
}

func (l pagerListener) Closed() {
	if l.m.viewer != nil {
		l.m.closeViewer()
	}
}

func (l pagerListener) Failed(err error) {
	l.m.logger.Warn("tui: viewer delete failed", slog.String("error", err.Error()))
	l.m.setError(err)
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		l.m.notice = "delete failed"
	}
}
