// Package capture imports photos and videos produced by an external capture
// device into the library, named after the capture time.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/parser"
)

// Capture formats.
const (
	PhotoMIME = "image/jpeg"
	VideoMIME = "video/mp4"
)

// Importer stores validated content in the library and indexes it.
type Importer interface {
	Import(ctx context.Context, kind models.Kind, want, dir, name string, r io.Reader) (*models.Media, error)
	Exists(rel string) bool
}

// Controller handles the photo and video capture actions.
type Controller struct {
	imp      Importer
	photoDir string
	videoDir string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a capture controller writing photos under photoDir and videos
// under videoDir (both relative to the library root).
func New(imp Importer, photoDir, videoDir string, logger *slog.Logger) *Controller {
	return &Controller{
		imp:      imp,
		photoDir: photoDir,
		videoDir: videoDir,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides time.Now for naming.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// CapturePhoto stores one JPEG photo read from r.
func (c *Controller) CapturePhoto(ctx context.Context, r io.Reader) (*models.Media, error) {
	return c.capture(ctx, models.KindImage, PhotoMIME, c.photoDir, r)
}

// RecordVideo stores one MP4 recording read from r.
func (c *Controller) RecordVideo(ctx context.Context, r io.Reader) (*models.Media, error) {
	return c.capture(ctx, models.KindVideo, VideoMIME, c.videoDir, r)
}

func (c *Controller) capture(ctx context.Context, kind models.Kind, mime, dir string, r io.Reader) (*models.Media, error) {
	ext, _ := parser.ExtByMIME(mime)
	name := parser.CaptureName(c.now())
	if c.imp.Exists(path.Join(dir, name+ext)) {
		// Two captures within the same second.
		name += "_" + uuid.New().String()[:8]
	}

	m, err := c.imp.Import(ctx, kind, mime, dir, name, r)
	if err != nil {
		if errors.Is(err, apperr.ErrPermissionDenied) {
			c.logger.Warn("capture: permission denied", slog.String("kind", kind.String()))
		} else {
			c.logger.Error("capture: failed", slog.String("kind", kind.String()), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("capture %s: %w", kind, err)
	}
	c.logger.Info("capture: saved",
		slog.String("kind", kind.String()),
		slog.String("locator", m.Locator.String()),
		slog.String("path", m.Path))
	return m, nil
}
