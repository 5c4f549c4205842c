package capture

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/testutil"
)

func newController(t *testing.T, opts ...mediaservice.Option) (*Controller, *mediaservice.Service) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	svc := mediaservice.NewService(store, testutil.TestDB(t), opts...)
	c := New(svc, "Pictures/CameraApp", "Movies/CameraApp", testutil.DiscardLogger())
	c.SetClock(func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) })
	return c, svc
}

func TestCapturePhoto(t *testing.T) {
	ctx := context.Background()
	c, svc := newController(t)

	m, err := c.CapturePhoto(ctx, bytes.NewReader(testutil.JPEG))
	if err != nil {
		t.Fatalf("CapturePhoto: %v", err)
	}
	if m.Path != "Pictures/CameraApp/20240309_140507.jpg" {
		t.Errorf("path = %s", m.Path)
	}
	if m.MimeType != PhotoMIME || m.DisplayName != "20240309_140507" {
		t.Errorf("media = %+v", m)
	}
	got, _ := svc.Query(ctx, models.KindImage)
	if len(got) != 1 || got[0] != m.Locator {
		t.Errorf("index = %v", got)
	}
}

func TestRecordVideo(t *testing.T) {
	c, _ := newController(t)
	m, err := c.RecordVideo(context.Background(), bytes.NewReader(testutil.MP4))
	if err != nil {
		t.Fatalf("RecordVideo: %v", err)
	}
	if m.Path != "Movies/CameraApp/20240309_140507.mp4" || m.Kind != "video" {
		t.Errorf("media = %+v", m)
	}
}

func TestSameSecondCapturesGetDistinctNames(t *testing.T) {
	ctx := context.Background()
	c, svc := newController(t)
	first, err := c.CapturePhoto(ctx, bytes.NewReader(testutil.JPEG))
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.CapturePhoto(ctx, bytes.NewReader(testutil.JPEG))
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if first.Path == second.Path || !strings.HasPrefix(second.DisplayName, "20240309_140507_") {
		t.Errorf("paths %s and %s", first.Path, second.Path)
	}
	got, _ := svc.Query(ctx, models.KindImage)
	if len(got) != 2 {
		t.Errorf("indexed %d photos, want 2", len(got))
	}
}

func TestCaptureRejectsWrongFormat(t *testing.T) {
	c, _ := newController(t)
	if _, err := c.CapturePhoto(context.Background(), bytes.NewReader(testutil.PNG)); !errors.Is(err, apperr.ErrInvalidMedia) {
		t.Errorf("png photo err = %v", err)
	}
	if _, err := c.RecordVideo(context.Background(), bytes.NewReader(testutil.JPEG)); !errors.Is(err, apperr.ErrInvalidMedia) {
		t.Errorf("jpeg video err = %v", err)
	}
}

func TestCaptureReadOnly(t *testing.T) {
	c, _ := newController(t, mediaservice.WithReadOnly(true))
	_, err := c.CapturePhoto(context.Background(), bytes.NewReader(testutil.JPEG))
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}
