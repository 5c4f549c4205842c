package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/pager"
	"github.com/starford/camroll/internal/selection"
	"github.com/starford/camroll/internal/testutil"
)

// newModel imports the given number of photos plus one video.
func newModel(t *testing.T, photos int) *Model {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	clock := time.Unix(1700000000, 0)
	svc := mediaservice.NewService(store, testutil.TestDB(t), mediaservice.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()
	for i := range photos {
		if _, err := svc.Import(ctx, models.KindImage, "", "Pictures", fmt.Sprintf("p%d", i), bytes.NewReader(testutil.JPEG)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Import(ctx, models.KindVideo, "", "Movies", "v", bytes.NewReader(testutil.MP4)); err != nil {
		t.Fatal(err)
	}
	m := New(svc, testutil.DiscardLogger())
	t.Cleanup(m.Close)
	settle(t, m, func() bool { return len(m.gallery.List()) == photos+1 })
	return m
}

// settle feeds queued completions to Update until cond holds.
func settle(t *testing.T, m *Model, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case <-m.queue.Ready():
			m.Update(queueMsg{})
		case <-deadline:
			t.Fatal("timed out waiting for the model to settle")
		}
	}
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestGridShowsImagesThenVideos(t *testing.T) {
	m := newModel(t, 2)
	list := m.gallery.List()
	if k, _, _ := list[2].Split(); k != models.KindVideo {
		t.Fatalf("last item = %s, want the video", list[2])
	}
	view := m.View()
	if !strings.Contains(view, "▶ vid") || !strings.Contains(view, "▣ img") {
		t.Errorf("view missing cells:\n%s", view)
	}
	if !strings.Contains(view, "single") {
		t.Errorf("view missing mode:\n%s", view)
	}
}

func TestCursorStaysInRange(t *testing.T) {
	m := newModel(t, 1)
	press(m, "left", "left")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	press(m, "right", "right", "right")
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}

func TestOpenViewerAndDeleteCurrent(t *testing.T) {
	m := newModel(t, 2)
	press(m, "right", "enter")
	if m.viewer == nil || m.viewer.Current() != 1 {
		t.Fatal("enter in single mode did not open the viewer at the cursor")
	}
	// The page lookup completes on a later Update, not inside the key press.
	if m.page != nil {
		t.Errorf("page resolved synchronously: %T", m.page)
	}
	settle(t, m, func() bool { _, ok := m.page.(pager.ImagePage); return ok })

	press(m, "right")
	settle(t, m, func() bool { _, ok := m.page.(pager.VideoPage); return ok })
	if m.viewer.Current() != 2 {
		t.Errorf("after swipe: current %d", m.viewer.Current())
	}

	press(m, "d")
	settle(t, m, func() bool { return len(m.gallery.List()) == 2 })
	if m.viewer == nil || m.viewer.Current() != 1 {
		t.Fatal("viewer should clamp to the new last item")
	}
	if m.notice != "deleted: 1" {
		t.Errorf("notice = %q", m.notice)
	}

	press(m, "esc")
	if m.viewer != nil {
		t.Error("esc did not close the viewer")
	}
}

func TestDeleteLastItemClosesViewer(t *testing.T) {
	m := newModel(t, 0)
	press(m, "enter", "d")
	settle(t, m, func() bool { return m.viewer == nil })
	if len(m.gallery.List()) != 0 {
		t.Errorf("gallery list = %v, want empty", m.gallery.List())
	}
	if !strings.Contains(m.View(), "no photos or videos") {
		t.Error("empty grid not rendered")
	}
}

func TestMultiSelectDelete(t *testing.T) {
	m := newModel(t, 3)
	press(m, "m")
	if m.gallery.Mode() != selection.Multi {
		t.Fatal("m did not enter multi mode")
	}
	press(m, "enter", "right", "right", "enter")
	if m.notice != "selected: 2" {
		t.Errorf("notice = %q, want selected: 2", m.notice)
	}
	if m.viewer != nil {
		t.Fatal("tap in multi mode opened the viewer")
	}

	press(m, "d")
	settle(t, m, func() bool { return len(m.gallery.List()) == 2 })
	if m.notice != "deleted: 2" {
		t.Errorf("notice = %q, want deleted: 2", m.notice)
	}
	if m.gallery.SelectedCount() != 0 {
		t.Errorf("selected = %d after delete", m.gallery.SelectedCount())
	}

	press(m, "esc")
	if m.gallery.Mode() != selection.Single {
		t.Error("esc did not leave multi mode")
	}
}

func TestDeleteNothingSelected(t *testing.T) {
	m := newModel(t, 1)
	press(m, "m", "d")
	if m.notice != "nothing selected" {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestQuitClosesControllers(t *testing.T) {
	m := newModel(t, 1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}
