package selection

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/starford/camroll/internal/models"
)

func loc(id int64) models.Locator { return models.NewLocator(models.KindImage, id) }

func TestToggleRequiresMulti(t *testing.T) {
	m := New()
	n, err := m.Toggle(loc(1))
	if !errors.Is(err, ErrSingleMode) {
		t.Fatalf("err = %v, want ErrSingleMode", err)
	}
	if n != 0 || m.Len() != 0 {
		t.Errorf("single-mode toggle changed the set: n=%d len=%d", n, m.Len())
	}
}

func TestToggleFlipsMembership(t *testing.T) {
	m := New()
	m.SetMode(Multi)

	for i, tc := range []struct {
		loc  models.Locator
		want int
	}{
		{loc(1), 1},
		{loc(2), 2},
		{loc(1), 1},
		{loc(3), 2},
		{loc(2), 1},
	} {
		n, err := m.Toggle(tc.loc)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n != tc.want {
			t.Errorf("step %d: count = %d, want %d", i, n, tc.want)
		}
	}
	if !slices.Equal(m.Selected(), []models.Locator{loc(3)}) {
		t.Errorf("Selected = %v", m.Selected())
	}
}

// Any toggle sequence in Multi followed by SetMode(Single) leaves the set
// empty, and the count reported by each toggle equals the set's size.
func TestRandomToggleSequences(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := range 200 {
		m := New()
		m.SetMode(Multi)
		shadow := map[models.Locator]bool{}
		for range r.IntN(40) {
			l := loc(int64(r.IntN(10) + 1))
			n, err := m.Toggle(l)
			if err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			shadow[l] = !shadow[l]
			want := 0
			for _, on := range shadow {
				if on {
					want++
				}
			}
			if n != want || m.Len() != want {
				t.Fatalf("round %d: count=%d len=%d want %d", round, n, m.Len(), want)
			}
		}
		m.SetMode(Single)
		if m.Len() != 0 || len(m.Selected()) != 0 {
			t.Fatalf("round %d: set not empty after Single", round)
		}
		if m.Mode() != Single {
			t.Fatalf("round %d: mode = %v", round, m.Mode())
		}
	}
}

func TestSetModeMultiKeepsMembers(t *testing.T) {
	m := New()
	m.SetMode(Multi)
	_, _ = m.Toggle(loc(1))
	m.SetMode(Multi)
	if !m.Contains(loc(1)) {
		t.Error("re-entering Multi dropped the selection")
	}
}

func TestSelectedIsCopy(t *testing.T) {
	m := New()
	m.SetMode(Multi)
	_, _ = m.Toggle(loc(1))
	got := m.Selected()
	got[0] = loc(99)
	if !m.Contains(loc(1)) || m.Contains(loc(99)) {
		t.Error("mutating Selected() leaked into the model")
	}
}

func TestClearKeepsMode(t *testing.T) {
	m := New()
	m.SetMode(Multi)
	_, _ = m.Toggle(loc(1))
	m.Clear()
	if m.Len() != 0 || m.Mode() != Multi {
		t.Errorf("after Clear: len=%d mode=%v", m.Len(), m.Mode())
	}
}

func TestRetain(t *testing.T) {
	m := New()
	m.SetMode(Multi)
	for _, id := range []int64{1, 2, 3} {
		_, _ = m.Toggle(loc(id))
	}
	// Reordered list without 2.
	dropped := m.Retain(models.MediaList{loc(3), loc(4), loc(1)})
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if !slices.Equal(m.Selected(), []models.Locator{loc(1), loc(3)}) {
		t.Errorf("Selected = %v", m.Selected())
	}
	if m.Retain(nil) != 2 || m.Len() != 0 {
		t.Error("Retain(nil) should drop everything")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"single": Single, "MULTI": Multi, " multi ": Multi} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("many"); err == nil {
		t.Error("ParseMode(many) should fail")
	}
}
