package navstate

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/starford/camroll/internal/models"
)

func list(ids ...int64) models.MediaList {
	out := make(models.MediaList, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.NewLocator(models.KindImage, id))
	}
	return out
}

func TestGetBeforeSet(t *testing.T) {
	s := New()
	if got := s.Get(); got == nil || len(got) != 0 {
		t.Errorf("Get = %#v, want empty list", got)
	}
	if s.Version() != 0 {
		t.Errorf("Version = %d", s.Version())
	}
}

func TestSetStoresCopy(t *testing.T) {
	s := New()
	in := list(1, 2)
	s.Set(in)
	in[0] = models.NewLocator(models.KindVideo, 9)

	got := s.Get()
	if !got.Equal(list(1, 2)) {
		t.Errorf("caller mutation leaked: %v", got)
	}
	got[1] = "x"
	if !s.Get().Equal(list(1, 2)) {
		t.Error("Get result aliases internal state")
	}
}

// Every subscriber attached before a sequence of sets observes the last set
// value once the sequence finishes, and all of them observe the same values
// in the same order.
func TestSubscribersSeeEverySetInOrder(t *testing.T) {
	s := New()
	const n = 5
	seen := make([][]string, n)
	for i := range n {
		s.Subscribe(func(l models.MediaList) {
			seen[i] = append(seen[i], fmt.Sprint(l))
		})
	}

	r := rand.New(rand.NewPCG(7, 7))
	var last models.MediaList
	for range 50 {
		ids := make([]int64, r.IntN(6))
		for j := range ids {
			ids[j] = int64(r.IntN(20) + 1)
		}
		last = list(ids...)
		s.Set(last)
	}

	for i := range n {
		if len(seen[i]) != 50 {
			t.Fatalf("subscriber %d saw %d sets, want 50", i, len(seen[i]))
		}
		if seen[i][49] != fmt.Sprint(last) {
			t.Errorf("subscriber %d last = %s, want %v", i, seen[i][49], last)
		}
		for j := range seen[i] {
			if seen[i][j] != seen[0][j] {
				t.Fatalf("subscriber %d diverged at set %d", i, j)
			}
		}
	}
}

func TestNotificationOrderIsAttachOrder(t *testing.T) {
	s := New()
	var order []int
	for i := range 3 {
		s.Subscribe(func(models.MediaList) { order = append(order, i) })
	}
	s.Set(list(1))
	if fmt.Sprint(order) != "[0 1 2]" {
		t.Errorf("order = %v", order)
	}
}

func TestSubscribeReplaysCurrent(t *testing.T) {
	s := New()
	calls := 0
	s.Subscribe(func(models.MediaList) { calls++ })
	if calls != 0 {
		t.Fatalf("subscriber called before any Set")
	}

	s.Set(list(3, 2, 1))
	var got models.MediaList
	s.Subscribe(func(l models.MediaList) { got = l })
	if !got.Equal(list(3, 2, 1)) {
		t.Errorf("late subscriber got %v", got)
	}
}

func TestCancel(t *testing.T) {
	s := New()
	calls := 0
	sub := s.Subscribe(func(models.MediaList) { calls++ })
	s.Set(list(1))
	sub.Cancel()
	sub.Cancel()
	s.Set(list(2))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if n := len(s.subs); n != 0 {
		t.Errorf("subscribers left = %d", n)
	}
}

func TestCancelFromCallback(t *testing.T) {
	s := New()
	var sub *Subscription
	calls := 0
	sub = s.Subscribe(func(models.MediaList) {
		calls++
		sub.Cancel()
	})
	s.Set(list(1))
	s.Set(list(2))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	var mu sync.Mutex
	var seen []models.MediaList
	s.Subscribe(func(l models.MediaList) {
		mu.Lock()
		seen = append(seen, l)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(list(int64(i + 1)))
		}()
	}
	wg.Wait()

	if s.Version() != 10 || len(seen) != 10 {
		t.Fatalf("version=%d seen=%d", s.Version(), len(seen))
	}
	if !seen[9].Equal(s.Get()) {
		t.Errorf("last notification %v != stored %v", seen[9], s.Get())
	}
}
