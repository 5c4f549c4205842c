package eventloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoop_RunsInPostingOrder(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var got []int
	for i := range 100 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoop_PostFromTaskDoesNotBlock(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	done := make(chan struct{})
	l.Post(func() {
		for range 1000 {
			l.Post(func() {})
		}
		l.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested posts never ran")
	}
}

func TestLoop_CallAfterClose(t *testing.T) {
	l := NewLoop()
	l.Close()
	l.Close()

	err := l.Call(context.Background(), func() { t.Error("ran after close") })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	l.Post(func() { t.Error("post ran after close") })
}

func TestLoop_CallHonoursContext(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	block := make(chan struct{})
	l.Post(func() { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Call(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestLoop_SingleGoroutine(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	// Unsynchronised counter: the race detector flags this if tasks overlap.
	counter := 0
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = l.Call(context.Background(), func() { counter++ })
			}
		}()
	}
	wg.Wait()
	if counter != 400 {
		t.Errorf("counter = %d, want 400", counter)
	}
}

func TestScope_DeliversThroughDispatcher(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	s := NewScope(context.Background(), l)
	got := make(chan error, 1)
	want := errors.New("boom")
	s.Go(func(context.Context) error { return want }, func(err error) { got <- err })

	select {
	case err := <-got:
		if !errors.Is(err, want) {
			t.Errorf("done(%v), want %v", err, want)
		}
	case <-time.After(time.Second):
		t.Fatal("completion never delivered")
	}
}

func TestScope_DetachDropsLateCompletion(t *testing.T) {
	s := NewScope(context.Background(), Inline{})

	release := make(chan struct{})
	sawCancel := make(chan struct{})
	called := false
	s.Go(func(ctx context.Context) error {
		<-release
		<-ctx.Done()
		close(sawCancel)
		return ctx.Err()
	}, func(error) { called = true })

	s.Detach()
	close(release)
	s.Wait()

	select {
	case <-sawCancel:
	default:
		t.Error("call did not observe cancellation")
	}
	if called {
		t.Error("completion ran after Detach")
	}
	if s.Go(func(context.Context) error { return nil }, nil) {
		t.Error("Go after Detach should refuse")
	}
	s.Detach()
}

func TestScope_InlineWait(t *testing.T) {
	s := NewScope(context.Background(), Inline{})
	var mu sync.Mutex
	n := 0
	for range 3 {
		s.Go(func(context.Context) error { return nil }, func(error) {
			mu.Lock()
			n++
			mu.Unlock()
		})
	}
	s.Wait()
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestQueue_DrainRunsNestedPosts(t *testing.T) {
	q := NewQueue()
	var got []string
	q.Post(func() {
		got = append(got, "a")
		q.Post(func() { got = append(got, "c") })
	})
	q.Post(func() { got = append(got, "b") })

	select {
	case <-q.Ready():
	default:
		t.Fatal("Ready not signalled after Post")
	}
	if n := q.Drain(); n != 3 {
		t.Fatalf("Drain ran %d, want 3", n)
	}
	if want := "abc"; got[0]+got[1]+got[2] != want {
		t.Errorf("order = %v, want a b c", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after Drain", q.Len())
	}
}

func TestQueue_PostFromOtherGoroutines(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				q.Post(func() {})
			}
		}()
	}
	wg.Wait()
	if n := q.Drain(); n != 500 {
		t.Errorf("Drain ran %d, want 500", n)
	}
}
