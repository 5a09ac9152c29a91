package mux

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// countSource ticks n times, then reports ErrDone.
type countSource struct {
	left  atomic.Int64
	calls atomic.Int64
}

func newCountSource(n int64) *countSource {
	s := &countSource{}
	s.left.Store(n)
	return s
}

func (s *countSource) Next(ctx context.Context) error {
	s.calls.Add(1)
	if s.left.Add(-1) < 0 {
		return widget.ErrDone
	}
	return nil
}

// gateSource ticks whenever gate receives.
type gateSource struct {
	gate   chan error
	closed atomic.Bool
}

func (g *gateSource) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-g.gate:
		return err
	}
}

func (g *gateSource) Close() { g.closed.Store(true) }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// --- Tick delivery ---

func TestTwoSourcesFiringOnceYieldTwoTicks(t *testing.T) {
	m := New[int]()
	defer m.Close()
	m.Add(0, newCountSource(1))
	m.Add(1, newCountSource(1))

	ctx := testCtx(t)
	seen := map[int]int{}
	for {
		key, err := m.Next(ctx)
		if errors.Is(err, widget.ErrDone) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen[key]++
	}

	if seen[0] != 1 || seen[1] != 1 {
		t.Errorf("ticks per key = %v, want one each", seen)
	}
}

func TestTicksAreNotCoalesced(t *testing.T) {
	m := New[string]()
	defer m.Close()
	m.Add("burst", newCountSource(5))

	ctx := testCtx(t)
	n := 0
	for {
		_, err := m.Next(ctx)
		if errors.Is(err, widget.ErrDone) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		n++
		time.Sleep(2 * time.Millisecond)
	}
	if n != 5 {
		t.Errorf("ticks = %d, want 5", n)
	}
}

func TestSourceDoesNotRunAheadOfConsumer(t *testing.T) {
	src := newCountSource(100)
	m := New[int]()
	defer m.Close()
	m.Add(0, src)

	ctx := testCtx(t)
	if _, err := m.Next(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	// One tick taken, one polled and parked on the handoff.
	if got := src.calls.Load(); got > 2 {
		t.Errorf("source polled %d times for one consumed tick", got)
	}
}

func TestErrorsAreDeliveredWithKey(t *testing.T) {
	g := &gateSource{gate: make(chan error)}
	m := New[string]()
	defer m.Close()
	m.Add("mpd", g)

	ctx := testCtx(t)
	boom := errors.New("idle failed")
	go func() {
		g.gate <- boom
		g.gate <- nil
	}()

	key, err := m.Next(ctx)
	if key != "mpd" || !errors.Is(err, boom) {
		t.Fatalf("Next = (%q, %v), want (mpd, %v)", key, err, boom)
	}
	key, err = m.Next(ctx)
	if key != "mpd" || err != nil {
		t.Fatalf("Next after error = (%q, %v), want (mpd, nil)", key, err)
	}
}

func TestReadinessOrder(t *testing.T) {
	a := &gateSource{gate: make(chan error)}
	b := &gateSource{gate: make(chan error)}
	m := New[string]()
	defer m.Close()
	m.Add("a", a)
	m.Add("b", b)

	ctx := testCtx(t)
	results := make(chan string, 2)
	go func() {
		for i := 0; i < 2; i++ {
			k, _ := m.Next(ctx)
			results <- k
		}
	}()

	b.gate <- nil
	if got := <-results; got != "b" {
		t.Errorf("first tick from %q, want b", got)
	}
	a.gate <- nil
	if got := <-results; got != "a" {
		t.Errorf("second tick from %q, want a", got)
	}
}

func TestAddAfterStart(t *testing.T) {
	m := New[int]()
	defer m.Close()
	g := &gateSource{gate: make(chan error)}
	m.Add(0, g)

	ctx := testCtx(t)
	go func() { g.gate <- nil }()
	if k, err := m.Next(ctx); err != nil || k != 0 {
		t.Fatalf("Next = (%d, %v)", k, err)
	}

	m.Add(1, newCountSource(1))
	if k, err := m.Next(ctx); err != nil || k != 1 {
		t.Fatalf("Next = (%d, %v), want late source", k, err)
	}
}

// --- Lifecycle ---

func TestNextHonoursContext(t *testing.T) {
	m := New[int]()
	defer m.Close()
	m.Add(0, &gateSource{gate: make(chan error)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestCloseStopsSourcesAndWaits(t *testing.T) {
	g := &gateSource{gate: make(chan error)}
	m := New[int]()
	m.Add(0, g)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _ = m.Next(ctx)

	done := make(chan struct{})
	go func() {
		_ = m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	if !g.closed.Load() {
		t.Error("source was not closed")
	}
	if _, err := m.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Next after Close = %v, want ErrClosed", err)
	}
}

func TestCloseBeforeStart(t *testing.T) {
	src := newCountSource(1)
	m := New[int]()
	m.Add(0, src)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if src.calls.Load() != 0 {
		t.Errorf("source polled %d times without any Next", src.calls.Load())
	}
}
