package widget

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bridge"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// --- Once ---

func TestOnceYieldsSingleBatch(t *testing.T) {
	s := Once(frame.Single(frame.Attributes{}, "|", true))
	ctx := context.Background()

	b, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if b.Text() != "|" {
		t.Errorf("Text = %q, want %q", b.Text(), "|")
	}
	if _, err := s.Next(ctx); !errors.Is(err, ErrDone) {
		t.Errorf("second Next = %v, want ErrDone", err)
	}
}

func TestOnceAfterCloseIsDone(t *testing.T) {
	s := Once(frame.Single(frame.Attributes{}, "x", false))
	_ = s.Close()
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrDone) {
		t.Errorf("Next after Close = %v, want ErrDone", err)
	}
}

// --- FromTicks ---

func TestFromTicksRendersEagerly(t *testing.T) {
	var ticks atomic.Int64
	src := TickFunc(func(ctx context.Context) error {
		ticks.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
	s := FromTicks(src, func(context.Context) (frame.Batch, error) {
		return frame.Single(frame.Attributes{}, "hello", false), nil
	})
	defer s.Close()

	b, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if b.Text() != "hello" {
		t.Errorf("Text = %q", b.Text())
	}
	if ticks.Load() != 0 {
		t.Errorf("tick source polled %d times before first batch, want 0", ticks.Load())
	}
}

func TestFromTicksNoEagerWaitsForTick(t *testing.T) {
	var ticks atomic.Int64
	src := TickFunc(func(context.Context) error {
		ticks.Add(1)
		return nil
	})
	s := FromTicks(src, func(context.Context) (frame.Batch, error) {
		return frame.Single(frame.Attributes{}, "x", false), nil
	}, NoEager())

	if _, err := s.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ticks.Load() != 1 {
		t.Errorf("ticks = %d, want 1", ticks.Load())
	}
}

func TestFailOnceThenSucceed(t *testing.T) {
	var renders atomic.Int64
	src := TickFunc(func(context.Context) error { return nil })
	s := FromTicks(src, func(context.Context) (frame.Batch, error) {
		if renders.Add(1) == 1 {
			return nil, errors.New("transient read failure")
		}
		return frame.Single(frame.Attributes{}, "ok", false), nil
	})
	defer s.Close()

	ctx := context.Background()
	var results []string
	for i := 0; i < 3; i++ {
		b, err := s.Next(ctx)
		if err != nil {
			results = append(results, "err")
			continue
		}
		results = append(results, b.Text())
	}

	want := []string{"err", "ok", "ok"}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("results = %v, want %v", results, want)
		}
	}
}

func TestFromTicksPassesSourceError(t *testing.T) {
	boom := errors.New("source down")
	src := TickFunc(func(context.Context) error { return boom })
	s := FromTicks(src, func(context.Context) (frame.Batch, error) {
		return frame.Single(frame.Attributes{}, "x", false), nil
	})
	ctx := context.Background()

	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("eager Next: %v", err)
	}
	if _, err := s.Next(ctx); !errors.Is(err, boom) {
		t.Errorf("Next = %v, want source error", err)
	}
}

func TestFromTicksCloseRunsClosers(t *testing.T) {
	var order []string
	src := &closingSource{onClose: func() { order = append(order, "src") }}
	s := FromTicks(src, func(context.Context) (frame.Batch, error) { return nil, nil },
		WithCloser(func() error { order = append(order, "a"); return nil }),
		WithCloser(func() error { order = append(order, "b"); return errors.New("b failed") }),
	)

	err := s.Close()
	if err == nil {
		t.Error("Close should report the closer error")
	}
	want := []string{"src", "b", "a"}
	if len(order) != len(want) {
		t.Fatalf("close order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("close order = %v, want %v", order, want)
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrDone) {
		t.Errorf("Next after Close = %v, want ErrDone", err)
	}
}

type closingSource struct{ onClose func() }

func (c *closingSource) Next(context.Context) error { return nil }
func (c *closingSource) Close() error { c.onClose(); return nil }

// --- Bridge-driven streams ---

func TestDropBeforeFirstTickStartsNoWorker(t *testing.T) {
	var waits atomic.Int64
	b := bridge.New(func() error {
		waits.Add(1)
		select {}
	})
	var renders atomic.Int64
	s := FromTicks(b, func(context.Context) (frame.Batch, error) {
		renders.Add(1)
		return nil, nil
	})

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	if renders.Load() != 0 {
		t.Errorf("renders = %d, want 0", renders.Load())
	}
	if b.Spawned() != 0 || b.Outstanding() {
		t.Errorf("bridge spawned %d workers, want 0", b.Spawned())
	}
	if waits.Load() != 0 {
		t.Errorf("blocking wait called %d times, want 0", waits.Load())
	}
}

func TestBridgeTickDrivesRender(t *testing.T) {
	release := make(chan struct{})
	b := bridge.New(func() error {
		<-release
		return nil
	})
	var n atomic.Int64
	s := FromTicks(b, func(context.Context) (frame.Batch, error) {
		n.Add(1)
		return frame.Single(frame.Attributes{}, "r", false), nil
	})
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	go func() { release <- struct{}{} }()
	if _, err := s.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if n.Load() != 2 {
		t.Errorf("renders = %d, want 2", n.Load())
	}
	if b.Spawned() != 1 {
		t.Errorf("Spawned = %d, want 1", b.Spawned())
	}
}

// --- Mock ---

func TestMockWidgetScript(t *testing.T) {
	w := NewMockWidget("m", WithText("a"), WithSteps(FailStep()), WithText("b"))
	s, err := w.IntoStream()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if b, err := s.Next(ctx); err != nil || b.Text() != "a" {
		t.Fatalf("step 1 = %q, %v", b.Text(), err)
	}
	if _, err := s.Next(ctx); err == nil {
		t.Fatal("step 2 should fail")
	}
	if b, err := s.Next(ctx); err != nil || b.Text() != "b" {
		t.Fatalf("step 3 = %q, %v", b.Text(), err)
	}

	_ = s.Close()
	if _, err := s.Next(ctx); !errors.Is(err, ErrDone) {
		t.Errorf("exhausted Next after Close = %v, want ErrDone", err)
	}
	if !w.Closed() {
		t.Error("Closed = false after Close")
	}
	if w.NextCount() != 4 {
		t.Errorf("NextCount = %d, want 4", w.NextCount())
	}
}
