// Package bar drives a set of widgets and hands the composed result to a
// sink. Every slot is pulled by its own goroutine; the bar keeps the latest
// successful batch per slot and pushes a fresh snapshot to the sink after
// each update.
package bar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// Sink receives a snapshot of every slot's latest batch, in slot order.
// Slots that have not produced anything yet are nil. Update is never called
// concurrently.
type Sink interface {
	Update(batches []frame.Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(batches []frame.Batch) error

// Update calls f.
func (f SinkFunc) Update(batches []frame.Batch) error { return f(batches) }

// Option configures a Bar.
type Option func(*Bar)

// WithLogger sets the logger for widget failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bar) { b.log = l }
}

// WithHealthFile writes the slot registry to path every interval while the
// bar runs, and once more when it stops.
func WithHealthFile(path string, interval time.Duration) Option {
	return func(b *Bar) {
		b.healthPath = path
		b.healthInterval = interval
	}
}

// Bar owns the widgets and their streams.
type Bar struct {
	sink           Sink
	log            *slog.Logger
	healthPath     string
	healthInterval time.Duration

	widgets  []widget.Widget
	registry *Registry
	started  time.Time

	mu     sync.Mutex
	latest []frame.Batch

	sinkMu sync.Mutex
}

// New returns a Bar that renders into sink.
func New(sink Sink, opts ...Option) *Bar {
	b := &Bar{
		sink:           sink,
		log:            slog.Default(),
		registry:       NewRegistry(),
		healthInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends a widget to the right end of the bar. It must be called
// before Run.
func (b *Bar) Add(w widget.Widget) {
	b.widgets = append(b.widgets, w)
}

// Registry exposes per-slot status.
func (b *Bar) Registry() *Registry { return b.registry }

// Snapshot returns a copy of the latest batch of every slot.
func (b *Bar) Snapshot() []frame.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]frame.Batch, len(b.latest))
	for i, batch := range b.latest {
		out[i] = batch.Clone()
	}
	return out
}

type slot struct {
	index  int
	name   string
	stream widget.Stream
}

// Run builds every widget's stream and pulls them until ctx is cancelled.
// A widget whose IntoStream fails is logged and left empty; the others run
// normally. Run returns nil on cancellation and an error only if no widget
// could be started.
func (b *Bar) Run(ctx context.Context) error {
	b.started = time.Now()
	b.mu.Lock()
	b.latest = make([]frame.Batch, len(b.widgets))
	b.mu.Unlock()

	var slots []slot
	var buildErrs []error
	for i, w := range b.widgets {
		name := fmt.Sprintf("%d:%s", i, w.Name())
		if err := b.registry.Register(name); err != nil {
			return err
		}
		s, err := w.IntoStream()
		if err != nil {
			b.log.Error("widget failed to start", "widget", name, "error", err)
			b.registry.recordError(name, err)
			buildErrs = append(buildErrs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		slots = append(slots, slot{index: i, name: name, stream: s})
	}
	defer func() {
		for _, s := range slots {
			if err := s.stream.Close(); err != nil {
				b.log.Debug("closing widget", "widget", s.name, "error", err)
			}
		}
	}()
	if len(slots) == 0 && len(b.widgets) > 0 {
		return fmt.Errorf("no widget started: %w", errors.Join(buildErrs...))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range slots {
		g.Go(func() error {
			b.pull(gctx, s)
			return nil
		})
	}
	if b.healthPath != "" {
		g.Go(func() error {
			b.writeHealth(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Finite widgets keep their last batch on screen until shutdown.
	<-ctx.Done()
	return nil
}

func (b *Bar) pull(ctx context.Context, s slot) {
	for {
		batch, err := s.stream.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case errors.Is(err, widget.ErrDone):
			b.log.Debug("widget finished", "widget", s.name)
			b.registry.recordFinished(s.name)
			return
		case err != nil:
			b.log.Warn("widget update failed", "widget", s.name, "error", err)
			b.registry.recordError(s.name, err)
			continue
		}
		b.registry.recordUpdate(s.name, time.Now())
		b.publish(s.index, batch)
	}
}

func (b *Bar) publish(index int, batch frame.Batch) {
	// sinkMu is held across the snapshot so sinks see updates in order.
	b.sinkMu.Lock()
	defer b.sinkMu.Unlock()

	b.mu.Lock()
	b.latest[index] = batch
	snapshot := make([]frame.Batch, len(b.latest))
	copy(snapshot, b.latest)
	b.mu.Unlock()

	if err := b.sink.Update(snapshot); err != nil {
		b.log.Warn("sink update failed", "error", err)
	}
}

// Health returns the current health snapshot.
func (b *Bar) Health() *Health {
	return &Health{
		PID:       os.Getpid(),
		StartedAt: b.started,
		UpdatedAt: time.Now(),
		Slots:     b.registry.AllStatus(),
	}
}

func (b *Bar) writeHealth(ctx context.Context) {
	tk := ticker.Every(b.healthInterval)
	defer tk.Stop()
	for {
		if _, err := tk.Next(ctx); err != nil {
			break
		}
		if err := WriteHealthFile(b.healthPath, b.Health()); err != nil {
			b.log.Warn("health file write failed", "path", b.healthPath, "error", err)
		}
	}
	if err := WriteHealthFile(b.healthPath, b.Health()); err != nil {
		b.log.Warn("health file write failed", "path", b.healthPath, "error", err)
	}
}
