// Package widget defines the contract every bar widget satisfies: a factory
// that builds a lazy stream of frame batches. The bar pulls each stream on
// its own goroutine and keeps the latest successful batch for rendering.
package widget

import (
	"context"
	"errors"
	"io"
	"sync"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// ErrDone ends a finite stream. The consumer keeps the last batch it
// received and stops pulling.
var ErrDone = errors.New("widget: stream finished")

// Named gives a slot a stable label for logs and the health file.
type Named interface {
	Name() string
}

// Widget builds a stream. IntoStream is called once; a returned error is
// fatal for that widget only.
type Widget interface {
	Named
	IntoStream() (Stream, error)
}

// Stream is a lazy sequence of frame batches. Nothing runs until the first
// call to Next, and that call returns as soon as the widget has content.
//
// A non-nil error other than ErrDone or the context's error is a failure of
// one item: the consumer logs it and calls Next again. Close releases every
// worker, connection and watch the stream owns.
type Stream interface {
	Next(ctx context.Context) (frame.Batch, error)
	Close() error
}

// TickSource produces payload-free ticks. A nil error from Next is one tick.
type TickSource interface {
	Next(ctx context.Context) error
}

// TickFunc adapts a function to TickSource.
type TickFunc func(ctx context.Context) error

// Next calls f.
func (f TickFunc) Next(ctx context.Context) error { return f(ctx) }

// RenderFunc produces one batch. It re-reads whatever state it needs; ticks
// carry no payload.
type RenderFunc func(ctx context.Context) (frame.Batch, error)

// StreamFunc adapts a function to Stream with a no-op Close.
type StreamFunc func(ctx context.Context) (frame.Batch, error)

// Next calls f.
func (f StreamFunc) Next(ctx context.Context) (frame.Batch, error) { return f(ctx) }

// Close does nothing.
func (f StreamFunc) Close() error { return nil }

// closeOf returns a close function for v if it has one.
func closeOf(v any) func() error {
	switch c := v.(type) {
	case io.Closer:
		return c.Close
	case interface{ Close() }:
		return func() error { c.Close(); return nil }
	default:
		return nil
	}
}

// --- Once ---

type once struct {
	mu     sync.Mutex
	batch  frame.Batch
	served bool
}

// Once returns a stream that yields batch a single time and then ErrDone.
func Once(batch frame.Batch) Stream {
	return &once{batch: batch}
}

func (o *once) Next(ctx context.Context) (frame.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.served {
		return nil, ErrDone
	}
	o.served = true
	return o.batch.Clone(), nil
}

func (o *once) Close() error {
	o.mu.Lock()
	o.served = true
	o.mu.Unlock()
	return nil
}

// --- FromTicks ---

// Option configures a stream built by FromTicks.
type Option func(*tickStream)

// NoEager skips the render that normally precedes the first tick. Use it
// with sources whose first tick is already immediate, such as a ticker.
func NoEager() Option {
	return func(s *tickStream) { s.eager = false }
}

// WithCloser adds fn to the resources released by Close. Closers run in
// reverse order of registration, after the tick source is closed.
func WithCloser(fn func() error) Option {
	return func(s *tickStream) { s.closers = append(s.closers, fn) }
}

type tickStream struct {
	src     TickSource
	render  RenderFunc
	eager   bool
	closers []func() error

	mu      sync.Mutex
	started bool
	closed  bool
}

// FromTicks builds a stream that renders once eagerly and then once per
// tick of src. Errors from src are passed through as item failures; the
// source is polled again on the next call. If src implements io.Closer (or
// has a Close method without a result) it is closed with the stream.
func FromTicks(src TickSource, render RenderFunc, opts ...Option) Stream {
	s := &tickStream{src: src, render: render, eager: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *tickStream) Next(ctx context.Context) (frame.Batch, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrDone
	}
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if !(first && s.eager) {
		if err := s.src.Next(ctx); err != nil {
			return nil, err
		}
	}
	return s.render(ctx)
}

func (s *tickStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if fn := closeOf(s.src); fn != nil {
		errs = append(errs, fn())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
