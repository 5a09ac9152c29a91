// Package bridge runs a blocking "wait until something changes" call on its
// own goroutine and turns each completion into a single wake-up for a
// consumer that must not block.
//
// A Bridge is in one of three states:
//
//   - idle: no worker. Poll, Ready and Next start one.
//   - waiting: a worker is running. Further polls never start a second one,
//     so two goroutines never contend for the same connection.
//   - completed: the worker returned and closed its done channel. The next
//     Poll (or Next) consumes the completion and returns to idle, and the
//     poll after that starts a fresh wait.
//
// Errors from the blocking call are logged and otherwise treated as an
// event: the consumer re-reads state and rediscovers persistent failures on
// its own queries.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("bridge: closed")

// DefaultErrorBackoff is the delay applied to failed waits unless
// WithErrorBackoff overrides it.
const DefaultErrorBackoff = time.Second

// WaitFunc blocks until the external source reports a change.
type WaitFunc func() error

// Option configures a Bridge.
type Option func(*Bridge)

// WithOnComplete registers fn to run on the worker goroutine after the wait
// returns and before the completion is published. Writes made by fn are
// visible to whoever observes the completion.
func WithOnComplete(fn func(err error)) Option {
	return func(b *Bridge) { b.onComplete = fn }
}

// WithLogger sets the logger used for swallowed wait errors.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// WithErrorBackoff delays the completion of a failed wait by d. A source
// whose wait fails instantly (a dropped connection) would otherwise wake the
// consumer in a tight loop.
func WithErrorBackoff(d time.Duration) Option {
	return func(b *Bridge) { b.errBackoff = d }
}

// WithName labels log lines from this bridge.
func WithName(name string) Option {
	return func(b *Bridge) { b.name = name }
}

// Bridge adapts a blocking WaitFunc for polling consumers.
type Bridge struct {
	wait       WaitFunc
	onComplete func(error)
	log        *slog.Logger
	name       string
	errBackoff time.Duration

	mu     sync.Mutex
	done   chan struct{} // nil when idle
	closed bool
	quit   chan struct{}

	spawned atomic.Int64
	running atomic.Int64
}

// New creates an idle Bridge around wait.
func New(wait WaitFunc, opts ...Option) *Bridge {
	b := &Bridge{
		wait:       wait,
		log:        slog.Default(),
		name:       "bridge",
		quit:       make(chan struct{}),
		errBackoff: DefaultErrorBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Poll reports whether a wait has completed since the last consumed
// completion. An idle bridge starts a worker and reports false; a waiting
// bridge reports false without starting another. Poll never blocks.
func (b *Bridge) Poll() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	if b.done == nil {
		b.armLocked()
		return false
	}
	select {
	case <-b.done:
		b.done = nil
		return true
	default:
		return false
	}
}

// Ready arms the bridge if it is idle and returns the channel that is
// closed, exactly once, when the outstanding wait completes. It returns nil
// after Close.
func (b *Bridge) Ready() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	if b.done == nil {
		b.armLocked()
	}
	return b.done
}

// Consume returns the bridge to idle if the outstanding wait has completed.
// It reports whether a completion was consumed.
func (b *Bridge) Consume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done == nil {
		return false
	}
	select {
	case <-b.done:
		b.done = nil
		return true
	default:
		return false
	}
}

// Next blocks until a wait completes or ctx is done. Cancelling ctx leaves
// the outstanding worker in place, so the next call waits on the same one
// instead of starting a duplicate.
func (b *Bridge) Next(ctx context.Context) error {
	ready := b.Ready()
	if ready == nil {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return ErrClosed
	case <-ready:
		b.Consume()
		return nil
	}
}

// Close stops the bridge from starting new workers. A worker that is still
// blocked finishes whenever its wait returns; its completion is discarded.
// Unblocking the wait (closing a connection, removing a watch) is the
// owner's job.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.quit)
}

// Done returns a channel that is closed by Close.
func (b *Bridge) Done() <-chan struct{} {
	return b.quit
}

// Outstanding reports whether a worker goroutine is currently running.
func (b *Bridge) Outstanding() bool {
	return b.running.Load() > 0
}

// Spawned returns how many workers the bridge has started.
func (b *Bridge) Spawned() int64 {
	return b.spawned.Load()
}

// armLocked starts a worker. Caller holds b.mu and has checked b.done == nil.
func (b *Bridge) armLocked() {
	done := make(chan struct{})
	b.done = done
	b.spawned.Add(1)
	b.running.Add(1)
	go b.work(done)
}

func (b *Bridge) work(done chan struct{}) {
	defer b.running.Add(-1)

	err := b.wait()

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	if err != nil {
		b.log.Debug("blocking wait failed", "bridge", b.name, "error", err)
		if b.errBackoff > 0 {
			timer := time.NewTimer(b.errBackoff)
			select {
			case <-timer.C:
			case <-b.quit:
				timer.Stop()
				return
			}
		}
	}
	if b.onComplete != nil {
		b.onComplete(err)
	}
	// The close is the wake: it happens after onComplete, so any state
	// written there is visible to the consumer that observes it.
	close(done)
}
