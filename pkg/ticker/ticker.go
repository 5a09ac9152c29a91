// Package ticker provides a self-realigning periodic timer.
//
// Unlike time.Ticker, the delay before each fire is recomputed from a
// duration function after the previous fire, relative to the moment of that
// fire. This keeps clocks aligned to wall-clock boundaries (next minute, next
// hour) whose spacing is not constant, and prevents a late wake from pushing
// every later fire back.
package ticker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Next after Stop.
var ErrStopped = errors.New("ticker: stopped")

// ErrWoken is returned by NextOrWake when the wake channel closes first.
var ErrWoken = errors.New("ticker: woken")

// DurationFunc returns the delay until the next fire. It is evaluated at the
// instant of each fire. Zero or negative values mean "fire immediately".
type DurationFunc func() time.Duration

// Ticker fires after a delay that is recomputed after every fire. The first
// call to Next fires immediately so consumers get content on startup.
//
// A Ticker is safe for use by one consumer calling Next plus any number of
// goroutines calling Reset or Stop.
type Ticker struct {
	mu       sync.Mutex
	fn       DurationFunc
	timer    *time.Timer
	deadline time.Time
	changed  chan struct{} // closed when Reset or Stop re-programs the ticker
	started  bool
	stopped  bool

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Ticker driven by fn.
func New(fn DurationFunc) *Ticker {
	return &Ticker{
		fn:      fn,
		changed: make(chan struct{}),
		now:     time.Now,
	}
}

// Every creates a Ticker with a fixed cadence of d.
func Every(d time.Duration) *Ticker {
	return New(func() time.Duration { return d })
}

// Next blocks until the ticker fires or ctx is done, and returns the fire
// time. Before returning it re-evaluates the duration function and arms the
// next deadline at fire time plus the new duration.
func (t *Ticker) Next(ctx context.Context) (time.Time, error) {
	return t.next(ctx, nil)
}

// NextOrWake is Next with an extra wake channel. If wake becomes ready
// before the deadline it returns ErrWoken and the pending fire stays
// scheduled.
func (t *Ticker) NextOrWake(ctx context.Context, wake <-chan struct{}) (time.Time, error) {
	return t.next(ctx, wake)
}

func (t *Ticker) next(ctx context.Context, wake <-chan struct{}) (time.Time, error) {
	for {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return time.Time{}, ErrStopped
		}
		if !t.started {
			t.started = true
			now := t.now()
			t.armLocked(now)
			t.mu.Unlock()
			return now, nil
		}
		timer, changed := t.timer, t.changed
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-wake:
			return time.Time{}, ErrWoken
		case <-changed:
			continue
		case <-timer.C:
		}

		t.mu.Lock()
		if t.timer != timer || t.stopped {
			// Re-programmed between the fire and the lock.
			t.mu.Unlock()
			continue
		}
		now := t.now()
		t.armLocked(now)
		t.mu.Unlock()
		return now, nil
	}
}

// Reset replaces the duration function and re-arms the next deadline at now
// plus fn(). It does not produce a fire by itself.
func (t *Ticker) Reset(fn DurationFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.fn = fn
	if !t.started {
		return
	}
	t.armLocked(t.now())
	t.notifyLocked()
}

// Interval returns the current value of the duration function.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn()
}

// Deadline returns the instant of the next scheduled fire. It is the zero
// time before the first fire.
func (t *Ticker) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// Stop releases the underlying timer. Pending and later calls to Next
// return ErrStopped.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.notifyLocked()
}

// armLocked programs the next deadline relative to now. Caller holds t.mu.
func (t *Ticker) armLocked(now time.Time) {
	d := t.fn()
	if d < 0 {
		d = 0
	}
	t.deadline = now.Add(d)
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.NewTimer(d)
}

// notifyLocked wakes a consumer blocked in Next. Caller holds t.mu.
func (t *Ticker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
