// Package highlight re-times the progress highlight of a now-playing
// widget. Between player events the highlight advances one character per
// length/charCount; player events (seek, pause, next song) resync that
// cadence from MPD's status.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bridge"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mpd"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
)

// DefaultFallback is the cadence used until the first resync succeeds.
const DefaultFallback = 10 * time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFallback sets the initial tick interval.
func WithFallback(d time.Duration) Option {
	return func(s *Scheduler) { s.fallback = d }
}

// WithLogger sets the logger passed to the event bridge.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithBridgeOptions forwards options to the event bridge.
func WithBridgeOptions(opts ...bridge.Option) Option {
	return func(s *Scheduler) { s.bridgeOpts = append(s.bridgeOpts, opts...) }
}

// Scheduler is a tick source: each nil return from Next means the
// highlight should be redrawn.
type Scheduler struct {
	status     mpd.StatusProvider
	text       *SharedText
	fallback   time.Duration
	log        *slog.Logger
	bridgeOpts []bridge.Option

	events *bridge.Bridge
	tick   *ticker.Ticker

	// stale is set by the bridge worker before it publishes a completion
	// and cleared with Swap, so an event that lands between the check and
	// the clear is never lost.
	stale atomic.Bool

	mu       sync.Mutex
	elapsed  *time.Duration
	length   *time.Duration
	lastSync time.Time

	now func() time.Time
}

// New builds a Scheduler that waits for player events on waiter and reads
// playback status from status. waiter must be a connection of its own.
func New(waiter mpd.Waiter, status mpd.StatusProvider, text *SharedText, opts ...Option) *Scheduler {
	s := &Scheduler{
		status:   status,
		text:     text,
		fallback: DefaultFallback,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stale.Store(true)
	s.tick = ticker.Every(s.fallback)

	bopts := append([]bridge.Option{
		bridge.WithName("highlight"),
		bridge.WithLogger(s.log),
		bridge.WithOnComplete(func(error) { s.stale.Store(true) }),
	}, s.bridgeOpts...)
	s.events = bridge.New(func() error {
		_, err := waiter.Wait(mpd.SubsystemPlayer)
		return err
	}, bopts...)
	return s
}

// Next blocks until the highlight should advance. After a player event it
// resyncs from status; when elapsed and duration are known and the shared
// text is non-empty the cadence becomes length/charCount and Next returns at
// once. A paused or stopped player keeps the previous cadence.
func (s *Scheduler) Next(ctx context.Context) error {
	for {
		if s.events.Poll() {
			s.events.Poll()
		}

		if s.stale.Swap(false) {
			resynced, err := s.resync()
			if err != nil {
				return err
			}
			if resynced {
				return nil
			}
		}

		_, err := s.tick.NextOrWake(ctx, s.events.Ready())
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ticker.ErrWoken):
			continue
		default:
			return err
		}
	}
}

// Interval returns the current tick cadence.
func (s *Scheduler) Interval() time.Duration { return s.tick.Interval() }

// Progress returns the elapsed and length values from the last resync and
// the time since it. Either pointer is nil when unknown.
func (s *Scheduler) Progress() (elapsed, length *time.Duration, since time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed, s.length, s.now().Sub(s.lastSync)
}

// Close stops the ticker and the event bridge. A wait still blocked on the
// waiter's connection finishes when that connection is closed.
func (s *Scheduler) Close() {
	s.events.Close()
	s.tick.Stop()
}

func (s *Scheduler) resync() (bool, error) {
	pb, err := s.status.PlaybackStatus()
	if err != nil {
		return false, fmt.Errorf("highlight resync: %w", err)
	}

	s.mu.Lock()
	s.elapsed, s.length = pb.Elapsed, pb.Duration
	s.lastSync = s.now()
	s.mu.Unlock()

	if !pb.Playing() || *pb.Duration <= 0 {
		// TODO: freeze the highlight while paused instead of keeping the
		// last cadence.
		return false, nil
	}
	n := utf8.RuneCountInString(s.text.Load())
	if n == 0 {
		// Nothing rendered yet; try again on the next tick.
		s.stale.Store(true)
		return false, nil
	}
	interval := *pb.Duration / time.Duration(n)
	s.tick.Reset(func() time.Duration { return interval })
	s.log.Debug("highlight resynced", "interval", interval, "chars", n)
	return true, nil
}
