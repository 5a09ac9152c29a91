// Package mux merges several tick sources into one keyed tick stream.
//
// Every source is pulled by its own goroutine, started on the first call to
// Next. A goroutine hands each tick to the consumer over an unbuffered
// channel and does not poll its source again until that tick is taken, so
// ticks are delivered in readiness order and never coalesced.
package mux

import (
	"context"
	"errors"
	"io"
	"sync"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("mux: closed")

type event[K comparable] struct {
	key     K
	err     error
	retired bool
}

// Mux multiplexes tick sources identified by keys of type K.
type Mux[K comparable] struct {
	mu      sync.Mutex
	pending []source[K]
	all     []source[K]
	started bool
	closed  bool
	live    int

	ctx    context.Context
	cancel context.CancelFunc
	events chan event[K]
	wg     sync.WaitGroup
}

type source[K comparable] struct {
	key K
	src widget.TickSource
}

// New returns an empty Mux.
func New[K comparable]() *Mux[K] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Mux[K]{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan event[K]),
	}
}

// Add registers src under key. Sources added after the first Next start
// immediately. Keys need not be unique; each source is pulled independently.
func (m *Mux[K]) Add(key K, src widget.TickSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	s := source[K]{key: key, src: src}
	m.all = append(m.all, s)
	m.live++
	if m.started {
		m.spawnLocked(s)
		return
	}
	m.pending = append(m.pending, s)
}

// Next blocks until some source ticks and returns its key. A source error is
// returned together with the key; that source is polled again afterwards.
// Sources that return widget.ErrDone are retired, and once every source is
// retired Next returns widget.ErrDone.
func (m *Mux[K]) Next(ctx context.Context) (K, error) {
	var zero K

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return zero, ErrClosed
	}
	if !m.started {
		m.started = true
		for _, s := range m.pending {
			m.spawnLocked(s)
		}
		m.pending = nil
	}
	m.mu.Unlock()

	for {
		m.mu.Lock()
		live := m.live
		m.mu.Unlock()
		if live == 0 {
			return zero, widget.ErrDone
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-m.ctx.Done():
			return zero, ErrClosed
		case ev := <-m.events:
			if ev.retired {
				m.mu.Lock()
				m.live--
				m.mu.Unlock()
				continue
			}
			return ev.key, ev.err
		}
	}
}

// Close stops every source goroutine and waits for them to exit. Sources
// that implement io.Closer, or have a Close method without a result, are
// closed so a goroutine blocked inside them is released.
func (m *Mux[K]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	all := m.all
	m.mu.Unlock()

	m.cancel()
	var errs []error
	for _, s := range all {
		switch c := s.src.(type) {
		case io.Closer:
			errs = append(errs, c.Close())
		case interface{ Close() }:
			c.Close()
		}
	}
	m.wg.Wait()
	return errors.Join(errs...)
}

func (m *Mux[K]) spawnLocked(s source[K]) {
	m.wg.Add(1)
	go m.pull(s)
}

func (m *Mux[K]) pull(s source[K]) {
	defer m.wg.Done()
	for {
		err := s.src.Next(m.ctx)
		if m.ctx.Err() != nil {
			return
		}
		ev := event[K]{key: s.key, err: err}
		if errors.Is(err, widget.ErrDone) {
			ev = event[K]{key: s.key, retired: true}
		}
		select {
		case m.events <- ev:
		case <-m.ctx.Done():
			return
		}
		if ev.retired {
			return
		}
	}
}
