package mpd

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	gompd "github.com/fhs/gompd/v2/mpd"
)

// Option configures a Conn.
type Option func(*Conn)

// WithPassword authenticates every (re)dial with password.
func WithPassword(password string) Option {
	return func(c *Conn) { c.password = password }
}

// WithLogger sets the logger used for reconnects.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// Conn is one MPD client connection. Queries are serialised on a client;
// waits run on a gompd watcher of their own, so a Conn used for waits holds
// no query connection once the first wait starts.
//
// A query that fails drops the client and is retried once on a fresh dial.
// A wait that fails drops the watcher and returns the error; the next wait
// redials.
type Conn struct {
	network  string
	addr     string
	password string
	log      *slog.Logger

	mu     sync.Mutex
	client *gompd.Client
	closed atomic.Bool

	wmu      sync.Mutex
	watcher  *gompd.Watcher
	watching string
}

// Dial connects to addr. An address starting with "/" or "@" is a unix
// socket; anything else is host:port.
func Dial(addr string, opts ...Option) (*Conn, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	c := &Conn{
		network: "tcp",
		addr:    addr,
		log:     slog.Default(),
	}
	if strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, "@") {
		c.network = "unix"
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.dialLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// Addr returns the address the connection dials.
func (c *Conn) Addr() string { return c.addr }

// Wait blocks in "idle" for subsystems until MPD reports a change and
// returns the subsystem that changed. MPD reports each change on its own,
// so a second change is returned by the next Wait. An empty list waits on
// every subsystem. Close interrupts a pending Wait, which then returns
// ErrClosed.
func (c *Conn) Wait(subsystems ...Subsystem) ([]Subsystem, error) {
	w, err := c.watch(subsystems)
	if err != nil {
		return nil, err
	}

	select {
	case name, ok := <-w.Event:
		if !ok || c.closed.Load() {
			return nil, ErrClosed
		}
		return []Subsystem{Subsystem(name)}, nil
	case err, ok := <-w.Error:
		if !ok || c.closed.Load() {
			return nil, ErrClosed
		}
		c.dropWatcher(w)
		return nil, fmt.Errorf("mpd idle: %w", err)
	}
}

// watch returns the watcher for subsystems, starting one if needed.
func (c *Conn) watch(subsystems []Subsystem) (*gompd.Watcher, error) {
	names := make([]string, len(subsystems))
	for i, s := range subsystems {
		names[i] = string(s)
	}
	key := strings.Join(names, " ")

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.watcher != nil && c.watching == key {
		return c.watcher, nil
	}
	if c.watcher != nil {
		stopWatcher(c.watcher)
		c.watcher = nil
	}

	c.mu.Lock()
	_ = c.dropLocked()
	c.mu.Unlock()

	w, err := gompd.NewWatcher(c.network, c.addr, c.password, names...)
	if err != nil {
		return nil, fmt.Errorf("dial mpd %s: %w", c.addr, err)
	}
	c.watcher, c.watching = w, key
	return w, nil
}

func (c *Conn) dropWatcher(w *gompd.Watcher) {
	c.wmu.Lock()
	owned := c.watcher == w
	if owned {
		c.watcher = nil
	}
	c.wmu.Unlock()
	if owned {
		stopWatcher(w)
	}
}

// stopWatcher sends noidle and waits for the watcher's goroutine to exit.
// Events still in flight are drained so that goroutine never blocks on a
// send nobody receives.
func stopWatcher(w *gompd.Watcher) {
	go func() {
		for range w.Event {
		}
	}()
	go func() {
		for range w.Error {
		}
	}()
	_ = w.Close()
}

// PlaybackStatus queries "status".
func (c *Conn) PlaybackStatus() (Playback, error) {
	var pb Playback
	err := c.query(func(cl *gompd.Client) error {
		attrs, err := cl.Status()
		if err != nil {
			return err
		}
		pb, err = parsePlayback(attrs)
		return err
	})
	if err != nil {
		return Playback{}, fmt.Errorf("mpd status: %w", err)
	}
	return pb, nil
}

// CurrentSong queries "currentsong". It returns ErrNotPlaying when the
// queue has no current song.
func (c *Conn) CurrentSong() (Song, error) {
	var attrs gompd.Attrs
	err := c.query(func(cl *gompd.Client) error {
		var err error
		attrs, err = cl.CurrentSong()
		return err
	})
	if err != nil {
		return Song{}, fmt.Errorf("mpd currentsong: %w", err)
	}
	return parseSong(attrs)
}

// Close closes the connection. A pending Wait is interrupted with noidle
// and returns ErrClosed.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.wmu.Lock()
	w := c.watcher
	c.watcher = nil
	c.wmu.Unlock()
	if w != nil {
		stopWatcher(w)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

func (c *Conn) query(fn func(*gompd.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		if c.closed.Load() {
			return ErrClosed
		}
		if c.client == nil {
			if err := c.dialLocked(); err != nil {
				return err
			}
		}
		err := fn(c.client)
		if err == nil || attempt > 0 {
			if err != nil {
				c.dropLocked()
			}
			return err
		}
		c.log.Debug("mpd query failed, redialing", "addr", c.addr, "error", err)
		c.dropLocked()
	}
}

func (c *Conn) dialLocked() error {
	var (
		cl  *gompd.Client
		err error
	)
	if c.password != "" {
		cl, err = gompd.DialAuthenticated(c.network, c.addr, c.password)
	} else {
		cl, err = gompd.Dial(c.network, c.addr)
	}
	if err != nil {
		return fmt.Errorf("dial mpd %s: %w", c.addr, err)
	}
	c.client = cl
	return nil
}

func (c *Conn) dropLocked() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
