package widgets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bridge"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/highlight"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mpd"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/mux"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// DefaultMPDFormat renders artist and title.
const DefaultMPDFormat = "{artist} {title}"

const (
	sourceEvents = iota
	sourceHighlight
)

// MPDConn is the connection surface the MPD widget needs. *mpd.Conn
// implements it.
type MPDConn interface {
	mpd.Waiter
	mpd.StatusProvider
	mpd.SongProvider
	Close() error
}

// MPD shows the current song and, with ProgressBar, highlights the played
// share of the text.
//
// It holds up to three connections: one blocked in idle for Subsystems,
// one blocked in idle for the player subsystem on behalf of the highlight
// scheduler, and one for status queries.
type MPD struct {
	Attr           frame.Attributes
	Addr           string // mpd.DefaultAddr when empty
	Password       string
	Subsystems     []mpd.Subsystem
	Format         string // {artist} {title} {album} {file}
	ProgressBar    bool
	HighlightColor string
	Fallback       time.Duration // highlight cadence before the first resync
	Log            *slog.Logger

	// Dial overrides connection setup in tests.
	Dial func(addr string) (MPDConn, error)
}

// Name implements widget.Widget.
func (m *MPD) Name() string { return "mpd" }

func (m *MPD) dial() (MPDConn, error) {
	if m.Dial != nil {
		return m.Dial(m.Addr)
	}
	opts := []mpd.Option{}
	if m.Password != "" {
		opts = append(opts, mpd.WithPassword(m.Password))
	}
	if m.Log != nil {
		opts = append(opts, mpd.WithLogger(m.Log))
	}
	return mpd.Dial(m.Addr, opts...)
}

// IntoStream implements widget.Widget. Connection failures are construction
// errors.
func (m *MPD) IntoStream() (widget.Stream, error) {
	log := m.Log
	if log == nil {
		log = slog.Default()
	}

	var conns []MPDConn
	closeAll := func() error {
		var errs []error
		for _, c := range conns {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}
	need := 2
	if m.ProgressBar {
		need = 3
	}
	for len(conns) < need {
		c, err := m.dial()
		if err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("mpd widget: %w", err)
		}
		conns = append(conns, c)
	}
	waitConn, query := conns[0], conns[1]

	text := &highlight.SharedText{}
	subs := m.Subsystems
	events := bridge.New(func() error {
		_, err := waitConn.Wait(subs...)
		return err
	}, bridge.WithName("mpd"), bridge.WithLogger(log))

	src := mux.New[int]()
	src.Add(sourceEvents, eagerThen(events))
	if m.ProgressBar {
		opts := []highlight.Option{highlight.WithLogger(log)}
		if m.Fallback > 0 {
			opts = append(opts, highlight.WithFallback(m.Fallback))
		}
		src.Add(sourceHighlight, highlight.New(conns[2], query, text, opts...))
	}

	r := &mpdRenderer{
		attr:      m.Attr,
		highlight: m.HighlightColor,
		format:    m.Format,
		progress:  m.ProgressBar,
		query:     query,
		text:      text,
	}
	tick := widget.TickFunc(func(ctx context.Context) error {
		_, err := src.Next(ctx)
		return err
	})
	return widget.FromTicks(tick, r.render,
		widget.NoEager(),
		widget.WithCloser(closeAll),
		widget.WithCloser(src.Close),
	), nil
}

// eagerThen ticks once immediately, then once per completion of b.
func eagerThen(b *bridge.Bridge) widget.TickSource {
	return &eagerSource{b: b}
}

type eagerSource struct {
	b     *bridge.Bridge
	fired bool
}

func (e *eagerSource) Next(ctx context.Context) error {
	if !e.fired {
		e.fired = true
		return nil
	}
	return e.b.Next(ctx)
}

func (e *eagerSource) Close() { e.b.Close() }

type mpdRenderer struct {
	attr      frame.Attributes
	highlight string
	format    string
	progress  bool
	query     MPDConn
	text      *highlight.SharedText
}

func (r *mpdRenderer) render(context.Context) (frame.Batch, error) {
	pb, err := r.query.PlaybackStatus()
	if err != nil {
		return nil, err
	}
	synced := time.Now()

	song, err := r.query.CurrentSong()
	var text string
	switch {
	case errors.Is(err, mpd.ErrNotPlaying):
	case err != nil:
		return nil, err
	default:
		text = formatSong(r.format, song)
	}
	r.text.Store(text)

	if r.progress && pb.Playing() {
		return highlight.Batch(r.attr, r.highlight, text, *pb.Elapsed, *pb.Duration, time.Since(synced)), nil
	}
	return frame.Single(r.attr, text, false), nil
}

// formatSong expands {artist}, {title}, {album} and {file}. A missing
// artist or title reads "Unknown".
func formatSong(format string, s mpd.Song) string {
	if format == "" {
		format = DefaultMPDFormat
	}
	orUnknown := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	return strings.NewReplacer(
		"{artist}", orUnknown(s.Artist),
		"{title}", orUnknown(s.Title),
		"{album}", s.Album,
		"{file}", s.File,
	).Replace(format)
}
