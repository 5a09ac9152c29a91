// Package widgets holds the concrete bar widgets. Each one is a small
// struct of settings whose IntoStream wires a tick source (a ticker, a
// bridged blocking wait, or a mux of both) to a render function.
package widgets

import (
	"context"
	"time"

	"github.com/ncruces/go-strftime"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/ticker"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// DefaultClockFormat shows date, weekday and 12-hour time.
const DefaultClockFormat = "%Y-%m-%d %a %I:%M %p"

// Clock shows the local time, redrawn on every Precision boundary.
type Clock struct {
	Attr      frame.Attributes
	Format    string // strftime; DefaultClockFormat when empty
	Precision ticker.Precision

	// Now overrides the time source in tests.
	Now func() time.Time
}

// Name implements widget.Widget.
func (c *Clock) Name() string { return "clock" }

// IntoStream implements widget.Widget.
func (c *Clock) IntoStream() (widget.Stream, error) {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	pattern := c.Format
	if pattern == "" {
		pattern = DefaultClockFormat
	}
	attr := c.Attr
	p := c.Precision
	format := clockFormatter(pattern)

	tk := ticker.New(func() time.Duration { return p.UntilNext(now()) })
	src := widget.TickFunc(func(ctx context.Context) error {
		_, err := tk.Next(ctx)
		return err
	})
	render := func(context.Context) (frame.Batch, error) {
		return frame.Single(attr, format(now()), true), nil
	}
	return widget.FromTicks(src, render, widget.NoEager(), widget.WithCloser(func() error {
		tk.Stop()
		return nil
	})), nil
}

// clockFormatter compiles pattern to a Go layout when strftime can express
// it as one. Other patterns (digits in literals, %s, %U and the like) are
// formatted directive by directive on every call; unknown directives are
// copied through.
func clockFormatter(pattern string) func(time.Time) string {
	if layout, err := strftime.Layout(pattern); err == nil {
		return func(t time.Time) string { return t.Format(layout) }
	}
	return func(t time.Time) string { return strftime.Format(pattern, t) }
}
