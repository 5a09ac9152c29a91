// Package frame defines the styled text units that widgets produce and the
// attributes the bar uses to draw them.
//
// A Frame is immutable once produced. Attributes is a value type: the
// derivation helpers (WithBackground, StripLeftPadding, ...) return adjusted
// copies and never modify the caller's value.
package frame

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Padding is measured in terminal cells. Top and Bottom are carried for
// completeness but a one-line bar only honours Left and Right.
type Padding struct {
	Left   int `toml:"left" yaml:"left"`
	Right  int `toml:"right" yaml:"right"`
	Top    int `toml:"top" yaml:"top"`
	Bottom int `toml:"bottom" yaml:"bottom"`
}

// NewPadding returns a Padding with the given left, right, top and bottom cells.
func NewPadding(left, right, top, bottom int) Padding {
	return Padding{Left: left, Right: right, Top: top, Bottom: bottom}
}

// Attributes controls how a Frame is presented. It is owned by whoever
// constructs the widget.
type Attributes struct {
	// Font is passed through to renderers that understand it; the terminal
	// renderer ignores it.
	Font string

	// Foreground and Background are "#RRGGBB" hex strings or ANSI colour
	// indexes ("0".."255"). Empty means the terminal default.
	Foreground string
	Background string

	Bold    bool
	Padding Padding
}

// WithBackground returns a copy of a with the background replaced.
func (a Attributes) WithBackground(color string) Attributes {
	a.Background = color
	return a
}

// WithForeground returns a copy of a with the foreground replaced.
func (a Attributes) WithForeground(color string) Attributes {
	a.Foreground = color
	return a
}

// StripLeftPadding returns a copy of a without left padding.
func (a Attributes) StripLeftPadding() Attributes {
	a.Padding.Left = 0
	return a
}

// StripRightPadding returns a copy of a without right padding.
func (a Attributes) StripRightPadding() Attributes {
	a.Padding.Right = 0
	return a
}

// Style converts the attributes into a lipgloss style on the default
// renderer.
func (a Attributes) Style() lipgloss.Style {
	return a.StyleFor(lipgloss.DefaultRenderer())
}

// StyleFor is Style bound to r, whose colour profile decides how (and
// whether) colours are emitted.
func (a Attributes) StyleFor(r *lipgloss.Renderer) lipgloss.Style {
	s := r.NewStyle().
		Bold(a.Bold).
		PaddingLeft(a.Padding.Left).
		PaddingRight(a.Padding.Right)
	if a.Foreground != "" {
		s = s.Foreground(lipgloss.Color(a.Foreground))
	}
	if a.Background != "" {
		s = s.Background(lipgloss.Color(a.Background))
	}
	return s
}

// Frame is one styled text unit.
type Frame struct {
	Attr Attributes
	Text string

	// Stretch asks the renderer to grow this frame to absorb spare width.
	Stretch bool

	// Markup marks Text as trusted: escape sequences in it are kept. When
	// false the renderer strips them so widget content cannot restyle the bar.
	Markup bool
}

// Batch is the ordered group of frames one widget produces per tick.
// Order is left-to-right.
type Batch []Frame

// Single returns a batch holding one frame.
func Single(attr Attributes, text string, markup bool) Batch {
	return Batch{{Attr: attr, Text: text, Markup: markup}}
}

// Text concatenates the text of every frame in the batch.
func (b Batch) Text() string {
	var sb strings.Builder
	for _, f := range b {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// Clone returns a copy of the batch that shares no backing array with b.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	copy(out, b)
	return out
}
