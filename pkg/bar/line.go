package bar

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// Output selects how a LineSink encodes styles.
type Output int

const (
	// OutputAuto emits ANSI when writing to a terminal and plain text
	// otherwise.
	OutputAuto Output = iota
	// OutputANSI always emits ANSI escapes, for consumers that parse them.
	OutputANSI
	// OutputPlain never emits escapes. Padding and stretch still apply.
	OutputPlain
)

// ParseOutput maps a config value to an Output.
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return OutputAuto, nil
	case "ansi", "color", "colour":
		return OutputANSI, nil
	case "plain", "text":
		return OutputPlain, nil
	default:
		return 0, fmt.Errorf("unknown output %q (want auto, ansi or plain)", s)
	}
}

func (o Output) String() string {
	switch o {
	case OutputANSI:
		return "ansi"
	case OutputPlain:
		return "plain"
	default:
		return "auto"
	}
}

const defaultLineWidth = 80

// LineOption configures a LineSink.
type LineOption func(*LineSink)

// WithWidth fixes the line width used to expand stretch frames. Zero means
// the terminal width (or 80 when the writer is not a terminal).
func WithWidth(n int) LineOption {
	return func(s *LineSink) { s.width = n }
}

// WithOutput selects the encoding.
func WithOutput(o Output) LineOption {
	return func(s *LineSink) { s.output = o }
}

// WithColorProfile overrides the colour profile used in ANSI mode.
func WithColorProfile(p termenv.Profile) LineOption {
	return func(s *LineSink) { s.profile = &p }
}

// LineSink writes one composed line per update.
type LineSink struct {
	w       io.Writer
	width   int
	output  Output
	profile *termenv.Profile

	r     *lipgloss.Renderer
	fd    uintptr
	isTTY bool

	mu sync.Mutex
}

// NewLineSink returns a sink that writes to w.
func NewLineSink(w io.Writer, opts ...LineOption) *LineSink {
	s := &LineSink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	if f, ok := w.(*os.File); ok {
		s.fd = f.Fd()
		s.isTTY = isatty.IsTerminal(s.fd) || isatty.IsCygwinTerminal(s.fd)
	}

	s.r = lipgloss.NewRenderer(w)
	switch {
	case s.Plain():
		s.r.SetColorProfile(termenv.Ascii)
	case s.profile != nil:
		s.r.SetColorProfile(*s.profile)
	case s.output == OutputANSI && !s.isTTY:
		// Nothing to detect from a pipe; the reader asked for colour.
		s.r.SetColorProfile(termenv.TrueColor)
	}
	return s
}

// Plain reports whether the sink strips all escapes.
func (s *LineSink) Plain() bool {
	switch s.output {
	case OutputPlain:
		return true
	case OutputANSI:
		return false
	default:
		return !s.isTTY
	}
}

// Width returns the width stretch frames fill.
func (s *LineSink) Width() int {
	if s.width > 0 {
		return s.width
	}
	if s.isTTY {
		if w, _, err := term.GetSize(s.fd); err == nil && w > 0 {
			return w
		}
	}
	return defaultLineWidth
}

// Update implements Sink.
func (s *LineSink) Update(batches []frame.Batch) error {
	line := s.Compose(batches)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// Compose renders batches into one line of Width cells or less. Frames
// without Markup, and every frame in plain mode, have escape sequences
// stripped before styling. Spare width is split between Stretch frames.
func (s *LineSink) Compose(batches []frame.Batch) string {
	return ComposeLine(s.r, batches, s.Width(), s.Plain())
}

type segment struct {
	style   lipgloss.Style
	text    string
	stretch bool
	width   int
}

// ComposeLine lays batches out on one line of width cells using r. Spare
// width is split between Stretch frames, the first ones taking any
// remainder. When plain is set every escape sequence is stripped.
func ComposeLine(r *lipgloss.Renderer, batches []frame.Batch, width int, plain bool) string {
	var segs []segment
	used := 0
	stretchers := 0
	for _, batch := range batches {
		for _, f := range batch {
			text := f.Text
			if plain || !f.Markup {
				text = ansi.Strip(text)
			}
			text = strings.ReplaceAll(text, "\n", " ")
			style := f.Attr.StyleFor(r)
			w := ansi.StringWidth(style.Render(text))
			segs = append(segs, segment{style: style, text: text, stretch: f.Stretch, width: w})
			used += w
			if f.Stretch {
				stretchers++
			}
		}
	}

	spare := width - used
	var b strings.Builder
	for _, seg := range segs {
		style := seg.style
		if seg.stretch && spare > 0 {
			extra := spare / stretchers
			if spare%stretchers > 0 {
				extra++
			}
			spare -= extra
			stretchers--
			style = style.Width(seg.width + extra)
		}
		b.WriteString(style.Render(seg.text))
	}
	if plain {
		return ansi.Strip(b.String())
	}
	return b.String()
}
