package widgets

import (
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/widget"
)

// Separator draws fixed text once. Markup is allowed.
type Separator struct {
	Attr frame.Attributes
	Text string
}

// Name implements widget.Widget.
func (s *Separator) Name() string { return "separator" }

// IntoStream implements widget.Widget.
func (s *Separator) IntoStream() (widget.Stream, error) {
	return widget.Once(frame.Single(s.Attr, s.Text, true)), nil
}

// Placeholder draws a fixed batch once, typically a stretch frame that
// pushes the following widgets to the right edge.
type Placeholder struct {
	Frames frame.Batch
}

// Name implements widget.Widget.
func (p *Placeholder) Name() string { return "placeholder" }

// IntoStream implements widget.Widget.
func (p *Placeholder) IntoStream() (widget.Stream, error) {
	return widget.Once(p.Frames.Clone()), nil
}
