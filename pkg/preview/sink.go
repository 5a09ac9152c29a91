package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// Sink hands bar snapshots to the preview model. Only the newest snapshot
// is kept; a slow redraw drops intermediate ones.
type Sink struct {
	ch chan []frame.Batch
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{ch: make(chan []frame.Batch, 1)}
}

// Update implements bar.Sink.
func (s *Sink) Update(batches []frame.Batch) error {
	for {
		select {
		case s.ch <- batches:
			return nil
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// wait blocks until the next snapshot arrives.
func (s *Sink) wait() tea.Cmd {
	return func() tea.Msg {
		return UpdateMsg{Batches: <-s.ch, At: time.Now()}
	}
}

// Run runs b in the background and shows it until the user quits or ctx
// is cancelled. b must have been created with s as its sink.
func Run(ctx context.Context, b *bar.Bar, s *Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(s, WithStatus(b.Registry().AllStatus))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	barErr := make(chan error, 1)
	go func() {
		err := b.Run(ctx)
		if err != nil {
			p.Quit()
		}
		barErr <- err
	}()

	_, err := p.Run()
	cancel()
	runErr := <-barErr

	if runErr != nil {
		return runErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
