// Package preview shows a running bar inside a bubbletea program, with a
// per-slot status table underneath. It is a development aid: the bar itself
// writes to a plain Sink in production.
package preview

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

// UpdateMsg carries a fresh bar snapshot into the update loop.
type UpdateMsg struct {
	Batches []frame.Batch
	At      time.Time
}

// TickMsg refreshes the status table.
type TickMsg struct {
	Time time.Time
}

// StatusMsg carries the slot table read on a tick.
type StatusMsg struct {
	Slots []bar.SlotStatus
}

// tickCmd sends a TickMsg after d.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
