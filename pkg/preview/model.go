package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/pulse-bar/pkg/bar"
	"gitlab.com/tinyland/lab/pulse-bar/pkg/frame"
)

const (
	defaultWidth   = 80
	statusInterval = time.Second
)

type keyMap struct {
	Status key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Status: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "slot status")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Status, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Status, k.Help, k.Quit}}
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithStatus sets the function polled for the slot table.
func WithStatus(fn func() []bar.SlotStatus) ModelOption {
	return func(m *Model) { m.status = fn }
}

// WithRenderer draws the bar with r instead of the default renderer.
func WithRenderer(r *lipgloss.Renderer) ModelOption {
	return func(m *Model) { m.renderer = r }
}

// Model is the bubbletea model for the preview.
type Model struct {
	sink     *Sink
	status   func() []bar.SlotStatus
	renderer *lipgloss.Renderer
	keys     keyMap
	help     help.Model

	width      int
	batches    []frame.Batch
	lastUpdate time.Time
	updates    int
	slots      []bar.SlotStatus
	showStatus bool
}

// New returns a Model fed by s.
func New(s *Sink, opts ...ModelOption) Model {
	m := Model{
		sink:       s,
		renderer:   lipgloss.DefaultRenderer(),
		keys:       newKeyMap(),
		help:       help.New(),
		showStatus: true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts waiting for snapshots and, with a status source, the
// refresh ticker.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.sink.wait()}
	if m.status != nil {
		cmds = append(cmds, m.fetchStatus())
	}
	return tea.Batch(cmds...)
}

func (m Model) fetchStatus() tea.Cmd {
	status := m.status
	return func() tea.Msg {
		return StatusMsg{Slots: status()}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Status):
			m.showStatus = !m.showStatus
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case UpdateMsg:
		m.batches = msg.Batches
		m.lastUpdate = msg.At
		m.updates++
		return m, m.sink.wait()

	case StatusMsg:
		m.slots = msg.Slots
		return m, tickCmd(statusInterval)

	case TickMsg:
		if m.status == nil {
			return m, nil
		}
		return m, m.fetchStatus()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder
	b.WriteString(bar.ComposeLine(m.renderer, m.batches, width, false))
	b.WriteString("\n\n")

	if m.updates == 0 {
		b.WriteString(dimStyle.Render("waiting for the first update"))
	} else {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d updates, last at %s", m.updates, m.lastUpdate.Format("15:04:05.000"))))
	}
	b.WriteString("\n")

	if m.showStatus && len(m.slots) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %-6s %8s %8s  %s", "SLOT", "STATE", "UPDATES", "ERRORS", "LAST ERROR")))
		b.WriteString("\n")
		for _, s := range m.slots {
			b.WriteString(slotRow(s))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func slotRow(s bar.SlotStatus) string {
	state := "ok"
	switch {
	case !s.Healthy:
		state = "error"
	case s.Finished:
		state = "done"
	}
	row := fmt.Sprintf("%-20s %-6s %8d %8d  %s", s.Name, state, s.Updates, s.Errors, s.LastError)
	if !s.Healthy {
		return errStyle.Render(row)
	}
	return row
}
