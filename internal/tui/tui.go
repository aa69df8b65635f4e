// Package tui provides the Bubble Tea chat interface.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/genfinafrica/genfin-chat/internal/chat"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("28")).
			Padding(0, 2)

	// Prefix for farmer-typed lines
	userPrefixStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	// Prefix for engine replies
	systemPrefixStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Messages ────────────

// turnDoneMsg is delivered when the engine finishes processing one line.
type turnDoneMsg struct{ err error }

// ── Model ────────────

// Model is the root Bubble Tea model for the chat window. The engine is
// only touched from Update and from the single in-flight turn command; the
// busy flag guarantees at most one turn runs at a time.
type Model struct {
	engine  *chat.Engine
	vp      viewport.Model
	input   textinput.Model
	width   int
	height  int
	ready   bool
	busy    bool
	pending string // line being processed while busy
}

// New creates the chat model around an engine.
func New(engine *chat.Engine) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a command (HELP for the list)"
	ti.CharLimit = 200
	ti.Focus()
	return Model{engine: engine, input: ti}
}

// ── Bubble Tea interface ────────────

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.pending = line
			m.refreshViewport()
			return m, m.runTurn(line)
		}

	case turnDoneMsg:
		m.busy = false
		m.pending = ""
		m.refreshViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			// title(1) + input(1) + statusBar(1) = 3 fixed rows
			m.vp = viewport.New(msg.Width, max(msg.Height-3, 1))
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = max(msg.Height-3, 1)
		}
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  genfin  Seasonaware Chat")

	hint := "  enter send  esc quit"
	if m.busy {
		hint = "  working…"
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, m.vp.View(), m.input.View(), statusBar)
}

// ── Turn execution ────────────

// runTurn hands one line to the engine off the UI loop. Timed out turns
// still complete server-side; the timeout only unblocks the UI.
func (m Model) runTurn(line string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		engine.Handle(ctx, line)
		return turnDoneMsg{}
	}
}

// ── Rendering ────────────

// refreshViewport rebuilds the transcript view. A resize can land while a
// turn command is still appending; Transcript is safe for concurrent reads,
// and the pending echo is rendered from the model's own copy of the line.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	for _, msg := range m.engine.Transcript().Messages() {
		sb.WriteString(renderLine(msg))
	}
	if m.busy {
		sb.WriteString(userPrefixStyle.Render("  You ") + "  " + m.pending + "\n")
		sb.WriteString(dimStyle.Render("  …") + "\n")
	}
	m.vp.SetContent(sb.String())
	m.vp.GotoBottom()
}

func renderLine(msg chat.Message) string {
	prefix := systemPrefixStyle.Render(" Agent")
	if msg.Sender == chat.SenderUser {
		prefix = userPrefixStyle.Render("  You ")
	}
	ts := timeStyle.Render(msg.Timestamp)
	body := chat.RenderText(msg)

	// Continuation lines of a multi-line reply are indented under the prefix.
	lines := strings.Split(body, "\n")
	var sb strings.Builder
	sb.WriteString(prefix + "  " + ts + "  " + lines[0] + "\n")
	for _, l := range lines[1:] {
		sb.WriteString("          " + l + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Run starts the chat TUI around the given engine.
func Run(engine *chat.Engine) error {
	p := tea.NewProgram(New(engine), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
