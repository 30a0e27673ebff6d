// Package console is an interactive prompt that sends each line to one
// connection and prints what comes back.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/translate"
)

const (
	maxOutputLines = 200
	maxHistory     = 100
)

// Model is the bubbletea model for the query console.
type Model struct {
	name     string
	backend  backend.Backend
	timeout  time.Duration
	input    textinput.Model
	spinner  spinner.Model
	write    bool
	running  bool
	output   []string
	history  []string
	histIdx  int
	width    int
	height   int
	quitting bool
}

type resultMsg struct {
	text    string
	lines   []string
	elapsed time.Duration
	err     error
}

// New creates a console bound to one open connection.
func New(name string, b backend.Backend, timeout time.Duration) Model {
	in := textinput.New()
	in.Placeholder = "db.users.find({}).limit(5)"
	in.CharLimit = 0
	in.Prompt = "> "
	in.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Model{
		name:    name,
		backend: b,
		timeout: timeout,
		input:   in,
		spinner: s,
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		if m.running {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+w":
			m.write = !m.write
			return m, nil
		case "ctrl+l":
			m.output = nil
			return m, nil
		case "up":
			m.recall(-1)
			return m, nil
		case "down":
			m.recall(1)
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if text == "exit" || text == "quit" {
				m.quitting = true
				return m, tea.Quit
			}
			m.remember(text)
			m.input.SetValue("")
			m.running = true
			return m, tea.Batch(m.spinner.Tick, m.run(text))
		}

	case resultMsg:
		m.running = false
		m.appendOutput(promptStyle.Render(m.modeLabel()+"> ") + msg.text)
		if msg.err != nil {
			m.appendOutput(errStyle.Render(errorLine(msg.err)))
			return m, nil
		}
		m.appendOutput(msg.lines...)
		m.appendOutput(dimStyle.Render(fmt.Sprintf("(%s)", msg.elapsed.Round(time.Millisecond))))
		return m, nil

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", m.name, m.backend.Type())) + "\n\n")

	lines := m.output
	if avail := m.height - 7; avail > 0 && len(lines) > avail {
		lines = lines[len(lines)-avail:]
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	if len(lines) > 0 {
		b.WriteString("\n")
	}

	if m.running {
		b.WriteString(fmt.Sprintf("  %s running...\n", m.spinner.View()))
	} else {
		b.WriteString(modeStyle(m.write).Render(m.modeLabel()) + " " + m.input.View() + "\n")
	}
	b.WriteString(dimStyle.Render("  enter to run • ctrl+w toggles read/write • ↑/↓ history • ctrl+l clears • esc quits") + "\n")
	return b.String()
}

// Output returns the lines printed so far.
func (m Model) Output() []string {
	return m.output
}

// WriteMode reports whether lines are sent to Execute.
func (m Model) WriteMode() bool {
	return m.write
}

func (m Model) modeLabel() string {
	if m.write {
		return "write"
	}
	return "read"
}

func (m Model) run(text string) tea.Cmd {
	b, write, timeout := m.backend, m.write, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		var (
			res *backend.Result
			err error
		)
		if write {
			res, err = b.Execute(ctx, text, nil)
		} else {
			res, err = b.Query(ctx, text, nil)
		}
		if err != nil {
			return resultMsg{text: text, err: err}
		}
		return resultMsg{text: text, lines: formatResult(res), elapsed: time.Since(start)}
	}
}

func (m *Model) remember(text string) {
	if n := len(m.history); n == 0 || m.history[n-1] != text {
		m.history = append(m.history, text)
		if len(m.history) > maxHistory {
			m.history = m.history[1:]
		}
	}
	m.histIdx = len(m.history)
}

func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx += step
	if m.histIdx < 0 {
		m.histIdx = 0
	}
	if m.histIdx >= len(m.history) {
		m.histIdx = len(m.history)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *Model) appendOutput(lines ...string) {
	m.output = append(m.output, lines...)
	if len(m.output) > maxOutputLines {
		m.output = m.output[len(m.output)-maxOutputLines:]
	}
}

func formatResult(res *backend.Result) []string {
	lines := make([]string, 0, len(res.Items)+1)
	for _, item := range res.Items {
		lines = append(lines, string(item))
	}
	switch {
	case res.Affected > 0:
		lines = append(lines, successStyle.Render(fmt.Sprintf("%d affected", res.Affected)))
	case len(res.Items) == 0:
		lines = append(lines, dimStyle.Render("no results"))
	}
	return lines
}

func errorLine(err error) string {
	if kind := translate.KindOf(err); kind != translate.KindUnknown {
		return kind.String() + ": " + err.Error()
	}
	return "error: " + err.Error()
}

// Pretty indents a JSON item for display outside the console. Key order is
// kept.
func Pretty(item json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, item, "", "  "); err != nil {
		return string(item)
	}
	return buf.String()
}

// WithHistory seeds the recall list, oldest first.
func (m Model) WithHistory(entries []string) Model {
	m.history = nil
	for _, e := range entries {
		m.remember(e)
	}
	return m
}

// History returns the recall list, oldest first.
func (m Model) History() []string {
	return append([]string(nil), m.history...)
}

// Run starts the console seeded with history and blocks until the user
// quits. It returns the history as it stood at exit.
func Run(name string, b backend.Backend, timeout time.Duration, history []string) ([]string, error) {
	final, err := tea.NewProgram(New(name, b, timeout).WithHistory(history), tea.WithAltScreen()).Run()
	if err != nil {
		return history, err
	}
	if m, ok := final.(Model); ok {
		return m.History(), nil
	}
	return history, nil
}

func modeStyle(write bool) lipgloss.Style {
	if write {
		return writeStyle
	}
	return readStyle
}

// styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	readStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	writeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
)
