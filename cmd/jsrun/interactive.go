package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wippyai/js-runtime/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxEntries bounds the scrollback kept on screen.
const maxEntries = 50

type interactiveModel struct {
	err     error
	cfg     *config.Config
	session *session
	console *bytes.Buffer
	cancel  context.CancelFunc
	input   textinput.Model
	entries []entry
	history []string
	histIdx int
	line    int
	running bool
}

type entry struct {
	err    error
	code   string
	output string
	result string
}

type loadedMsg struct {
	err     error
	session *session
}

type evalResultMsg struct {
	entry entry
}

func newInteractiveModel(cfg *config.Config) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "expression"
	ti.Width = 72
	ti.Focus()
	return &interactiveModel{
		cfg:     cfg,
		console: &bytes.Buffer{},
		input:   ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load)
}

func (m *interactiveModel) load() tea.Msg {
	s, err := newSession(m.cfg, m.console)
	return loadedMsg{session: s, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			if m.cancel != nil {
				m.cancel()
			}
			if m.session != nil && !m.running {
				m.session.Close()
			}
			return m, tea.Quit

		case "esc":
			if m.running && m.cancel != nil {
				m.cancel()
			}
			return m, nil

		case "up":
			if len(m.history) > 0 && m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			return m, nil

		case "enter":
			code := strings.TrimSpace(m.input.Value())
			if code == "" || m.running || m.session == nil {
				return m, nil
			}
			m.history = append(m.history, code)
			m.histIdx = len(m.history)
			m.input.SetValue("")
			m.running = true
			return m, m.evaluate(code)
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session

	case evalResultMsg:
		m.running = false
		m.cancel = nil
		m.entries = append(m.entries, msg.entry)
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evaluate runs code on the command goroutine. Runs never overlap, so the
// context moves between goroutines only while no guard is held.
func (m *interactiveModel) evaluate(code string) tea.Cmd {
	m.line++
	name := fmt.Sprintf("<repl:%d>", m.line)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	return func() tea.Msg {
		defer cancel()
		m.console.Reset()
		result, err := m.session.eval(ctx, code, name)
		return evalResultMsg{entry: entry{
			code:   code,
			output: strings.TrimRight(m.console.String(), "\n"),
			result: result,
			err:    err,
		}}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}
	if m.session == nil {
		return "Starting runtime..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("JS Runner"))
	b.WriteString("\n\n")

	for _, e := range m.entries {
		b.WriteString(inputStyle.Render("> " + e.code))
		b.WriteString("\n")
		if e.output != "" {
			b.WriteString(outputStyle.Render(e.output))
			b.WriteString("\n")
		}
		switch {
		case e.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
			b.WriteString("\n")
		case e.result != "":
			b.WriteString(resultStyle.Render(e.result))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.running {
		b.WriteString(helpStyle.Render("running... esc interrupt"))
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • ↑/↓ history • ctrl+c quit"))
	}
	return b.String()
}

func runInteractive(cfg *config.Config) error {
	// esc interrupts a running script.
	cfg.Runtime.AllowScriptInterrupt = true
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
