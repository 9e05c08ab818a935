package main

import (
	"bytes"
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rikiki/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// transcriptLimit bounds the number of entries kept on screen.
const transcriptLimit = 200

type entryKind int

const (
	entryInput entryKind = iota
	entryOutput
	entryResult
	entryError
)

type entry struct {
	text string
	kind entryKind
}

type replModel struct {
	rt      *runtime.Runtime
	out     *bytes.Buffer
	input   textinput.Model
	entries []entry
	pending []string
	history []string
	histIdx int
	height  int
}

func newReplModel(rt *runtime.Runtime, out *bytes.Buffer) *replModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle
	ti.Placeholder = "(+ 1 2)"
	ti.Width = 72
	ti.Focus()
	return &replModel{rt: rt, out: out, input: ti}
}

type evalResultMsg struct {
	output string
	result string
	err    error
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "esc":
			m.pending = nil
			m.input.Prompt = "> "
			m.input.SetValue("")
			return m, nil

		case "up":
			if m.histIdx > 0 {
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
			line := m.input.Value()
			m.input.SetValue("")
			m.add(entryInput, m.input.Prompt+line)
			if strings.TrimSpace(line) != "" {
				m.history = append(m.history, line)
			}
			m.histIdx = len(m.history)

			m.pending = append(m.pending, line)
			src := strings.Join(m.pending, "\n")
			if !balanced(src) {
				m.input.Prompt = ". "
				return m, nil
			}
			m.pending = nil
			m.input.Prompt = "> "
			if strings.TrimSpace(src) == "" {
				return m, nil
			}
			return m, m.eval(src)
		}

	case evalResultMsg:
		if msg.output != "" {
			m.add(entryOutput, strings.TrimSuffix(msg.output, "\n"))
		}
		if msg.err != nil {
			m.add(entryError, "Error: "+msg.err.Error())
		} else {
			m.add(entryResult, msg.result)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// eval runs src on the update goroutine; the runtime is not safe for
// concurrent use, so it must not run as an asynchronous command.
func (m *replModel) eval(src string) tea.Cmd {
	res := evalResultMsg{}
	v, err := m.rt.EvalString(context.Background(), src)
	if err != nil {
		res.err = err
	} else {
		res.result, res.err = m.rt.Sprint(v.Borrow())
		v.Release()
	}
	res.output = m.out.String()
	m.out.Reset()
	return func() tea.Msg { return res }
}

func (m *replModel) add(kind entryKind, text string) {
	m.entries = append(m.entries, entry{text: text, kind: kind})
	if n := len(m.entries); n > transcriptLimit {
		m.entries = m.entries[n-transcriptLimit:]
	}
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rikiki"))
	b.WriteString("\n\n")

	entries := m.entries
	if m.height > 6 && len(entries) > m.height-6 {
		entries = entries[len(entries)-(m.height-6):]
	}
	for _, e := range entries {
		switch e.kind {
		case entryInput:
			b.WriteString(promptStyle.Render(e.text))
		case entryOutput:
			b.WriteString(outputStyle.Render(e.text))
		case entryResult:
			b.WriteString(resultStyle.Render(e.text))
		case entryError:
			b.WriteString(errorStyle.Render(e.text))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter eval • ↑/↓ history • esc discard • ctrl+d quit"))
	return b.String()
}

// balanced reports whether every list opened in src is closed. Parens
// inside strings, character literals and comments do not count.
func balanced(src string) bool {
	depth := 0
	inString, inComment := false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case inComment:
			if c == '\n' {
				inComment = false
			}
		case inString:
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
		case c == ';':
			inComment = true
		case c == '"':
			inString = true
		case c == '#' && i+2 < len(src) && src[i+1] == '\\':
			i += 2
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth <= 0 && !inString
}

func runInteractive(rt *runtime.Runtime, out *bytes.Buffer) error {
	p := tea.NewProgram(newReplModel(rt, out), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
