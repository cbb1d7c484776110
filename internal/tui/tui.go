// Package tui is the terminal rendition of the local chat widget. Like the web
// widget it keeps its own (user, assistant) pairs and sends them with every turn.
package tui

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Run when stdin is not a TTY.
var ErrNotTerminal = errors.New("tui: stdin is not a terminal")

// Responder answers one turn given prior pairs.
type Responder interface {
	RespondPairs(ctx context.Context, message string, pairs [][2]string) (string, error)
}

// Options configures the chat screen.
type Options struct {
	Title string
	// Style is a glamour standard style name (dark, light, notty...). Empty picks dark.
	Style string
}

const inputHeight = 3

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
)

// entry is one transcript line. Rendered caches the glamour output for the
// current width.
type entry struct {
	role     role
	content  string
	rendered string
}

type replyMsg struct {
	prompt string
	text   string
	err    error
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx   context.Context
	svc   Responder
	title string
	style string

	input    textarea.Model
	view     viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	entries []entry
	pairs   [][2]string
	waiting bool
	width   int
	ready   bool
}

// New builds the chat screen model.
func New(ctx context.Context, svc Responder, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Send a message... (enter to send, ctrl+l to clear, esc to quit)"
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	style := opts.Style
	if style == "" {
		style = "dark"
	}
	m := Model{
		ctx:   ctx,
		svc:   svc,
		title: opts.Title,
		style: style,
		input: ta,
		view:  viewport.New(80, 20),
		spin:  sp,
		width: 80,
	}
	m.renderer = newRenderer(style, m.width)
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(width-4))
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd { return textarea.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.view.Width = msg.Width
		m.view.Height = max(1, msg.Height-inputHeight-3)
		m.renderer = newRenderer(m.style, msg.Width)
		for i := range m.entries {
			m.entries[i].rendered = ""
		}
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			m.entries = nil
			m.pairs = nil
			m.refresh()
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.entries = append(m.entries, entry{role: roleUser, content: text})
			m.waiting = true
			m.refresh()
			return m, tea.Batch(m.respond(text), m.spin.Tick)
		}

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.entries = append(m.entries, entry{role: roleError, content: msg.err.Error()})
		} else {
			m.entries = append(m.entries, entry{role: roleAssistant, content: msg.text})
			m.pairs = append(m.pairs, [2]string{msg.prompt, msg.text})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// respond snapshots the pair history so the request does not race later turns.
func (m Model) respond(prompt string) tea.Cmd {
	pairs := append([][2]string(nil), m.pairs...)
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		text, err := svc.RespondPairs(ctx, prompt, pairs)
		return replyMsg{prompt: prompt, text: text, err: err}
	}
}

func (m *Model) refresh() {
	var b strings.Builder
	for i := range m.entries {
		e := &m.entries[i]
		switch e.role {
		case roleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(e.content)
			b.WriteString("\n\n")
		case roleAssistant:
			if e.rendered == "" {
				e.rendered = m.render(e.content)
			}
			b.WriteString(e.rendered)
			b.WriteString("\n\n")
		case roleError:
			b.WriteString(errStyle.Render("Error: " + e.content))
			b.WriteString("\n\n")
		}
	}
	m.view.SetContent(strings.TrimRight(b.String(), "\n"))
	m.view.GotoBottom()
}

func (m Model) render(s string) string {
	if m.renderer == nil {
		return s
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

func (m Model) View() string {
	status := helpStyle.Render("enter send • ctrl+l clear • esc quit")
	if m.waiting {
		status = m.spin.View() + " thinking..."
	}
	return titleStyle.Render(m.title) + "\n" + m.view.View() + "\n" + status + "\n" + m.input.View()
}

// Pairs returns the (user, assistant) history kept by the screen.
func (m Model) Pairs() [][2]string { return append([][2]string(nil), m.pairs...) }

// CheckTerminal fails with ErrNotTerminal unless stdin and stdout are TTYs.
func CheckTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNotTerminal
	}
	return nil
}

// Run starts the chat screen on the terminal and blocks until the user quits
// or ctx is canceled.
func Run(ctx context.Context, svc Responder, opts Options) error {
	if err := CheckTerminal(); err != nil {
		return err
	}
	p := tea.NewProgram(New(ctx, svc, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
