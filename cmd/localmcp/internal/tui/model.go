// Package tui is the interactive terminal front end: a prompt box, a spinner
// while a query runs and the rendered markdown answer.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	inputHeight  = 3
	defaultWidth = 80
)

// HandleFunc answers a query with a markdown document.
type HandleFunc func(ctx context.Context, query string) (string, error)

// resultMsg carries the outcome of one query back to the model.
type resultMsg struct {
	doc      string
	err      error
	duration time.Duration
}

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	handle HandleFunc

	input    textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	busy     bool
	query    string
	output   string
	err      error
	started  time.Time
	duration time.Duration

	width  int
	height int
}

// New creates a Model that answers queries with handle. ctx bounds every
// query it starts.
func New(ctx context.Context, handle HandleFunc) Model {
	ta := textarea.New()
	ta.Placeholder = "e.g. Get latest MalwareBazaar SHA256 tags..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.SetWidth(defaultWidth - 2)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinStyle))

	return Model{
		ctx:      ctx,
		handle:   handle,
		input:    ta,
		spinner:  sp,
		renderer: newRenderer(defaultWidth - 4),
		width:    defaultWidth,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, handle HandleFunc) error {
	drainStdin()

	p := tea.NewProgram(New(ctx, handle), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(m.width-2, 10))
		m.renderer = newRenderer(m.width - 4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resultMsg:
		m.busy = false
		m.duration = msg.duration
		m.output = msg.doc
		m.err = msg.err
		return m, m.input.Focus()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	if msg.Type == tea.KeyEnter && !msg.Alt {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit clears the previous answer and the prompt, then starts the query.
func (m Model) submit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.output = ""
	m.err = nil
	m.query = query
	m.busy = true
	m.started = time.Now()

	return m, tea.Batch(m.spinner.Tick, m.queryCmd(query))
}

// queryCmd runs the query off the UI goroutine.
func (m Model) queryCmd(query string) tea.Cmd {
	ctx, handle, started := m.ctx, m.handle, m.started
	return func() tea.Msg {
		doc, err := handle(ctx, query)
		return resultMsg{doc: doc, err: err, duration: time.Since(started)}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Local MCP Client"))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Enter to submit · Alt+Enter for a new line · Esc to quit"))
	b.WriteString("\n\n")

	if m.query != "" {
		b.WriteString(queryStyle.Render("> ") + m.query)
		b.WriteString("\n\n")
	}

	switch {
	case m.busy:
		elapsed := time.Since(m.started).Round(time.Second)
		b.WriteString(m.spinner.View() + " " + m.status(fmt.Sprintf("Querying backend... %s", elapsed)))
		b.WriteString("\n\n")
	case m.err != nil:
		b.WriteString(errorBlockStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	case m.output != "":
		b.WriteString(renderMarkdown(m.renderer, m.output))
		b.WriteString("\n")
		b.WriteString(m.status(fmt.Sprintf("answered in %s", m.duration.Round(time.Millisecond))))
		b.WriteString("\n\n")
	}

	border := focusedBorder
	if m.busy {
		border = disabledBorder
	}
	b.WriteString(border.Render(m.input.View()))

	return b.String()
}

// status renders a single status line truncated to the terminal width.
func (m Model) status(s string) string {
	return statusStyle.Render(runewidth.Truncate(s, max(m.width-4, 1), "…"))
}
