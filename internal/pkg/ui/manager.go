// Package ui renders results and progress in the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/asum-cli/asum/internal/pkg/message"
)

// Spinner provides loading animation functionality.
type Spinner interface {
	Start()
	Stop()
	UpdateText(text string)
}

// Manager defines the interface for UI operations.
type Manager interface {
	DisplayMessage(msg *message.CommitMessage)
	DisplayRaw(raw string)
	ShowSpinner(text string) Spinner
	ShowError(err error)
	ShowWarning(text string)
	ShowInfo(text string)
	ShowSuccess(text string)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DefaultManager writes the message to out and everything else to errOut.
// Styling and the spinner are only used when interactive is set.
type DefaultManager struct {
	out         io.Writer
	errOut      io.Writer
	interactive bool
	styles      *styles
}

// styles holds the lipgloss styles for UI rendering.
type styles struct {
	title      lipgloss.Style
	subject    lipgloss.Style
	body       lipgloss.Style
	success    lipgloss.Style
	errorStyle lipgloss.Style
	warning    lipgloss.Style
	info       lipgloss.Style
}

// NewDefaultManager creates a manager. colorEnabled only has an effect when
// interactive is true.
func NewDefaultManager(out, errOut io.Writer, interactive, colorEnabled bool) *DefaultManager {
	m := &DefaultManager{
		out:         out,
		errOut:      errOut,
		interactive: interactive,
	}
	m.initStyles(interactive && colorEnabled)
	return m
}

// NewTerminalManager is interactive only when both writers are terminals.
func NewTerminalManager(out, errOut io.Writer, colorEnabled bool) *DefaultManager {
	return NewDefaultManager(out, errOut, isTerminalWriter(out) && isTerminalWriter(errOut), colorEnabled)
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(f)
}

func (m *DefaultManager) initStyles(color bool) {
	if !color {
		plain := lipgloss.NewStyle()
		m.styles = &styles{
			title:      plain,
			subject:    plain,
			body:       plain,
			success:    plain,
			errorStyle: plain,
			warning:    plain,
			info:       plain,
		}
		return
	}

	m.styles = &styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		subject: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		body: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
	}
}

// DisplayMessage prints the commit message. Outside a terminal only the
// message itself is written so the output can be piped into git commit -F -.
func (m *DefaultManager) DisplayMessage(msg *message.CommitMessage) {
	if msg == nil {
		return
	}
	if !m.interactive {
		fmt.Fprintln(m.out, msg.String())
		return
	}

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.title.Render("Generated Commit Message"))
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
	fmt.Fprintln(m.out, m.styles.subject.Render(msg.Header))
	if msg.HasBody() {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, m.styles.body.Render(msg.Body))
	}
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
}

// DisplayRaw shows generated text that could not be normalized.
func (m *DefaultManager) DisplayRaw(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	fmt.Fprintln(m.errOut, m.styles.warning.Render("Raw model output:"))
	fmt.Fprintln(m.errOut, raw)
}

// ShowSpinner returns an animated spinner in a terminal and a no-op otherwise.
func (m *DefaultManager) ShowSpinner(text string) Spinner {
	if !m.interactive {
		return noopSpinner{}
	}
	return newBubbleSpinner(text, m.errOut)
}

// ShowError displays an error message to the user.
func (m *DefaultManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(m.errOut, m.styles.errorStyle.Render("Error: "+err.Error()))
}

// ShowWarning displays a non-fatal problem.
func (m *DefaultManager) ShowWarning(text string) {
	fmt.Fprintln(m.errOut, m.styles.warning.Render("Warning: "+text))
}

// ShowInfo displays an informational line.
func (m *DefaultManager) ShowInfo(text string) {
	fmt.Fprintln(m.errOut, m.styles.info.Render(text))
}

// ShowSuccess displays a success message to the user.
func (m *DefaultManager) ShowSuccess(text string) {
	fmt.Fprintln(m.errOut, m.styles.success.Render("[OK] "+text))
}

// bubbleSpinner implements Spinner using Bubble Tea.
type bubbleSpinner struct {
	out     io.Writer
	model   spinnerModel
	program *tea.Program
	done    chan struct{}
	mu      sync.Mutex
}

// spinnerModel is the Bubble Tea model for simple spinner.
type spinnerModel struct {
	spinner  spinner.Model
	text     string
	quitting bool
}

// spinnerTextMsg is sent to update spinner text from outside.
type spinnerTextMsg struct {
	text string
}

// spinnerQuitMsg signals the spinner to quit.
type spinnerQuitMsg struct{}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTextMsg:
		m.text = msg.text
		return m, nil
	case spinnerQuitMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.text)
}

func newBubbleSpinner(text string, out io.Writer) *bubbleSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &bubbleSpinner{
		out:   out,
		model: spinnerModel{spinner: s, text: text},
	}
}

func (s *bubbleSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		return
	}
	// No input: the spinner must not swallow keystrokes or Ctrl+C handling.
	s.program = tea.NewProgram(s.model, tea.WithOutput(s.out), tea.WithInput(nil))
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
}

// Stop quits the program and waits until the line is cleared.
func (s *bubbleSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program == nil {
		return
	}
	s.program.Send(spinnerQuitMsg{})
	<-s.done
	s.program = nil
}

func (s *bubbleSpinner) UpdateText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.model.text = text
	if s.program != nil {
		s.program.Send(spinnerTextMsg{text: text})
	}
}

type noopSpinner struct{}

func (noopSpinner) Start()            {}
func (noopSpinner) Stop()             {}
func (noopSpinner) UpdateText(string) {}
