package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lexrag/internal/domain"
)

// ChatPort is the TUI-facing subset of the chat session.
type ChatPort interface {
	ThreadID() string
	Prompt(ctx context.Context, message string) (string, []domain.SearchResult, error)
}

// Model is the Bubble Tea model for the chat console. It shows, for each
// message, the retrieved chunks and the assembled prompt that would be sent
// to the downstream generator.
type Model struct {
	session  ChatPort
	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// New creates a new TUI model instance.
func New(session ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		session:  session,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Thread %s. Type to chat.", session.ThreadID()),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := promptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header + status + input frame + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				prompt, results, err := m.session.Prompt(context.Background(), text)
				if err != nil {
					m.status = "Error: " + err.Error()
				} else {
					m.status = fmt.Sprintf("Assembled %d chars from %d chunks", len(prompt), len(results))
				}
				m.viewport.SetContent(renderExchange(text, prompt, results))
				m.viewport.GotoTop()
				m.input.SetValue("")
				return m, nil
			}
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("lexrag chat")
	body := promptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + body + "\n" + input + "\n" + status
}

func renderExchange(message, prompt string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString(messageStyle.Render("You: " + message))
	b.WriteString("\n\n")
	if len(results) > 0 {
		b.WriteString(sectionStyle.Render("Retrieved chunks"))
		b.WriteString("\n")
		for i, r := range results {
			b.WriteString(fmt.Sprintf("  %d. score=%.3f  %s\n", i+1, r.Score, firstLine(r.Text, 80)))
		}
		b.WriteString("\n")
	}
	b.WriteString(sectionStyle.Render("Prompt for generator"))
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}

func firstLine(text string, limit int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "…"
	}
	return text
}

var (
	promptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	messageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sectionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
