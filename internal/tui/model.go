// Package tui is the interactive question-answering screen for a single
// ingested document.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paperdesk/internal/domain"
)

// AskPort is the TUI-facing subset of the assistant.
type AskPort interface {
	Query(ctx context.Context, id, question string) (*domain.GroundedAnswer, error)
	Summarize(ctx context.Context, id string) (*domain.GroundedAnswer, error)
}

// Model is the Bubble Tea model for the ask screen.
type Model struct {
	svc        AskPort
	documentID string
	title      string
	preview    string
	input      textinput.Model
	viewport   viewport.Model
	answer     *domain.GroundedAnswer
	status     string
	ready      bool
}

// New creates a new TUI model bound to one document.
func New(svc AskPort, documentID, title, preview string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (ctrl+s for a summary)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		svc:        svc,
		documentID: documentID,
		title:      title,
		preview:    preview,
		input:      ti,
		viewport:   vp,
		status:     "Document indexed. Ask away.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and question boxes
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // title + preview
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				ans, err := m.svc.Query(context.Background(), m.documentID, q)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.answer = nil
				} else {
					m.answer = ans
					m.status = answerStatus(ans)
					m.input.SetValue("")
				}
				m.viewport.SetContent(m.renderAnswer())
				m.viewport.GotoTop()
				return m, nil
			}
		case "ctrl+s":
			ans, err := m.svc.Summarize(context.Background(), m.documentID)
			if err != nil {
				m.status = "Error: " + err.Error()
			} else {
				m.answer = ans
				m.status = answerStatus(ans)
			}
			m.viewport.SetContent(m.renderAnswer())
			m.viewport.GotoTop()
			return m, nil
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

// View renders the layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("paperdesk — " + m.title)
	preview := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.preview)
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + preview + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet. Ask a question about the document."
	}
	return highlightCitations(m.answer.Text)
}

func answerStatus(ans *domain.GroundedAnswer) string {
	pages := make([]string, len(ans.CitedPages))
	for i, p := range ans.CitedPages {
		pages[i] = fmt.Sprintf("%d", p)
	}
	cited := "none"
	if len(pages) > 0 {
		cited = strings.Join(pages, ", ")
	}
	return fmt.Sprintf("confidence %.2f  |  cited pages: %s  |  chunks used: %d",
		ans.Confidence, cited, ans.ChunksUsed)
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	citationStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	citationRe       = regexp.MustCompile(`\[Page \d+\]`)
)

func highlightCitations(text string) string {
	return citationRe.ReplaceAllStringFunc(text, func(tok string) string {
		return citationStyle.Render(tok)
	})
}
