package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"site-rag/internal/models"
	"site-rag/internal/rag"
)

// Asker is the TUI-facing subset of the answer chain.
type Asker interface {
	Ask(ctx context.Context, t *rag.Transcript, question string) (*models.PromptResponse, error)
}

type answerMsg struct {
	resp *models.PromptResponse
	err  error
}

// Model is the Bubble Tea model of the chat widget.
type Model struct {
	ctx        context.Context
	asker      Asker
	transcript *rag.Transcript
	title      string
	input      textinput.Model
	viewport   viewport.Model
	status     string
	pending    bool
	ready      bool
}

// New creates a chat widget titled "Ask me about <site>".
func New(ctx context.Context, asker Asker, site string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:        ctx,
		asker:      asker,
		transcript: rag.NewTranscript(),
		title:      "Ask me about " + site,
		input:      ti,
		viewport:   vp,
		status:     "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.asker.Ask(m.ctx, m.transcript, question)
		return answerMsg{resp: resp, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + bh // header, status
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-1)
		m.viewport.SetContent(renderPairs(m.transcript.Turns()))
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered from %d source(s).", len(msg.resp.Sources))
		}
		m.viewport.SetContent(renderPairs(m.transcript.Turns()))
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			if q == models.ExitCommand {
				return m, tea.Quit
			}
			m.pending = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(q)
		}
		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title)
	history := historyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + history + "\n" + input + "\n" + status
}

// renderPairs lays out question/answer pairs newest first.
func renderPairs(turns []models.Turn) string {
	if len(turns) == 0 {
		return "No questions yet."
	}
	turns = slices.Clone(turns)
	slices.Reverse(turns)

	blocks := make([]string, len(turns))
	for i, t := range turns {
		blocks[i] = questionStyle.Render("Q: "+t.Question) + "\n" + answerStyle.Render(t.Answer)
	}
	return strings.Join(blocks, "\n\n")
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
