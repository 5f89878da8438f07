package ui

import (
	"context"
	"strings"

	"cogchat/internal/api"
	"cogchat/internal/logger"
	"cogchat/internal/models"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SimpleModel is the single-session chat: one ephemeral message list and
// no conversations.
type SimpleModel struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	keys     keyMap
	backend  api.SimpleBackend
	messages []models.Message
	loading  bool
	ready    bool
}

type simpleReplyMsg struct {
	reply string
	err   error
}

// NewSimpleModel creates the single-session chat screen
func NewSimpleModel(backend api.SimpleBackend) SimpleModel {
	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = LoadingStyle

	m := SimpleModel{
		textarea: ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		keys:     defaultKeyMap(),
		backend:  backend,
		messages: []models.Message{},
	}
	m.updateViewport()
	return m
}

func (m SimpleModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m SimpleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-6, 3)
		m.textarea.SetWidth(msg.Width - 4)
		m.ready = true
		m.updateViewport()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Enter):
			return m, m.submit()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.updateViewport()
		}
		return m, cmd

	case simpleReplyMsg:
		m.loading = false
		m.textarea.Focus()
		content := msg.reply
		if msg.err != nil {
			logger.Component("ui").Error().Err(msg.err).Msg("send message")
			content = ConnectError
		}
		m.messages = append(m.messages, models.Message{Role: models.RoleAssistant, Content: content})
		m.updateViewport()
		return m, nil
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	if !m.loading {
		m.textarea, tiCmd = m.textarea.Update(msg)
	}
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *SimpleModel) submit() tea.Cmd {
	if m.loading {
		return nil
	}
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}

	m.messages = append(m.messages, models.Message{Role: models.RoleUser, Content: text})
	m.loading = true
	m.textarea.Reset()
	m.textarea.Blur()
	m.updateViewport()

	backend := m.backend
	return func() tea.Msg {
		reply, err := backend.Send(context.Background(), text)
		return simpleReplyMsg{reply: reply, err: err}
	}
}

func (m *SimpleModel) updateViewport() {
	var content strings.Builder
	width := max(m.viewport.Width-4, 10)

	if len(m.messages) == 0 && !m.loading {
		content.WriteString(WelcomeStyle.Render("What can I help with?") + "\n")
		content.WriteString(HelpStyle.Render("Type your message below and press Enter to send.\n"))
		content.WriteString(HelpStyle.Render("Press Ctrl+C or Esc to quit.\n"))
	}

	for _, msg := range m.messages {
		content.WriteString(renderMessage(msg, width))
	}

	if m.loading {
		content.WriteString(MessageStyle.Render(
			AssistantStyle.Render("Assistant") + "\n" + m.spinner.View(),
		) + "\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

func (m SimpleModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	return strings.Join([]string{
		TitleStyle.Render("cogchat"),
		m.viewport.View(),
		m.textarea.View(),
	}, "\n")
}
