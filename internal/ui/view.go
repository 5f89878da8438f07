package ui

import (
	"strings"

	"cogchat/internal/models"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) refreshViewport() {
	var content strings.Builder
	width := max(m.viewport.Width-4, 10)

	if len(m.messages) == 0 && !m.loading {
		content.WriteString(WelcomeStyle.Render("What can I help with?") + "\n")
		content.WriteString(HelpStyle.Render("Type a message below and press Enter to send.") + "\n\n")
		content.WriteString(HelpStyle.Render("Controls:\n"))
		content.WriteString(HelpStyle.Render("• Tab - Switch between sidebar and chat\n"))
		content.WriteString(HelpStyle.Render("• Ctrl+N - New conversation\n"))
		content.WriteString(HelpStyle.Render("• Ctrl+B - Show or hide the sidebar\n"))
		content.WriteString(HelpStyle.Render("• /title <name> - Rename this conversation\n"))
		content.WriteString(HelpStyle.Render("• Ctrl+C / Esc - Quit\n"))
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

func renderMessage(msg models.Message, width int) string {
	body := lipgloss.NewStyle().Width(width).Render(msg.Content)
	switch msg.Role {
	case models.RoleUser:
		return MessageStyle.Render(UserStyle.Render("You")+"\n"+body) + "\n"
	default:
		if msg.Content == ConnectError {
			body = ErrorStyle.Render(body)
		}
		return MessageStyle.Render(AssistantStyle.Render("Assistant")+"\n"+body) + "\n"
	}
}

func (m Model) sidebarView() string {
	width := sidebarWidth
	if m.narrow {
		width = m.width
	}

	var body string
	if len(m.conversations) == 0 {
		body = TitleStyle.Render("Recent Chats") + "\n\n" + HelpStyle.Render("No conversations yet")
	} else {
		body = m.convList.View()
	}
	body = HelpStyle.Render("ctrl+n  New Chat") + "\n\n" + body

	style := SidebarStyle
	if m.focus == FocusSidebar {
		style = SidebarFocusedStyle
	}
	return style.Width(width - 1).Height(m.height - 1).Render(body)
}

func (m Model) chatView() string {
	width := m.viewport.Width + 2

	header := "cogchat"
	if m.conversationID != nil {
		for _, conv := range m.conversations {
			if conv.ID == *m.conversationID {
				header += " · " + models.FormatTitle(conv.Title, conv.Messages)
				break
			}
		}
	}

	footer := m.help.View(m.keys)
	if m.status != "" {
		footer = StatusStyle.Render(m.status) + "\n" + footer
	}

	return ChatStyle.Width(width).Render(strings.Join([]string{
		TitleStyle.Render(header),
		m.viewport.View(),
		m.textarea.View(),
		footer,
	}, "\n"))
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if !m.sidebarOpen {
		return m.chatView()
	}
	if m.narrow {
		return m.sidebarView()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.chatView())
}
