package ui

import (
	"fmt"
	"strings"

	"cogchat/internal/api"
	"cogchat/internal/logger"
	"cogchat/internal/models"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type FocusState int

const (
	FocusSidebar FocusState = iota
	FocusChat
)

const (
	// ConnectError replaces the reply when a message could not be delivered
	ConnectError = "Error: Could not connect to backend."

	// InitialVisible conversations are listed before any "load more"
	InitialVisible = 5
	// VisibleStep is how many more conversations each "load more" reveals
	VisibleStep = 5

	// DefaultNarrowWidth is the terminal width below which the sidebar collapses
	DefaultNarrowWidth = 80

	sidebarWidth = 32
	titleCommand = "/title "
)

// Model is the multi-conversation chat screen. It is the only owner of the
// UI state; every backend result comes back through Update.
type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	convList list.Model
	help     help.Model
	keys     keyMap

	backend     api.Backend
	narrowWidth int

	// messages are the non-system messages of conversationID, or empty for
	// a conversation the backend has not created yet.
	messages       []models.Message
	conversationID *string
	conversations  []models.Conversation
	visible        int
	sidebarOpen    bool
	narrow         bool
	loading        bool
	status         string

	// listGen guards list refreshes. viewGen changes whenever the active
	// message sequence is replaced. loadingGen identifies the request that
	// currently owns the loading flag.
	listGen    uint64
	viewGen    uint64
	loadingGen uint64

	focus  FocusState
	width  int
	height int
	ready  bool
}

// NewModel creates the chat screen. narrowWidth is the breakpoint in
// columns; zero selects DefaultNarrowWidth.
func NewModel(backend api.Backend, narrowWidth int) Model {
	if narrowWidth <= 0 {
		narrowWidth = DefaultNarrowWidth
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = LoadingStyle

	convList := list.New(nil, list.NewDefaultDelegate(), sidebarWidth-2, 20)
	convList.Title = "Recent Chats"
	convList.SetShowStatusBar(false)
	convList.SetFilteringEnabled(false)
	convList.SetShowHelp(false)
	convList.DisableQuitKeybindings()

	m := Model{
		viewport:    viewport.New(50, 20),
		textarea:    ta,
		spinner:     sp,
		convList:    convList,
		help:        help.New(),
		keys:        defaultKeyMap(),
		backend:     backend,
		narrowWidth: narrowWidth,
		messages:    []models.Message{},
		visible:     InitialVisible,
		sidebarOpen: true,
		focus:       FocusChat,
	}
	m.refreshViewport()
	return m
}

// Init starts the initial conversation list load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, loadConversations(m.backend, m.listGen))
}

// Update handles UI events and backend results
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.refreshViewport()
		}
		return m, cmd

	case conversationsLoadedMsg:
		m.applyConversations(msg)
		return m, nil

	case conversationLoadedMsg:
		m.applyConversation(msg)
		return m, nil

	case conversationCreatedMsg:
		return m, m.applyCreated(msg)

	case chatReplyMsg:
		return m, m.applyReply(msg)

	case titleUpdatedMsg:
		if msg.err != nil {
			logger.Component("ui").Error().Err(msg.err).Msg("rename conversation")
			m.status = "Could not rename conversation"
			return m, nil
		}
		m.status = fmt.Sprintf("Renamed to %q", msg.conv.Title)
		return m, m.fetchConversations()
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		clCmd tea.Cmd
	)
	if m.focus == FocusChat && !m.loading {
		m.textarea, tiCmd = m.textarea.Update(msg)
	}
	if m.focus == FocusSidebar {
		m.convList, clCmd = m.convList.Update(msg)
	}
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, clCmd)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == FocusChat && m.sidebarOpen {
			m.setFocus(FocusSidebar)
		} else {
			m.setFocus(FocusChat)
		}
		return nil, true

	case key.Matches(msg, m.keys.New):
		return m.startNewConversation(), true

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.sidebarOpen = !m.sidebarOpen
		switch {
		case !m.sidebarOpen:
			m.setFocus(FocusChat)
		case m.narrow:
			// The sidebar covers the whole screen.
			m.setFocus(FocusSidebar)
		}
		m.layout()
		return nil, true

	case key.Matches(msg, m.keys.Refresh):
		return m.fetchConversations(), true

	case key.Matches(msg, m.keys.Enter):
		if m.focus == FocusSidebar {
			switch item := m.convList.SelectedItem().(type) {
			case conversationItem:
				return m.selectConversation(item.conv.ID), true
			case loadMoreItem:
				m.revealMore()
				return nil, true
			}
			return nil, true
		}
		return m.submit(), true
	}
	return nil, false
}

func (m *Model) setFocus(f FocusState) {
	m.focus = f
	if f == FocusChat && !m.loading {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// resize recomputes the narrow flag. Entering narrow width always collapses
// the sidebar; widening never reopens it.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.narrow = width < m.narrowWidth
	if m.narrow {
		m.sidebarOpen = false
		if m.focus == FocusSidebar {
			m.setFocus(FocusChat)
		}
	}
	m.ready = true
	m.layout()
}

func (m *Model) layout() {
	chatWidth := m.width - 2
	if m.sidebarOpen && !m.narrow {
		chatWidth -= sidebarWidth + 1
	}
	chatWidth = max(chatWidth, 10)
	chatHeight := max(m.height-8, 3)

	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.textarea.SetWidth(chatWidth - 2)

	listWidth := sidebarWidth - 2
	if m.narrow {
		listWidth = max(m.width-2, 10)
	}
	m.convList.SetSize(listWidth, max(m.height-3, 3))
	m.help.Width = chatWidth
	m.refreshViewport()
}

func (m *Model) beginLoading() uint64 {
	m.loadingGen++
	m.loading = true
	m.textarea.Blur()
	return m.loadingGen
}

// endLoading clears the loading flag unless a newer request has taken it over.
func (m *Model) endLoading(token uint64) {
	if token != m.loadingGen {
		return
	}
	m.loading = false
	if m.focus == FocusChat {
		m.textarea.Focus()
	}
}

func (m *Model) fetchConversations() tea.Cmd {
	m.listGen++
	return loadConversations(m.backend, m.listGen)
}

func (m *Model) applyConversations(msg conversationsLoadedMsg) {
	if msg.err != nil {
		logger.Component("ui").Error().Err(msg.err).Msg("fetch conversations")
		return
	}
	if msg.gen != m.listGen {
		return
	}
	m.conversations = msg.conversations
	m.syncList()
}

func (m *Model) selectConversation(id string) tea.Cmd {
	m.viewGen++
	token := m.beginLoading()
	m.status = ""
	m.refreshViewport()
	return loadConversation(m.backend, id, m.viewGen, token)
}

func (m *Model) applyConversation(msg conversationLoadedMsg) {
	m.endLoading(msg.token)
	defer m.refreshViewport()

	if msg.err != nil {
		logger.Component("ui").Error().Err(msg.err).Msg("load conversation")
		return
	}
	if msg.gen != m.viewGen {
		return
	}

	m.messages = models.DisplayMessages(msg.detail.Messages)
	id := msg.detail.ID
	m.conversationID = &id
	if m.narrow {
		m.sidebarOpen = false
		m.layout()
	}
	m.setFocus(FocusChat)
	m.syncList()
}

// startNewConversation clears the screen before asking the backend for a
// conversation. A failed create leaves the screen cleared with no id.
func (m *Model) startNewConversation() tea.Cmd {
	m.viewGen++
	m.messages = []models.Message{}
	m.conversationID = nil
	m.status = ""
	m.syncList()
	m.refreshViewport()
	return createConversation(m.backend, m.viewGen)
}

func (m *Model) applyCreated(msg conversationCreatedMsg) tea.Cmd {
	if msg.err != nil {
		logger.Component("ui").Error().Err(msg.err).Msg("create conversation")
		return nil
	}
	if msg.gen == m.viewGen {
		id := msg.conv.ID
		m.conversationID = &id
		if m.narrow {
			m.sidebarOpen = false
			m.layout()
		}
		m.setFocus(FocusChat)
	}
	return m.fetchConversations()
}

// revealMore shows VisibleStep more conversations without refetching.
func (m *Model) revealMore() {
	m.visible += VisibleStep
	m.syncList()
}

// submit sends the input as a user message. The message is shown before the
// backend answers and stays even if the request fails.
func (m *Model) submit() tea.Cmd {
	if m.loading {
		return nil
	}
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	if title, ok := strings.CutPrefix(text+" ", titleCommand); ok {
		m.textarea.Reset()
		return m.renameConversation(strings.TrimSpace(title))
	}

	m.messages = append(m.messages, models.Message{Role: models.RoleUser, Content: text})
	token := m.beginLoading()
	m.textarea.Reset()
	m.status = ""
	m.refreshViewport()
	return sendChat(m.backend, text, m.conversationID, m.viewGen, token)
}

func (m *Model) applyReply(msg chatReplyMsg) tea.Cmd {
	m.endLoading(msg.token)
	defer m.refreshViewport()

	current := msg.gen == m.viewGen
	if msg.err != nil {
		logger.Component("ui").Error().Err(msg.err).Msg("send message")
		if current {
			m.messages = append(m.messages, models.Message{Role: models.RoleAssistant, Content: ConnectError})
		}
		return nil
	}

	if current {
		m.messages = append(m.messages, models.Message{Role: models.RoleAssistant, Content: msg.resp.Reply})
		id := msg.resp.ConversationID
		m.conversationID = &id
	}
	return m.fetchConversations()
}

func (m *Model) renameConversation(title string) tea.Cmd {
	if title == "" {
		m.status = "Usage: /title <new title>"
		return nil
	}
	if m.conversationID == nil {
		m.status = "Start or select a conversation before renaming it"
		return nil
	}
	return updateTitle(m.backend, *m.conversationID, title)
}

func (m *Model) syncList() {
	m.convList.SetItems(sidebarItems(m.conversations, m.visible, m.conversationID))
	if m.conversationID == nil {
		return
	}
	for i, item := range m.convList.Items() {
		if ci, ok := item.(conversationItem); ok && ci.conv.ID == *m.conversationID {
			m.convList.Select(i)
			return
		}
	}
}
