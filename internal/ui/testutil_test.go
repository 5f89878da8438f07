package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"cogchat/internal/api"
	"cogchat/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("connection refused")

// fakeBackend is an in-memory api.Backend with switchable failures
type fakeBackend struct {
	mu sync.Mutex

	list    []models.Conversation
	listErr error
	details map[string]models.ConversationDetail
	failing map[string]bool

	created   models.Conversation
	createErr error

	chatResp  api.ChatResponse
	chatErr   error
	chatCalls []api.ChatRequest

	updateErr   error
	updateCalls []string

	listCalls   int
	detailCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		details: map[string]models.ConversationDetail{},
		failing: map[string]bool{},
	}
}

func (f *fakeBackend) addConversation(id, title string, msgs ...models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = append(f.list, models.Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: "2024-05-01T10:00:00",
		UpdatedAt: "2024-05-01T10:00:00",
	})
	f.details[id] = models.ConversationDetail{ID: id, Title: title, Messages: msgs}
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Conversation(nil), f.list...), nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id string) (*models.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.failing[id] {
		return nil, &api.Error{Op: "get conversation", Err: errOffline}
	}
	detail, ok := f.details[id]
	if !ok {
		return nil, &api.Error{Op: "get conversation", Status: 404, Err: fmt.Errorf("not found")}
	}
	return &detail, nil
}

func (f *fakeBackend) CreateConversation(ctx context.Context) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	conv := f.created
	return &conv, nil
}

func (f *fakeBackend) UpdateConversation(ctx context.Context, id string, update api.ConversationUpdate) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, id)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Conversation{ID: id, Title: *update.Title}, nil
}

func (f *fakeBackend) Chat(ctx context.Context, message string, conversationID *string) (*api.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls = append(f.chatCalls, api.ChatRequest{Message: message, ConversationID: conversationID})
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	resp := f.chatResp
	return &resp, nil
}

// fakeSimple is an in-memory api.SimpleBackend
type fakeSimple struct {
	reply string
	err   error
	sent  []string
}

func (f *fakeSimple) Send(ctx context.Context, message string) (string, error) {
	f.sent = append(f.sent, message)
	return f.reply, f.err
}

// update feeds msg to m and returns the concrete model
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return model, cmd
}

// collect runs cmd and returns every message it produces, flattening batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// run executes cmd and feeds the backend results it produces into m. Follow-up
// commands are returned, not run.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	var cmds []tea.Cmd
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case conversationsLoadedMsg, conversationLoadedMsg, conversationCreatedMsg, chatReplyMsg, titleUpdatedMsg:
			var next tea.Cmd
			m, next = update(t, m, msg)
			cmds = append(cmds, next)
		}
	}
	return m, tea.Batch(cmds...)
}

func keyPress(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// readyModel returns a model that has received a wide window size
func readyModel(t *testing.T, backend api.Backend) Model {
	t.Helper()
	m := NewModel(backend, 80)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func typeInput(m Model, text string) Model {
	m.textarea.SetValue(text)
	return m
}
