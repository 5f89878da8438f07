package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"cogchat/internal/api"
	"cogchat/internal/assistant"
	"cogchat/internal/models"
	"cogchat/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const systemPrompt = "You are a helpful assistant."

func init() {
	gin.SetMode(gin.TestMode)
}

type failingResponder struct{}

func (failingResponder) Respond(ctx context.Context, history []models.Message) (*assistant.Reply, error) {
	return nil, errors.New("model unavailable")
}

type testEnv struct {
	db     *storage.Database
	server *Server
	http   *httptest.Server
	client *api.Client
}

func newTestEnv(t *testing.T, responder assistant.Responder) *testEnv {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(Config{SystemPrompt: systemPrompt}, db, responder)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{db: db, server: s, http: ts, client: api.NewClient(ts.URL)}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	status, err := env.client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
}

func TestCreateAndGetConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	conv, err := env.client.CreateConversation(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, models.DefaultTitle, conv.Title)
	_, ok := models.ParseTimestamp(conv.CreatedAt)
	assert.True(t, ok, "created_at %q", conv.CreatedAt)

	detail, err := env.client.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, detail.ID)
	assert.Equal(t, []models.Message{{Role: models.RoleSystem, Content: systemPrompt}}, detail.Messages)
	assert.Empty(t, models.DisplayMessages(detail.Messages))
}

func TestCreateConversation_WithTitle(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	resp, err := http.Post(env.http.URL+"/api/conversations/", "application/json", strings.NewReader(`{"title":"Groceries"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	convs, err := env.client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Groceries", convs[0].Title)
}

func TestGetConversation_NotFound(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	_, err := env.client.GetConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestListConversations_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	var ids []string
	for i := 0; i < 12; i++ {
		conv, err := env.client.CreateConversation(ctx)
		require.NoError(t, err)
		ids = append(ids, conv.ID)
	}

	// Default limit.
	convs, err := env.client.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, DefaultListLimit)

	// Chatting in the oldest conversation moves it to the front.
	_, err = env.client.Chat(ctx, "bump", &ids[0])
	require.NoError(t, err)

	convs, err = api.NewClient(env.http.URL, api.WithListLimit(50)).ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 12)
	assert.Equal(t, ids[0], convs[0].ID)
}

func TestListConversations_BadLimit(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	resp, err := http.Get(env.http.URL + "/api/conversations/?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUpdateConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	conv, err := env.client.CreateConversation(ctx)
	require.NoError(t, err)

	title := "Weekend plans"
	updated, err := env.client.UpdateConversation(ctx, conv.ID, api.ConversationUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	detail, err := env.client.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, title, detail.Title)
}

func TestUpdateConversation_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	title := "x"
	_, err := env.client.UpdateConversation(ctx, "missing", api.ConversationUpdate{Title: &title})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	conv, err := env.client.CreateConversation(ctx)
	require.NoError(t, err)
	blank := "  "
	_, err = env.client.UpdateConversation(ctx, conv.ID, api.ConversationUpdate{Title: &blank})
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestChat_NewConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	resp, err := env.client.Chat(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", resp.Reply)
	require.NotEmpty(t, resp.ConversationID)

	detail, err := env.client.GetConversation(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "You said: hello"},
	}, detail.Messages)

	stored, err := env.db.Messages(ctx, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.NotNil(t, stored[2].Model)
	assert.Equal(t, "echo", *stored[2].Model)
	require.NotNil(t, stored[2].TokensUsed)
}

func TestChat_ExistingConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	first, err := env.client.Chat(ctx, "one", nil)
	require.NoError(t, err)
	second, err := env.client.Chat(ctx, "two", &first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	detail, err := env.client.GetConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, models.DisplayMessages(detail.Messages), 4)
}

func TestChat_UnknownConversationStartsNew(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	missing := "does-not-exist"
	resp, err := env.client.Chat(ctx, "hi", &missing)
	require.NoError(t, err)
	assert.NotEqual(t, missing, resp.ConversationID)

	_, err = env.client.GetConversation(ctx, resp.ConversationID)
	assert.NoError(t, err)
}

func TestChat_EmptyMessage(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	_, err := env.client.Chat(context.Background(), "   ", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestChat_ResponderFailure(t *testing.T) {
	env := newTestEnv(t, failingResponder{})
	_, err := env.client.Chat(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestSimpleChat(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, assistant.Echo{})

	reply, err := env.client.Send(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "You said: ping", reply)

	// Single-session messages are not stored.
	convs, err := env.client.ListConversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestSimpleChat_BadBody(t *testing.T) {
	env := newTestEnv(t, assistant.Echo{})
	resp, err := http.Post(env.http.URL+"/", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
