package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cogchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, body string, got *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var history = []models.Message{
	{Role: models.RoleSystem, Content: "You are a helpful assistant."},
	{Role: models.RoleUser, Content: "hi"},
	{Role: models.RoleAssistant, Content: "hello"},
	{Role: models.RoleUser, Content: "how are you?"},
}

func TestOpenAI_Respond(t *testing.T) {
	var req completionRequest
	srv := fakeOpenAI(t, `{
		"id": "c1",
		"model": "gpt-3.5-turbo-0125",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "fine, thanks"}}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 3, "total_tokens": 23}
	}`, &req)

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Model: "gpt-3.5-turbo", MaxTokens: 500})
	reply, err := o.Respond(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, "fine, thanks", reply.Content)
	assert.Equal(t, 23, reply.TokensUsed)
	assert.Equal(t, "gpt-3.5-turbo-0125", reply.Model)

	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	assert.Equal(t, 500, req.MaxTokens)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "how are you?", req.Messages[3].Content)
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv := fakeOpenAI(t, `{"id": "c1", "choices": []}`, nil)

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	_, err := o.Respond(context.Background(), history)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestOpenAI_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	_, err := o.Respond(context.Background(), history)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestOpenAI_DefaultModel(t *testing.T) {
	var req completionRequest
	srv := fakeOpenAI(t, `{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`, &req)

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	reply, err := o.Respond(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	assert.Equal(t, "gpt-3.5-turbo", reply.Model)
}

func TestEcho(t *testing.T) {
	reply, err := Echo{}.Respond(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "You said: how are you?", reply.Content)
	assert.Equal(t, "echo", reply.Model)

	reply, err = Echo{}.Respond(context.Background(), history[:1])
	require.NoError(t, err)
	assert.Equal(t, "Say something!", reply.Content)
}
