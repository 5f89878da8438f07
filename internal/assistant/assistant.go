// Package assistant produces replies for the development backend.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cogchat/internal/models"

	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the completion API answers without a reply
var ErrNoChoices = errors.New("no response from API")

// Reply is a generated assistant message
type Reply struct {
	Content    string
	TokensUsed int
	Model      string
}

// Responder generates the next assistant message for a history. The history
// includes the system message and ends with the newest user message.
type Responder interface {
	Respond(ctx context.Context, history []models.Message) (*Reply, error)
}

// OpenAIConfig configures an OpenAI responder
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // empty uses the public API
	Model     string
	MaxTokens int
}

// OpenAI answers with the chat completions API
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a responder for cfg
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

func (o *OpenAI) Respond(ctx context.Context, history []models.Message) (*Reply, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		var role string
		switch msg.Role {
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case models.RoleUser:
			role = openai.ChatMessageRoleUser
		default:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return &Reply{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      model,
	}, nil
}

// Echo repeats the newest user message. It needs no network access.
type Echo struct{}

func (Echo) Respond(ctx context.Context, history []models.Message) (*Reply, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return &Reply{Content: "You said: " + history[i].Content, Model: "echo"}, nil
		}
	}
	return &Reply{Content: "Say something!", Model: "echo"}, nil
}

var (
	_ Responder = (*OpenAI)(nil)
	_ Responder = Echo{}
)
