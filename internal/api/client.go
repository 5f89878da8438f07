// Package api is the HTTP client for the chat backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cogchat/internal/models"

	"github.com/go-resty/resty/v2"
)

// Error reports a failed backend call. Transport failures, error statuses
// and undecodable bodies all surface as *Error.
type Error struct {
	Op     string
	Status int // zero when no response was received
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Backend is the conversation API the multi-conversation UI talks to
type Backend interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.ConversationDetail, error)
	CreateConversation(ctx context.Context) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, id string, update ConversationUpdate) (*models.Conversation, error)
	Chat(ctx context.Context, message string, conversationID *string) (*ChatResponse, error)
}

// SimpleBackend is the single-session endpoint at the backend root
type SimpleBackend interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatRequest is the body of POST /api/chat/
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

// ChatResponse is the reply to POST /api/chat/
type ChatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
}

// ConversationUpdate is the body of PUT /api/conversations/{id}
type ConversationUpdate struct {
	Title   *string `json:"title,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// ConversationList is the body returned by GET /api/conversations/
type ConversationList struct {
	Conversations []models.Conversation `json:"conversations"`
}

// SimpleRequest is the body of POST / in single-session mode
type SimpleRequest struct {
	Message string `json:"message"`
}

// SimpleResponse is the reply to POST / in single-session mode
type SimpleResponse struct {
	Reply string `json:"reply"`
}

// HealthResponse is the body returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// Client implements Backend and SimpleBackend over resty.
type Client struct {
	http      *resty.Client
	listLimit int
}

// Option configures a Client
type Option func(*Client)

// WithListLimit asks the backend for at most n conversations. Zero leaves
// the limit to the backend.
func WithListLimit(n int) Option {
	return func(c *Client) { c.listLimit = n }
}

// NewClient creates a client for the backend at baseURL. Requests have no
// timeout and are never retried.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) request(ctx context.Context, result any) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetResult(result).
		ForceContentType("application/json")
}

func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		e := &Error{Op: op, Err: err}
		if resp != nil && resp.RawResponse != nil {
			e.Status = resp.StatusCode()
		}
		return e
	}
	if resp.IsError() {
		return &Error{Op: op, Status: resp.StatusCode(), Err: errors.New(resp.String())}
	}
	return nil
}

// ListConversations fetches the conversation summaries in backend order.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out ConversationList
	req := c.request(ctx, &out)
	if c.listLimit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(c.listLimit))
	}
	resp, err := req.Get("/api/conversations/")
	if err := check("list conversations", resp, err); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// GetConversation fetches the full record of one conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.ConversationDetail, error) {
	var out models.ConversationDetail
	resp, err := c.request(ctx, &out).
		SetPathParam("id", id).
		Get("/api/conversations/{id}")
	if err := check("get conversation", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateConversation asks the backend for a new, empty conversation.
func (c *Client) CreateConversation(ctx context.Context) (*models.Conversation, error) {
	var out models.Conversation
	resp, err := c.request(ctx, &out).Post("/api/conversations/")
	if err := check("create conversation", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConversation changes the title or summary of a conversation.
func (c *Client) UpdateConversation(ctx context.Context, id string, update ConversationUpdate) (*models.Conversation, error) {
	var out models.Conversation
	resp, err := c.request(ctx, &out).
		SetPathParam("id", id).
		SetBody(update).
		Put("/api/conversations/{id}")
	if err := check("update conversation", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends message to the conversation with the given id. A nil id lets
// the backend start a new conversation; the returned id says which one was
// used.
func (c *Client) Chat(ctx context.Context, message string, conversationID *string) (*ChatResponse, error) {
	var out ChatResponse
	resp, err := c.request(ctx, &out).
		SetBody(ChatRequest{Message: message, ConversationID: conversationID}).
		Post("/api/chat/")
	if err := check("chat", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send posts message to the single-session endpoint and returns the reply.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	var out SimpleResponse
	resp, err := c.request(ctx, &out).
		SetBody(SimpleRequest{Message: message}).
		Post("/")
	if err := check("send", resp, err); err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out HealthResponse
	resp, err := c.request(ctx, &out).Get("/health")
	if err := check("health", resp, err); err != nil {
		return "", err
	}
	return out.Status, nil
}

var (
	_ Backend       = (*Client)(nil)
	_ SimpleBackend = (*Client)(nil)
)
