package ui

import (
	"context"

	"cogchat/internal/api"
	"cogchat/internal/logger"
	"cogchat/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// detailFetchLimit bounds the detail requests in flight while loading the list
const detailFetchLimit = 4

// Results of backend calls. gen is the generation the request was issued
// under and token the loading token it holds, if any.

type conversationsLoadedMsg struct {
	gen           uint64
	conversations []models.Conversation
	err           error
}

type conversationLoadedMsg struct {
	gen    uint64
	token  uint64
	detail *models.ConversationDetail
	err    error
}

type conversationCreatedMsg struct {
	gen  uint64
	conv *models.Conversation
	err  error
}

type chatReplyMsg struct {
	gen   uint64
	token uint64
	resp  *api.ChatResponse
	err   error
}

type titleUpdatedMsg struct {
	conv *models.Conversation
	err  error
}

// loadConversations fetches the list and then every conversation's detail
// concurrently. A failed detail fetch leaves that entry summary-only.
func loadConversations(backend api.Backend, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		convs, err := backend.ListConversations(ctx)
		if err != nil {
			return conversationsLoadedMsg{gen: gen, err: err}
		}

		var g errgroup.Group
		g.SetLimit(detailFetchLimit)
		for i := range convs {
			i := i
			g.Go(func() error {
				detail, err := backend.GetConversation(ctx, convs[i].ID)
				if err != nil {
					logger.Component("ui").Warn().Err(err).
						Str("id", convs[i].ID).
						Msg("conversation detail unavailable, showing summary only")
					return nil
				}
				convs[i].Messages = detail.Messages
				return nil
			})
		}
		_ = g.Wait()

		return conversationsLoadedMsg{gen: gen, conversations: convs}
	}
}

func loadConversation(backend api.Backend, id string, gen, token uint64) tea.Cmd {
	return func() tea.Msg {
		detail, err := backend.GetConversation(context.Background(), id)
		return conversationLoadedMsg{gen: gen, token: token, detail: detail, err: err}
	}
}

func createConversation(backend api.Backend, gen uint64) tea.Cmd {
	return func() tea.Msg {
		conv, err := backend.CreateConversation(context.Background())
		return conversationCreatedMsg{gen: gen, conv: conv, err: err}
	}
}

func sendChat(backend api.Backend, message string, conversationID *string, gen, token uint64) tea.Cmd {
	var id *string
	if conversationID != nil {
		v := *conversationID
		id = &v
	}
	return func() tea.Msg {
		resp, err := backend.Chat(context.Background(), message, id)
		return chatReplyMsg{gen: gen, token: token, resp: resp, err: err}
	}
}

func updateTitle(backend api.Backend, id, title string) tea.Cmd {
	return func() tea.Msg {
		conv, err := backend.UpdateConversation(context.Background(), id, api.ConversationUpdate{Title: &title})
		return titleUpdatedMsg{conv: conv, err: err}
	}
}
