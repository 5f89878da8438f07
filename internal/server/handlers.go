package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cogchat/internal/api"
	"cogchat/internal/logger"
	"cogchat/internal/models"
	"cogchat/internal/storage"

	"github.com/gin-gonic/gin"
)

// abort replies with a {"detail": ...} error body
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// fail logs err on the request and replies with a 500
func fail(c *gin.Context, err error) {
	c.Error(err)
	abort(c, http.StatusInternalServerError, err.Error())
}

func toConversation(conv storage.Conversation) models.Conversation {
	return models.Conversation{
		ID:        conv.ID,
		Title:     conv.Title,
		Summary:   conv.Summary,
		CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: conv.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMessages(msgs []storage.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, models.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) listConversations(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abort(c, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = n
	}

	convs, err := s.db.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}

	out := api.ConversationList{Conversations: make([]models.Conversation, 0, len(convs))}
	for _, conv := range convs {
		out.Conversations = append(out.Conversations, toConversation(conv))
	}
	c.JSON(http.StatusOK, out)
}

// createConversation accepts an empty body or {"title": ...}
func (s *Server) createConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abort(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	conv, err := s.db.CreateConversation(c.Request.Context(), strings.TrimSpace(req.Title), s.cfg.SystemPrompt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toConversation(*conv))
}

func (s *Server) getConversation(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := s.db.GetConversation(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}

	msgs, err := s.db.Messages(ctx, conv.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ConversationDetail{
		ID:       conv.ID,
		Title:    conv.Title,
		Summary:  conv.Summary,
		Messages: toMessages(msgs),
	})
}

func (s *Server) updateConversation(c *gin.Context) {
	var req api.ConversationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		abort(c, http.StatusUnprocessableEntity, "title must not be empty")
		return
	}

	conv, err := s.db.UpdateConversation(c.Request.Context(), c.Param("id"), req.Title, req.Summary)
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toConversation(*conv))
}

// chat appends the user message to a conversation, creating one when the id
// is missing or unknown, and stores the generated reply.
func (s *Server) chat(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Component("chat")

	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		abort(c, http.StatusUnprocessableEntity, "message must not be empty")
		return
	}

	var conv *storage.Conversation
	if req.ConversationID != nil {
		found, err := s.db.GetConversation(ctx, *req.ConversationID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			log.Warn().Str("id", *req.ConversationID).Msg("unknown conversation, starting a new one")
		case err != nil:
			fail(c, err)
			return
		default:
			conv = found
		}
	}
	if conv == nil {
		created, err := s.db.CreateConversation(ctx, models.DefaultTitle, s.cfg.SystemPrompt)
		if err != nil {
			fail(c, err)
			return
		}
		conv = created
	}

	if err := s.db.AddMessage(ctx, storage.Message{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        req.Message,
	}); err != nil {
		fail(c, err)
		return
	}

	history, err := s.db.Messages(ctx, conv.ID)
	if err != nil {
		fail(c, err)
		return
	}

	reply, err := s.responder.Respond(ctx, toMessages(history))
	if err != nil {
		log.Error().Err(err).Str("id", conv.ID).Msg("generate reply")
		fail(c, err)
		return
	}

	tokens := reply.TokensUsed
	model := reply.Model
	if err := s.db.AddMessage(ctx, storage.Message{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply.Content,
		TokensUsed:     &tokens,
		Model:          &model,
	}); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, api.ChatResponse{Reply: reply.Content, ConversationID: conv.ID})
}

// simpleChat answers a single message with no stored history
func (s *Server) simpleChat(c *gin.Context) {
	var req api.SimpleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		abort(c, http.StatusUnprocessableEntity, "message must not be empty")
		return
	}

	var history []models.Message
	if s.cfg.SystemPrompt != "" {
		history = append(history, models.Message{Role: models.RoleSystem, Content: s.cfg.SystemPrompt})
	}
	history = append(history, models.Message{Role: models.RoleUser, Content: req.Message})

	reply, err := s.responder.Respond(c.Request.Context(), history)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.SimpleResponse{Reply: reply.Content})
}
