// Package server is a local development backend that speaks the same HTTP
// API the chat client uses.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cogchat/internal/assistant"
	"cogchat/internal/logger"
	"cogchat/internal/storage"

	"github.com/gin-gonic/gin"
)

// DefaultListLimit is used when GET /api/conversations/ has no limit
const DefaultListLimit = 10

// Config holds server settings
type Config struct {
	Addr         string
	SystemPrompt string
}

// Server owns the router and the components the handlers use
type Server struct {
	cfg       Config
	db        *storage.Database
	responder assistant.Responder

	router *gin.Engine
	http   *http.Server
}

// New creates a server storing conversations in db and answering with
// responder.
func New(cfg Config, db *storage.Database, responder assistant.Responder) *Server {
	s := &Server{
		cfg:       cfg,
		db:        db,
		responder: responder,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())
	s.router.SetTrustedProxies(nil)

	s.router.GET("/health", s.health)
	s.router.POST("/", s.simpleChat)

	routes := s.router.Group("/api")
	routes.GET("/conversations/", s.listConversations)
	routes.POST("/conversations/", s.createConversation)
	routes.GET("/conversations/:id", s.getConversation)
	routes.PUT("/conversations/:id", s.updateConversation)
	routes.POST("/chat/", s.chat)
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP on the configured address and blocks until Shutdown
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Component("server").Info().Str("addr", s.cfg.Addr).Msg("HTTP server starting")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Component("server").Info().Msg("shutting down server")
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
