package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cogchat/internal/assistant"
	"cogchat/internal/config"
	"cogchat/internal/logger"
	"cogchat/internal/server"
	"cogchat/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
	serveDB   string
	serveEcho bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local development backend",
	Long: `Runs a backend that stores conversations in SQLite and answers with the
OpenAI chat completions API. With --echo it repeats your messages back and
needs no API key.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides COGCHAT_SERVER_ADDR)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (overrides COGCHAT_DB_PATH)")
	serveCmd.Flags().BoolVar(&serveEcho, "echo", false, "Echo messages instead of calling OpenAI")
	rootCmd.AddCommand(serveCmd)
}

// newResponder picks the reply generator for cfg
func newResponder(cfg *config.Config, echo bool) (assistant.Responder, error) {
	if echo {
		return assistant.Echo{}, nil
	}
	if cfg.OpenAIKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required (or run with --echo)")
	}
	return assistant.NewOpenAI(assistant.OpenAIConfig{
		APIKey:    cfg.OpenAIKey,
		BaseURL:   cfg.OpenAIURL,
		Model:     cfg.OpenAIModel,
		MaxTokens: cfg.MaxTokens,
	}), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	if serveAddr != "" {
		cfg.ServerAddr = serveAddr
	}
	if serveDB != "" {
		cfg.DBPath = serveDB
	}

	responder, err := newResponder(cfg, serveEcho)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Config{Addr: cfg.ServerAddr, SystemPrompt: cfg.SystemPrompt}, db, responder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (database %s)\n", cfg.ServerAddr, cfg.DBPath)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
