package main

import (
	"fmt"

	"cogchat/internal/api"
	"cogchat/internal/config"
	"cogchat/internal/logger"
	"cogchat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	debugMode  bool
	backendURL string
)

var rootCmd = &cobra.Command{
	Use:   "cogchat",
	Short: "Terminal chat client for a conversation backend",
	Long: `cogchat is a terminal chat client. Past conversations are listed in a
sidebar; pick one to continue it or press ctrl+n to start a new one.`,
	RunE:          runChat,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var simpleCmd = &cobra.Command{
	Use:   "simple",
	Short: "Single-session chat with no conversation history",
	RunE:  runSimple,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (overrides COGCHAT_BACKEND_URL)")
	rootCmd.AddCommand(simpleCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration, applies command-line overrides and starts file
// logging. Callers must defer logger.Close.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
		cfg.SimpleURL = backendURL
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}
	if err := logger.Init(cfg.LogFile, cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Component("main").Info().Str("backend", cfg.BackendURL).Msg("starting chat")

	client := api.NewClient(cfg.BackendURL, api.WithListLimit(cfg.ListLimit))
	p := tea.NewProgram(ui.NewModel(client, cfg.NarrowWidth), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

func runSimple(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Component("main").Info().Str("backend", cfg.SimpleURL).Msg("starting simple chat")

	p := tea.NewProgram(ui.NewSimpleModel(api.NewClient(cfg.SimpleURL)), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
