package main

import (
	"context"
	"fmt"
	"time"

	"cogchat/internal/api"
	"cogchat/internal/logger"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the backend is reachable",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := api.NewClient(cfg.BackendURL).Health(ctx)
	if err != nil {
		logger.Component("main").Error().Err(err).Str("backend", cfg.BackendURL).Msg("ping")
		return fmt.Errorf("backend %s unreachable: %w", cfg.BackendURL, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.BackendURL, status)
	return nil
}
