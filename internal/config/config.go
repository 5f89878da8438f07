// Package config loads cogchat settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds settings for the client and the development backend
type Config struct {
	// Client
	BackendURL  string `env:"COGCHAT_BACKEND_URL" envDefault:"http://localhost:8000"`
	SimpleURL   string `env:"COGCHAT_SIMPLE_URL"` // defaults to BackendURL
	ListLimit   int    `env:"COGCHAT_LIST_LIMIT" envDefault:"50"`
	NarrowWidth int    `env:"COGCHAT_NARROW_WIDTH" envDefault:"80"`

	// Logging
	LogFile  string `env:"COGCHAT_LOG_FILE"` // defaults to ~/.cogchat/cogchat.log
	LogLevel string `env:"COGCHAT_LOG_LEVEL" envDefault:"info"`

	// Development backend
	ServerAddr   string `env:"COGCHAT_SERVER_ADDR" envDefault:"localhost:8000"`
	DBPath       string `env:"COGCHAT_DB_PATH"` // defaults to ~/.cogchat/conversations.db
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIURL    string `env:"OPENAI_BASE_URL"`
	MaxTokens    int    `env:"COGCHAT_MAX_TOKENS" envDefault:"500"`
	SystemPrompt string `env:"COGCHAT_SYSTEM_PROMPT" envDefault:"You are a helpful assistant."`
}

// Dir returns the directory cogchat keeps its files in
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cogchat"), nil
}

// Load reads an optional .env file from the working directory and then parses
// the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	cfg.SimpleURL = strings.TrimRight(strings.TrimSpace(cfg.SimpleURL), "/")
	if cfg.SimpleURL == "" {
		cfg.SimpleURL = cfg.BackendURL
	}
	cfg.OpenAIKey = strings.TrimSpace(cfg.OpenAIKey)

	if cfg.ListLimit < 0 {
		cfg.ListLimit = 0
	}
	if cfg.NarrowWidth <= 0 {
		cfg.NarrowWidth = 80
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}

	if cfg.LogFile == "" || cfg.DBPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(dir, "cogchat.log")
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(dir, "conversations.db")
		}
	}

	return cfg, nil
}
