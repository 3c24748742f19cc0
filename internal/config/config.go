// Package config loads the bot's TOML configuration. Everything has a
// working default: a fresh install runs with no config file at all, and a
// partial file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the full process configuration.
type Config struct {
	Gateway GatewayConfig `toml:"gateway"`
	Store   StoreConfig   `toml:"store"`
	Bot     BotConfig     `toml:"bot"`
	AI      AIConfig      `toml:"ai"`
}

// GatewayConfig controls the HTTP surface.
type GatewayConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StoreConfig controls persistence.
type StoreConfig struct {
	Path string `toml:"path"` // sqlite file; empty means <home>/poinbot.db
}

// BotConfig controls session behavior.
type BotConfig struct {
	Prefix      string `toml:"prefix"`
	GameReward  int64  `toml:"game_reward"`
	TokenLength int    `toml:"token_length"`
}

// AIConfig controls the assistant backend.
type AIConfig struct {
	BaseURL       string `toml:"base_url"`
	APIKey        string `toml:"api_key"` // falls back to POINBOT_AI_KEY
	ChatModel     string `toml:"chat_model"`
	ImageModel    string `toml:"image_model"`
	VideoModel    string `toml:"video_model"`
	SystemPrompt  string `toml:"system_prompt"`
	HistoryLimit  int    `toml:"history_limit"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Host:    "127.0.0.1",
			Port:    8321,
			Metrics: true,
		},
		Bot: BotConfig{
			Prefix:      "/",
			GameReward:  100,
			TokenLength: 6,
		},
		AI: AIConfig{
			BaseURL:       "https://api.groq.com/openai/v1",
			ChatModel:     "llama-3.1-70b-versatile",
			ImageModel:    "flux-schnell",
			VideoModel:    "video-gen-1",
			HistoryLimit:  20,
			MaxConcurrent: 4,
		},
	}
}

// Home returns the bot's home directory: POINBOT_HOME when set, otherwise
// ~/.poinbot.
func Home() (string, error) {
	if home := os.Getenv("POINBOT_HOME"); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(userHome, ".poinbot"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.toml"), nil
}

// Load reads the config at path, layered over DefaultConfig. A missing
// file is not an error. The AI key falls back to the POINBOT_AI_KEY
// environment variable when the file leaves it empty.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("POINBOT_AI_KEY")
	}
	if cfg.Store.Path == "" {
		home, err := Home()
		if err != nil {
			return cfg, err
		}
		cfg.Store.Path = filepath.Join(home, "poinbot.db")
	}
	return cfg, cfg.validate()
}

// Save writes the config as TOML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port %d out of range", c.Gateway.Port)
	}
	if c.Bot.TokenLength < 4 {
		return fmt.Errorf("bot.token_length %d too short", c.Bot.TokenLength)
	}
	if c.Bot.GameReward <= 0 {
		return fmt.Errorf("bot.game_reward must be positive")
	}
	return nil
}
