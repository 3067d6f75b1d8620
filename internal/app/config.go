package app

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the client's settings file. Every field has an environment
// fallback (QUORUM_*) so the binary works without a config file at all.
type Config struct {
	// ServerURL is the websocket endpoint the conversation streams over.
	ServerURL string `yaml:"server_url"`
	// APIBase is the REST base for conversation history.
	APIBase string `yaml:"api_base"`
	// UserID is the stable identity the backend keys history by. Minted
	// once and saved back when absent.
	UserID string `yaml:"user_id"`
	// ThreadID preselects a conversation thread on startup.
	ThreadID string `yaml:"thread_id"`
	// Theme selects the TUI palette.
	Theme string `yaml:"theme"`
	// RevealIntervalMs is the per-character cadence of the typing effect.
	RevealIntervalMs int `yaml:"reveal_interval_ms"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:        "ws://localhost:8000/ws",
		APIBase:          "http://localhost:8000",
		Theme:            "porcelain",
		RevealIntervalMs: 20,
	}
}

// LoadConfig reads the yaml config at path, layering environment overrides
// on top. A missing file is fine; defaults carry it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if v := os.Getenv("QUORUM_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("QUORUM_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("QUORUM_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("QUORUM_THEME"); v != "" {
		cfg.Theme = v
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultConfig().ServerURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultConfig().APIBase
	}
	if cfg.RevealIntervalMs <= 0 {
		cfg.RevealIntervalMs = DefaultConfig().RevealIntervalMs
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "quorum", "config.yml")
}
