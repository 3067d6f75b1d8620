package app

import (
	"github.com/google/uuid"

	"quorum-cli/internal/history"
	"quorum-cli/internal/stream"
)

// Application wires the client's collaborators together: identity, logging,
// the history REST client, and the websocket stream client.
type Application struct {
	Config  Config
	Logger  *Logger
	History *history.Client
	Stream  *stream.Client
}

func NewApplication(cfg Config) (*Application, error) {
	// History requests must always carry an identity; mint one on first
	// run and keep it stable across sessions.
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
		if path := DefaultConfigPath(); path != "" {
			// Best effort; a read-only config dir just means a new
			// identity next run.
			_ = SaveConfig(cfg, path)
		}
	}

	logger := NewLogger(DefaultLogWriter())
	return &Application{
		Config:  cfg,
		Logger:  logger,
		History: history.NewClient(cfg.APIBase),
		Stream:  stream.NewClient(cfg.ServerURL, logger),
	}, nil
}
