// Package observability provides logger construction and the structured
// field conventions shared by the arena components.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/arena/internal/config"
)

// Field keys used across the code base so log queries stay stable.
const (
	KeyGame   = "game_id"
	KeyPlayer = "player_id"
	KeyEvent  = "event"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]interface{}{"service": "arena"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ForGame returns a child logger tagged with the game id.
//
// Precondition: logger must be non-nil.
func ForGame(logger *zap.Logger, gameID string) *zap.Logger {
	return logger.With(zap.String(KeyGame, gameID))
}

// Game returns the structured field for a game id.
func Game(gameID string) zap.Field { return zap.String(KeyGame, gameID) }

// Player returns the structured field for a player id.
func Player(playerID string) zap.Field { return zap.String(KeyPlayer, playerID) }
