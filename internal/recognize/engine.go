// Package recognize runs offline speech recognition over finished recordings.
package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/recording"
)

// Engine turns one closed recording into text. Empty text means no speech.
type Engine interface {
	Transcribe(ctx context.Context, rec recording.Recording) (string, error)
}

// New builds the configured recognition engine.
func New(cfg config.RecognizerConfig, logger *slog.Logger) (Engine, error) {
	switch cfg.Backend {
	case config.BackendCommand:
		return NewCommandEngine(cfg.Command.Argv, cfg.Timeout()), nil
	case config.BackendWhisperServer:
		return NewServerEngine(cfg.URL, cfg.Language, &http.Client{Timeout: cfg.Timeout()}), nil
	default:
		return nil, fmt.Errorf("unsupported recognizer backend %q", cfg.Backend)
	}
}
