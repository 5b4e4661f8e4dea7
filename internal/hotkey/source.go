package hotkey

import (
	"fmt"
	"log/slog"

	"github.com/rbright/murmur/internal/config"
)

// NewSource builds the configured hotkey backend.
func NewSource(cfg config.HotkeyConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Backend {
	case config.BackendX11:
		return NewX11Source(cfg.Modifier, cfg.Trigger, logger)
	case config.BackendEvdev:
		return NewEvdevSource(cfg.Modifier, cfg.Trigger, logger)
	default:
		return nil, fmt.Errorf("unsupported hotkey backend %q", cfg.Backend)
	}
}

// Check runs the backend's capability preflight without subscribing.
func Check(cfg config.HotkeyConfig) (string, error) {
	switch cfg.Backend {
	case config.BackendX11:
		if err := CheckX11(); err != nil {
			return "", err
		}
		return "DISPLAY is set", nil
	case config.BackendEvdev:
		return CheckEvdev()
	default:
		return "", fmt.Errorf("unsupported hotkey backend %q", cfg.Backend)
	}
}
