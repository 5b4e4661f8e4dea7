// Package output synthesizes keystrokes for recognized text.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/murmur/internal/config"
)

// Typist types text into the focused window.
type Typist interface {
	Type(ctx context.Context, text string) error
}

// New builds the configured keystroke synthesizer.
func New(cfg config.OutputConfig, logger *slog.Logger) (Typist, error) {
	switch cfg.Backend {
	case config.BackendRobotgo:
		return NewRobotgoTypist(cfg.TypingDelay(), cfg.LeadIn()), nil
	case config.BackendCommand:
		return NewCommandTypist(cfg.Command.Argv, cfg.LeadIn(), logger), nil
	case config.BackendClipboard:
		return NewClipboardTypist(cfg.PasteKeys(), cfg.LeadIn(), logger), nil
	default:
		return nil, fmt.Errorf("unsupported output backend %q", cfg.Backend)
	}
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
