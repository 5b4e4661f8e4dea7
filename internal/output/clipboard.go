package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
	"github.com/rbright/murmur/internal/fault"
)

// ClipboardTypist places text on the clipboard and sends the paste shortcut
// to the focused window. The clipboard keeps the text afterwards.
type ClipboardTypist struct {
	keys   []string
	leadIn time.Duration
	logger *slog.Logger

	write func(string) error
	tap   func(key string, modifiers []string) error
	sleep func(context.Context, time.Duration) error
}

// NewClipboardTypist builds a typist that pastes with keys, trigger last
// (for example "ctrl", "v").
func NewClipboardTypist(keys []string, leadIn time.Duration, logger *slog.Logger) *ClipboardTypist {
	return &ClipboardTypist{
		keys:   keys,
		leadIn: leadIn,
		logger: logger,
		write:  clipboard.WriteAll,
		tap:    robotgoTap,
		sleep:  wait,
	}
}

func (t *ClipboardTypist) Type(ctx context.Context, text string) (err error) {
	if text == "" {
		return nil
	}
	if len(t.keys) == 0 {
		return fmt.Errorf("%w: paste shortcut is empty", fault.ErrSynthesis)
	}

	if err := t.write(text); err != nil {
		return fmt.Errorf("%w: set clipboard: %w", fault.ErrSynthesis, err)
	}
	if err := t.sleep(ctx, t.leadIn); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrSynthesis, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: robotgo: %v", fault.ErrSynthesis, r)
		}
	}()
	trigger := t.keys[len(t.keys)-1]
	if err := t.tap(trigger, t.keys[:len(t.keys)-1]); err != nil {
		return fmt.Errorf("%w: paste dispatch failed; clipboard remains set: %w", fault.ErrSynthesis, err)
	}
	if t.logger != nil {
		t.logger.Debug("transcript pasted", "chars", len([]rune(text)))
	}
	return nil
}

func robotgoTap(key string, modifiers []string) error {
	args := make([]interface{}, 0, len(modifiers))
	for _, m := range modifiers {
		args = append(args, m)
	}
	return robotgo.KeyTap(key, args...)
}
