package output

import (
	"context"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/rbright/murmur/internal/fault"
)

// RobotgoTypist types one character at a time with a fixed pause after each.
type RobotgoTypist struct {
	delay  time.Duration
	leadIn time.Duration

	emit  func(string)
	sleep func(context.Context, time.Duration) error
}

func NewRobotgoTypist(delay, leadIn time.Duration) *RobotgoTypist {
	return &RobotgoTypist{
		delay:  delay,
		leadIn: leadIn,
		emit:   func(s string) { robotgo.Type(s) },
		sleep:  wait,
	}
}

// Type waits out the lead-in so the released hotkey modifier cannot combine
// with the first character, then types text rune by rune.
func (t *RobotgoTypist) Type(ctx context.Context, text string) (err error) {
	if text == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: robotgo: %v", fault.ErrSynthesis, r)
		}
	}()

	if err := t.sleep(ctx, t.leadIn); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrSynthesis, err)
	}

	typed := 0
	for _, r := range text {
		t.emit(string(r))
		typed++
		if err := t.sleep(ctx, t.delay); err != nil {
			return fmt.Errorf("%w: stopped after %d characters: %w", fault.ErrSynthesis, typed, err)
		}
	}
	return nil
}
