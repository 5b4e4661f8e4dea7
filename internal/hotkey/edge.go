// Package hotkey turns raw keyboard edges into push-to-talk trigger edges.
package hotkey

import (
	"context"
	"fmt"
	"time"
)

// Kind tags one HotkeyEdge.
type Kind int

const (
	ModifierDown Kind = iota + 1
	ModifierUp
	TriggerDown
	TriggerUp
)

func (k Kind) String() string {
	switch k {
	case ModifierDown:
		return "modifier_down"
	case ModifierUp:
		return "modifier_up"
	case TriggerDown:
		return "trigger_down"
	case TriggerUp:
		return "trigger_up"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Edge is one timestamped key transition for the configured chord. Code is
// the provider's key code, which tells left and right modifiers apart.
type Edge struct {
	Kind Kind
	Code uint16
	At   time.Time
}

// Source delivers raw edges for the configured chord.
//
// Subscribe reports permission and session errors before returning; once it
// succeeds the channel stays open until ctx is cancelled or the provider dies.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Edge, error)
}

func send(ctx context.Context, out chan<- Edge, edge Edge) bool {
	select {
	case out <- edge:
		return true
	case <-ctx.Done():
		return false
	}
}
