package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/fault"
	hook "github.com/robotn/gohook"
)

// libuiohook reports right-hand modifiers with extended codes.
var x11Modifiers = map[string][]uint16{
	"ctrl":   {29, 3613},
	"lctrl":  {29},
	"rctrl":  {3613},
	"shift":  {42, 54},
	"lshift": {42},
	"rshift": {54},
	"alt":    {56, 3640},
	"lalt":   {56},
	"ralt":   {3640},
	"super":  {3675, 3676},
	"lsuper": {3675},
	"rsuper": {3676},
}

// ResolveX11 maps a chord onto libuiohook virtual key codes.
func ResolveX11(modifier, trigger string) (Binding, error) {
	mod := canonicalModifier(modifier)
	codes, ok := x11Modifiers[mod]
	if !ok {
		return Binding{}, fmt.Errorf("unknown hotkey modifier %q", modifier)
	}
	trig := canonicalTrigger(trigger)
	code, ok := hook.Keycode[trig]
	if !ok {
		code, ok = keyCodes[trig]
	}
	if !ok {
		return Binding{}, fmt.Errorf("unknown hotkey trigger %q", trigger)
	}
	if containsCode(codes, code) {
		return Binding{}, fmt.Errorf("hotkey trigger %q overlaps modifier %q", trigger, modifier)
	}
	return Binding{Modifier: codes, Trigger: code, Name: mod + "+" + trig}, nil
}

// X11Source reads global key events through gohook.
type X11Source struct {
	binding Binding
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewX11Source builds an X11 edge source for the chord.
func NewX11Source(modifier, trigger string, logger *slog.Logger) (*X11Source, error) {
	binding, err := ResolveX11(modifier, trigger)
	if err != nil {
		return nil, err
	}
	return &X11Source{binding: binding, logger: logger}, nil
}

// CheckX11 reports whether an X display is reachable for global hooks.
func CheckX11() error {
	if strings.TrimSpace(os.Getenv("DISPLAY")) == "" {
		return fmt.Errorf("%w: DISPLAY is not set; the x11 hotkey backend needs an X session", fault.ErrCapabilityUnavailable)
	}
	return nil
}

func (s *X11Source) Subscribe(ctx context.Context) (<-chan Edge, error) {
	if err := CheckX11(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, fmt.Errorf("x11 hotkey source already subscribed")
	}
	s.started = true
	s.mu.Unlock()

	events := hook.Start()
	out := make(chan Edge, 64)

	go func() {
		<-ctx.Done()
		hook.End()
	}()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					if ctx.Err() == nil && s.logger != nil {
						s.logger.Error("x11 hook event stream ended")
					}
					return
				}
				kind, ok := translateX11(s.binding, ev.Kind, ev.Keycode)
				if !ok {
					continue
				}
				if !send(ctx, out, Edge{Kind: kind, Code: ev.Keycode, At: time.Now()}) {
					return
				}
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("x11 hotkey source ready", "chord", s.binding.Name)
	}
	return out, nil
}

// translateX11 maps a gohook press (KeyHold) or release (KeyUp) onto an edge
// kind. KeyDown is libuiohook's "typed" event and is not a physical edge.
func translateX11(binding Binding, kind uint8, code uint16) (Kind, bool) {
	var pressed bool
	switch kind {
	case hook.KeyHold:
		pressed = true
	case hook.KeyUp:
		pressed = false
	default:
		return 0, false
	}
	return classify(binding, code, pressed)
}

func classify(binding Binding, code uint16, pressed bool) (Kind, bool) {
	switch {
	case binding.isModifier(code):
		if pressed {
			return ModifierDown, true
		}
		return ModifierUp, true
	case code == binding.Trigger:
		if pressed {
			return TriggerDown, true
		}
		return TriggerUp, true
	default:
		return 0, false
	}
}
