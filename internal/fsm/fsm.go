// Package fsm holds the push-to-talk transition table.
//
// Transition is pure: it maps the current state and one event to the next
// state plus the ordered side effects the session controller must perform.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

type Effect string

const (
	StateIdle         State = "idle"
	StateArmed        State = "armed"
	StateRecording    State = "recording"
	StateDraining     State = "draining"
	StateTranscribing State = "transcribing"
	StateTyping       State = "typing"
)

const (
	EventTriggerDown   Event = "trigger_down"
	EventTriggerUp     Event = "trigger_up"
	EventHoldElapsed   Event = "hold_elapsed"
	EventGraceElapsed  Event = "grace_elapsed"
	EventCaptureFailed Event = "capture_failed"
	EventRecognized    Event = "recognized"
	EventNoSpeech      Event = "no_speech"
	EventRecognizeFail Event = "recognize_failed"
	EventTyped         Event = "typed"
	EventTypeFail      Event = "type_failed"
	EventCancel        Event = "cancel"
)

const (
	EffectStartHoldTimer  Effect = "start_hold_timer"
	EffectStopHoldTimer   Effect = "stop_hold_timer"
	EffectOpenCapture     Effect = "open_capture"
	EffectCueStart        Effect = "cue_start"
	EffectStartGraceTimer Effect = "start_grace_timer"
	EffectStopGraceTimer  Effect = "stop_grace_timer"
	EffectSealCapture     Effect = "seal_capture"
	EffectCueStop         Effect = "cue_stop"
	EffectRecognize       Effect = "recognize"
	EffectDiscardBuffer   Effect = "discard_buffer"
	EffectCueError        Effect = "cue_error"
	EffectType            Effect = "type"
	EffectAwaitInFlight   Effect = "await_in_flight"
)

// ErrIgnored marks events that are deliberately dropped in the current state.
var ErrIgnored = errors.New("event ignored")

// Transition applies one event and returns the next state and its effects.
// On error the returned state equals current and no effects are produced.
func Transition(current State, event Event) (State, []Effect, error) {
	if event == EventCancel {
		return cancel(current)
	}

	switch current {
	case StateIdle:
		switch event {
		case EventTriggerDown:
			return StateArmed, []Effect{EffectStartHoldTimer}, nil
		case EventTriggerUp:
			return current, nil, ignored(current, event)
		}
	case StateArmed:
		switch event {
		case EventTriggerUp:
			return StateIdle, []Effect{EffectStopHoldTimer}, nil
		case EventHoldElapsed:
			return StateRecording, []Effect{EffectStopHoldTimer, EffectOpenCapture, EffectCueStart}, nil
		case EventTriggerDown:
			return current, nil, ignored(current, event)
		}
	case StateRecording:
		switch event {
		case EventTriggerUp:
			return StateDraining, []Effect{EffectStartGraceTimer}, nil
		case EventCaptureFailed:
			return StateIdle, []Effect{EffectSealCapture, EffectDiscardBuffer, EffectCueError}, nil
		case EventTriggerDown:
			return current, nil, ignored(current, event)
		}
	case StateDraining:
		switch event {
		case EventTriggerDown:
			return StateRecording, []Effect{EffectStopGraceTimer}, nil
		case EventGraceElapsed:
			return StateTranscribing, []Effect{EffectSealCapture, EffectCueStop, EffectRecognize}, nil
		case EventCaptureFailed:
			return StateIdle, []Effect{EffectStopGraceTimer, EffectSealCapture, EffectDiscardBuffer, EffectCueError}, nil
		case EventTriggerUp:
			return current, nil, ignored(current, event)
		}
	case StateTranscribing:
		switch event {
		case EventRecognized:
			return StateTyping, []Effect{EffectType}, nil
		case EventNoSpeech:
			return StateIdle, nil, nil
		case EventRecognizeFail:
			return StateIdle, []Effect{EffectCueError}, nil
		case EventTriggerDown, EventTriggerUp:
			return current, nil, ignored(current, event)
		}
	case StateTyping:
		switch event {
		case EventTyped, EventTypeFail:
			return StateIdle, nil, nil
		case EventTriggerDown, EventTriggerUp:
			return current, nil, ignored(current, event)
		}
	default:
		return current, nil, fmt.Errorf("unknown state %q", current)
	}

	return current, nil, invalidTransition(current, event)
}

// cancel resolves a shutdown request from any state back to idle.
func cancel(current State) (State, []Effect, error) {
	switch current {
	case StateIdle:
		return StateIdle, nil, nil
	case StateArmed:
		return StateIdle, []Effect{EffectStopHoldTimer}, nil
	case StateRecording:
		return StateIdle, []Effect{EffectSealCapture, EffectDiscardBuffer}, nil
	case StateDraining:
		return StateIdle, []Effect{EffectStopGraceTimer, EffectSealCapture, EffectDiscardBuffer}, nil
	case StateTranscribing, StateTyping:
		return StateIdle, []Effect{EffectAwaitInFlight}, nil
	default:
		return current, nil, fmt.Errorf("unknown state %q", current)
	}
}

// Capturing reports whether the audio capture is open in state s.
func (s State) Capturing() bool {
	return s == StateRecording || s == StateDraining
}

// Busy reports whether an external recognition or typing call is in flight.
func (s State) Busy() bool {
	return s == StateTranscribing || s == StateTyping
}

func ignored(state State, event Event) error {
	return fmt.Errorf("%w: %s in state %s", ErrIgnored, event, state)
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
