// Package session runs the push-to-talk episode lifecycle.
//
// One Controller goroutine owns the state machine. Hotkey edges, timers,
// capture faults, and background results are all serialized through its
// loop; device open, recognition, and typing run off that loop and report
// back as messages.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/murmur/internal/cue"
	"github.com/rbright/murmur/internal/fault"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/output"
	"github.com/rbright/murmur/internal/recognize"
	"github.com/rbright/murmur/internal/recording"
	"github.com/rbright/murmur/internal/transcript"
)

// Capture is one open recording. *recording.Coordinator implements it.
type Capture interface {
	Faults() <-chan error
	Close(cutoff time.Time) (recording.Recording, error)
	Discard()
}

// OpenFunc opens the microphone for one episode. It may block.
type OpenFunc func(context.Context) (Capture, error)

// Options are the controller timings and transcript shaping.
type Options struct {
	MinHold     time.Duration
	PostRelease time.Duration
	Transcript  transcript.Options
}

// Deps are the controller collaborators. Clock, Cues, and Logger default when
// nil.
type Deps struct {
	Clock  Clock
	Open   OpenFunc
	Engine recognize.Engine
	Typist output.Typist
	Cues   cue.Player
	Logger *slog.Logger
}

// Status is a point-in-time view of the controller.
type Status struct {
	State    fsm.State
	Episodes uint64
}

// Controller orchestrates episodes from hotkey edges to typed text.
type Controller struct {
	opts   Options
	clock  Clock
	open   OpenFunc
	engine recognize.Engine
	typist output.Typist
	cues   cue.Player
	logger *slog.Logger

	mu       sync.RWMutex
	state    fsm.State
	episodes atomic.Uint64

	// loop-owned
	chord   hotkey.Chord
	ep      *episode
	hold    Timer
	grace   Timer
	faults  <-chan error
	bg      context.Context
	inbox   chan any
	closing chan struct{}
	pending sync.WaitGroup

	trace func(from fsm.State, event fsm.Event, to fsm.State)
}

// NewController wires a controller. Run drives it.
func NewController(opts Options, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Cues == nil {
		deps.Cues = cue.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		opts:    opts,
		clock:   deps.Clock,
		open:    deps.Open,
		engine:  deps.Engine,
		typist:  deps.Typist,
		cues:    deps.Cues,
		logger:  deps.Logger,
		state:   fsm.StateIdle,
		inbox:   make(chan any, 8),
		closing: make(chan struct{}),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the state and how many episodes have completed.
func (c *Controller) Status() Status {
	return Status{State: c.State(), Episodes: c.episodes.Load()}
}

func (c *Controller) setState(state fsm.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Run consumes raw hotkey edges until ctx is cancelled or the edge stream
// ends. On the way out it cancels any episode, waits for in-flight device,
// recognition, and typing work, and returns with the device released. Run
// must be called at most once.
func (c *Controller) Run(ctx context.Context, edges <-chan hotkey.Edge) error {
	if c.open == nil || c.engine == nil || c.typist == nil {
		return errors.New("session controller is missing capture, recognizer, or typist wiring")
	}

	c.bg = context.WithoutCancel(ctx)
	defer func() {
		close(c.closing)
		c.pending.Wait()
		c.logger.Debug("session controller stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			c.apply(fsm.EventCancel, c.clock.Now())
			return nil
		case edge, ok := <-edges:
			if !ok {
				c.apply(fsm.EventCancel, c.clock.Now())
				return fmt.Errorf("%w: hotkey stream closed", fault.ErrCapabilityUnavailable)
			}
			c.handleEdge(edge)
		case <-timerC(c.hold):
			c.hold = nil
			if !c.drainQueuedEdges(edges) {
				continue
			}
			if c.State() == fsm.StateArmed {
				c.apply(fsm.EventHoldElapsed, c.clock.Now())
			}
		case <-timerC(c.grace):
			c.grace = nil
			c.apply(fsm.EventGraceElapsed, c.clock.Now())
		case err := <-c.faults:
			c.faults = nil
			c.captureFailed(err)
		case msg := <-c.inbox:
			c.handleMessage(msg)
		}
	}
}

// drainQueuedEdges handles edges that were already waiting when the hold
// timer fired, so a release stamped before the threshold still wins over the
// timer. It reports false when the stream is closed; the main loop then sees
// the closed channel on its next receive.
func (c *Controller) drainQueuedEdges(edges <-chan hotkey.Edge) bool {
	for c.State() == fsm.StateArmed {
		select {
		case edge, ok := <-edges:
			if !ok {
				return false
			}
			c.handleEdge(edge)
		default:
			return true
		}
	}
	return true
}

func (c *Controller) handleEdge(edge hotkey.Edge) {
	trigger, ok := c.chord.Feed(edge)
	if !ok {
		return
	}

	switch trigger.Kind {
	case hotkey.TriggerDown:
		if c.State() == fsm.StateDraining && c.ep != nil {
			c.ep.resumes++
			c.ep.logger.Debug("trigger re-pressed during drain; recording continues")
		}
		c.apply(fsm.EventTriggerDown, trigger.At)
	case hotkey.TriggerUp:
		// A release at or past the threshold still confirms the hold, even if
		// the timer has not been serviced yet.
		if c.State() == fsm.StateArmed && c.ep != nil && trigger.At.Sub(c.ep.armedAt) >= c.opts.MinHold {
			c.apply(fsm.EventHoldElapsed, trigger.At)
		}
		c.apply(fsm.EventTriggerUp, trigger.At)
	}
}

// apply runs one FSM transition and performs its effects in order.
func (c *Controller) apply(event fsm.Event, at time.Time) {
	from := c.State()
	next, effects, err := fsm.Transition(from, event)
	if err != nil {
		if errors.Is(err, fsm.ErrIgnored) {
			c.logger.Debug("event ignored", "state", string(from), "event", string(event))
		} else {
			c.logger.Warn("invalid session transition", "error", err.Error())
		}
		return
	}

	c.setState(next)
	for _, effect := range effects {
		c.perform(effect, at)
	}
	if c.trace != nil {
		c.trace(from, event, next)
	}
	if next == fsm.StateIdle && c.ep != nil {
		c.finishEpisode(from, event)
	}
}

func (c *Controller) perform(effect fsm.Effect, at time.Time) {
	switch effect {
	case fsm.EffectStartHoldTimer:
		c.ep = newEpisode(c.logger, at)
		c.hold = c.clock.NewTimer(remaining(c.clock, at.Add(c.opts.MinHold)))
	case fsm.EffectStopHoldTimer:
		stopTimer(&c.hold)
	case fsm.EffectOpenCapture:
		c.ep.recordingAt = at
		c.ep.capture = c.startOpen(c.ep)
		c.ep.logger.Info("recording started")
	case fsm.EffectCueStart:
		c.cues.Play(cue.Start)
	case fsm.EffectStartGraceTimer:
		c.ep.releasedAt = at
		c.grace = c.clock.NewTimer(remaining(c.clock, at.Add(c.opts.PostRelease)))
	case fsm.EffectStopGraceTimer:
		stopTimer(&c.grace)
	case fsm.EffectSealCapture:
		c.faults = nil
	case fsm.EffectCueStop:
		c.cues.Play(cue.Stop)
	case fsm.EffectRecognize:
		c.startRecognize(c.ep, c.ep.releasedAt.Add(c.opts.PostRelease))
	case fsm.EffectDiscardBuffer:
		c.startDiscard(c.ep.capture)
	case fsm.EffectCueError:
		c.cues.Play(cue.Error)
	case fsm.EffectType:
		c.startType(c.ep, c.ep.text)
	case fsm.EffectAwaitInFlight:
		c.ep.logger.Info("cancel requested; waiting for in-flight work")
	default:
		c.logger.Warn("unknown session effect", "effect", string(effect))
	}
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) captureFailed(err error) {
	if c.ep != nil {
		c.ep.err = err
	}
	c.apply(fsm.EventCaptureFailed, c.clock.Now())
}

func (c *Controller) handleMessage(msg any) {
	switch m := msg.(type) {
	case captureOpened:
		if c.ep == nil || m.pending != c.ep.capture || !c.State().Capturing() {
			return
		}
		if m.pending.err != nil {
			c.captureFailed(m.pending.err)
			return
		}
		c.faults = m.pending.capture.Faults()
	case recognition:
		if m.ep != c.ep {
			return
		}
		m.ep.audio = m.audio
		m.ep.latency = m.latency
		switch {
		case m.err != nil:
			m.ep.err = m.err
			c.apply(fsm.EventRecognizeFail, c.clock.Now())
		case m.text == "":
			c.apply(fsm.EventNoSpeech, c.clock.Now())
		default:
			m.ep.text = m.text
			c.apply(fsm.EventRecognized, c.clock.Now())
		}
	case typing:
		if m.ep != c.ep {
			return
		}
		if m.err != nil {
			m.ep.err = m.err
			c.apply(fsm.EventTypeFail, c.clock.Now())
			return
		}
		c.apply(fsm.EventTyped, c.clock.Now())
	}
}

// post hands a background result to the loop, or drops it once Run is
// shutting down.
func (c *Controller) post(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.closing:
	}
}

func (c *Controller) goBackground(fn func()) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		fn()
	}()
}
