package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/murmur/internal/fsm"
	"github.com/rbright/murmur/internal/recording"
	"github.com/rbright/murmur/internal/transcript"
)

// episode is the bookkeeping for one hold-to-talk cycle.
type episode struct {
	id     string
	logger *slog.Logger

	armedAt     time.Time
	recordingAt time.Time
	releasedAt  time.Time
	resumes     int

	capture *pendingCapture
	audio   recording.Recording
	latency time.Duration
	text    string
	err     error
}

func newEpisode(logger *slog.Logger, armedAt time.Time) *episode {
	id := uuid.NewString()
	return &episode{
		id:      id,
		logger:  logger.With("episode", id),
		armedAt: armedAt,
	}
}

// pendingCapture resolves once the background device open returns.
type pendingCapture struct {
	done    chan struct{}
	capture Capture
	err     error
}

func (p *pendingCapture) wait() (Capture, error) {
	<-p.done
	return p.capture, p.err
}

type captureOpened struct {
	pending *pendingCapture
}

type recognition struct {
	ep      *episode
	audio   recording.Recording
	latency time.Duration
	text    string
	err     error
}

type typing struct {
	ep  *episode
	err error
}

func (c *Controller) startOpen(ep *episode) *pendingCapture {
	pending := &pendingCapture{done: make(chan struct{})}
	c.goBackground(func() {
		pending.capture, pending.err = c.open(c.bg)
		close(pending.done)
		if pending.err != nil {
			ep.logger.Error("open audio capture failed", "error", pending.err.Error())
		}
		c.post(captureOpened{pending: pending})
	})
	return pending
}

// startRecognize seals the capture at cutoff and transcribes what it kept.
// Nothing is transcribed when sealing fails.
func (c *Controller) startRecognize(ep *episode, cutoff time.Time) {
	pending := ep.capture
	c.goBackground(func() {
		result := recognition{ep: ep}
		defer func() { c.post(result) }()

		capture, err := pending.wait()
		if err != nil {
			result.err = err
			return
		}
		audio, err := capture.Close(cutoff)
		result.audio = audio
		if err != nil {
			result.err = err
			return
		}
		ep.logger.Debug("recording sealed",
			"frames", audio.Frames,
			"trailing_frames", audio.Trailing,
			"audio_ms", audio.Duration().Milliseconds(),
		)
		if audio.Empty() {
			return
		}

		started := c.clock.Now()
		text, err := c.engine.Transcribe(c.bg, audio)
		result.latency = c.clock.Now().Sub(started)
		if err != nil {
			result.err = err
			return
		}
		result.text = transcript.Normalize(text, c.opts.Transcript)
	})
}

func (c *Controller) startDiscard(pending *pendingCapture) {
	if pending == nil {
		return
	}
	c.goBackground(func() {
		if capture, err := pending.wait(); err == nil {
			capture.Discard()
		}
	})
}

func (c *Controller) startType(ep *episode, text string) {
	c.goBackground(func() {
		err := c.typist.Type(c.bg, text)
		c.post(typing{ep: ep, err: err})
	})
}

// finishEpisode logs the episode summary once the controller is idle again.
func (c *Controller) finishEpisode(from fsm.State, event fsm.Event) {
	ep := c.ep
	c.ep = nil
	stopTimer(&c.hold)
	stopTimer(&c.grace)
	c.faults = nil

	if from == fsm.StateArmed && event == fsm.EventTriggerUp {
		ep.logger.Debug("short tap ignored", "held_ms", c.clock.Now().Sub(ep.armedAt).Milliseconds())
		return
	}
	c.episodes.Add(1)

	fields := []any{
		"outcome", outcome(from, event),
		"from_state", string(from),
		"armed_at", ep.armedAt.Format(time.RFC3339Nano),
		"duration_ms", c.clock.Now().Sub(ep.armedAt).Milliseconds(),
		"resumes", ep.resumes,
		"frames", ep.audio.Frames,
		"trailing_frames", ep.audio.Trailing,
		"audio_ms", ep.audio.Duration().Milliseconds(),
		"recognize_latency_ms", ep.latency.Milliseconds(),
		"transcript_length", len(ep.text),
	}
	if !ep.releasedAt.IsZero() && !ep.recordingAt.IsZero() {
		fields = append(fields, "held_ms", ep.releasedAt.Sub(ep.recordingAt).Milliseconds())
	}

	if ep.err != nil {
		ep.logger.Error("episode failed", append(fields, "error", ep.err.Error())...)
		return
	}
	ep.logger.Info("episode complete", fields...)
}

func outcome(from fsm.State, event fsm.Event) string {
	switch event {
	case fsm.EventTyped:
		return "typed"
	case fsm.EventNoSpeech:
		return "no_speech"
	case fsm.EventTypeFail:
		return "type_failed"
	case fsm.EventRecognizeFail:
		return "recognize_failed"
	case fsm.EventCaptureFailed:
		return "capture_failed"
	case fsm.EventCancel:
		return "cancelled"
	default:
		return string(from) + "_" + string(event)
	}
}
