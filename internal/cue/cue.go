// Package cue plays short audio feedback at session transitions.
package cue

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/murmur/internal/config"
)

// Name identifies one feedback cue.
type Name string

const (
	Start Name = "start"
	Stop  Name = "stop"
	Error Name = "error"
)

// Player plays cues without blocking the caller.
type Player interface {
	Play(Name)
}

// Pulse plays configured cue files, or synthesized tones when no file is
// set or the file cannot be played. Playback is serialized and never blocks
// Play.
type Pulse struct {
	cfg    config.FeedbackConfig
	logger *slog.Logger
	emit   func(Name, string) error

	mu       sync.Mutex
	inflight sync.WaitGroup
}

// NewPulse builds a cue player from feedback config.
func NewPulse(cfg config.FeedbackConfig, logger *slog.Logger) *Pulse {
	return &Pulse{cfg: cfg, logger: logger, emit: emitCue}
}

func (p *Pulse) Play(name Name) {
	if !p.cfg.Enable {
		return
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.emit(name, p.path(name)); err != nil && p.logger != nil {
			p.logger.Debug("audio cue failed", "cue", string(name), "error", err.Error())
		}
	}()
}

// Wait blocks until queued cues have finished playing.
func (p *Pulse) Wait() {
	p.inflight.Wait()
}

func (p *Pulse) path(name Name) string {
	switch name {
	case Start:
		return config.ExpandUser(p.cfg.StartFile)
	case Stop:
		return config.ExpandUser(p.cfg.StopFile)
	case Error:
		return config.ExpandUser(p.cfg.ErrorFile)
	default:
		return ""
	}
}

func emitCue(name Name, path string) error {
	if path != "" {
		if err := playFile(path); err == nil {
			return nil
		}
	}
	samples := toneSamples(name)
	if len(samples) == 0 {
		return fmt.Errorf("unknown cue %q", name)
	}
	return playPCM(samples, toneSampleRate, 1)
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Play(Name) {}
