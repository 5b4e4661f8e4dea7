package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbright/murmur/internal/config"
)

// FormatFromConfig derives the capture format from audio settings.
func FormatFromConfig(cfg config.AudioConfig) Format {
	return Format{
		SampleRate:   cfg.SampleRate,
		Channels:     cfg.Channels,
		FrameSamples: cfg.FrameSamples(),
		QueueFrames:  cfg.QueueFrames,
	}
}

// NewSource builds the configured capture backend. Device resolution happens
// here so an unusable microphone is reported at startup.
func NewSource(ctx context.Context, cfg config.AudioConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Backend {
	case config.BackendPulse:
		source, selection, err := NewPulseSource(ctx, cfg.Device)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" && logger != nil {
			logger.Warn(selection.Warning)
		}
		if logger != nil {
			logger.Info("audio device selected", "backend", cfg.Backend, "device", source.Device().ID)
		}
		return source, nil
	case config.BackendMalgo:
		if logger != nil {
			logger.Info("audio device selected", "backend", cfg.Backend, "device", cfg.Device)
		}
		return NewMalgoSource(cfg.Device), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Backend)
	}
}

// ListBackendDevices lists capture devices for the configured backend.
func ListBackendDevices(ctx context.Context, backend string) ([]Device, error) {
	switch backend {
	case config.BackendMalgo:
		return ListMalgoDevices()
	default:
		return ListDevices(ctx)
	}
}
