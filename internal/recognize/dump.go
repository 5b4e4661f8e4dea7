package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/recording"
)

// Dumper wraps an engine and keeps a WAV copy of every recording under the
// state debug directory.
type Dumper struct {
	Engine Engine
	Logger *slog.Logger
	Dir    string
	Now    func() time.Time
}

// NewDumper wraps engine, resolving the debug directory from XDG_STATE_HOME.
func NewDumper(engine Engine, logger *slog.Logger) (*Dumper, error) {
	dir, err := debugDir()
	if err != nil {
		return nil, err
	}
	return &Dumper{Engine: engine, Logger: logger, Dir: dir, Now: time.Now}, nil
}

func (d *Dumper) Transcribe(ctx context.Context, rec recording.Recording) (string, error) {
	if path, err := d.write(rec); err != nil {
		if d.Logger != nil {
			d.Logger.Warn("unable to write debug audio dump", "error", err.Error())
		}
	} else if d.Logger != nil {
		d.Logger.Debug("debug audio dump written", "path", path)
	}
	return d.Engine.Transcribe(ctx, rec)
}

func (d *Dumper) write(rec recording.Recording) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	path := filepath.Join(d.Dir, fmt.Sprintf("audio-%s.wav", now().Format("20060102-150405.000")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug file %q: %w", path, err)
	}
	defer file.Close()

	if err := WriteWAV(file, rec); err != nil {
		return "", err
	}
	return path, nil
}

// debugDir returns the XDG_STATE_HOME fallback path for debug artifacts.
func debugDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", "murmur", "debug"), nil
}
