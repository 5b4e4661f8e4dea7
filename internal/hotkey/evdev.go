package hotkey

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/fault"
)

const (
	evKey = 1

	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// input_event on 64-bit Linux: timeval (16) + type (2) + code (2) + value (4).
const inputEventSize = 24

// EvdevSource reads key events straight from /dev/input keyboards.
// The user needs read access to the devices (usually the input group).
type EvdevSource struct {
	binding  Binding
	logger   *slog.Logger
	inputDir string
	sysDir   string
}

// NewEvdevSource builds an evdev edge source for the chord.
func NewEvdevSource(modifier, trigger string, logger *slog.Logger) (*EvdevSource, error) {
	binding, err := ResolveEvdev(modifier, trigger)
	if err != nil {
		return nil, err
	}
	return &EvdevSource{
		binding:  binding,
		logger:   logger,
		inputDir: "/dev/input",
		sysDir:   "/sys/class/input",
	}, nil
}

func (s *EvdevSource) Subscribe(ctx context.Context) (<-chan Edge, error) {
	paths, err := findKeyboards(s.inputDir, s.sysDir)
	if err != nil {
		return nil, fmt.Errorf("%w: scan input devices: %w", fault.ErrCapabilityUnavailable, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no keyboard devices found under %s", fault.ErrCapabilityUnavailable, s.inputDir)
	}

	files := make([]*os.File, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: found %d keyboard(s) but cannot open any (add the user to the input group)", fault.ErrCapabilityUnavailable, len(paths))
	}

	raw := make(chan Edge, 64)
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f *os.File) {
			defer wg.Done()
			s.readDevice(ctx, f, raw)
		}(f)
	}

	go func() {
		<-ctx.Done()
		for _, f := range files {
			_ = f.Close()
		}
	}()

	out := make(chan Edge, 64)
	go func() {
		wg.Wait()
		close(raw)
	}()
	go func() {
		defer close(out)
		for edge := range raw {
			if !send(ctx, out, edge) {
				return
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("evdev hotkey source ready", "chord", s.binding.Name, "devices", len(files))
	}
	return out, nil
}

func (s *EvdevSource) readDevice(ctx context.Context, f *os.File, out chan<- Edge) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, os.ErrClosed) && s.logger != nil {
				s.logger.Warn("evdev read failed", "device", f.Name(), "error", err.Error())
			}
			return
		}
		for _, edge := range decodeEvents(s.binding, buf[:n]) {
			edge.At = time.Now()
			if !send(ctx, out, edge) {
				return
			}
		}
	}
}

// decodeEvents extracts unstamped chord edges from raw input_event records.
// Auto-repeat records are dropped here.
func decodeEvents(binding Binding, buf []byte) []Edge {
	var edges []Edge
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		evType := binary.LittleEndian.Uint16(buf[i+16:])
		evCode := binary.LittleEndian.Uint16(buf[i+18:])
		evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))
		if evType != evKey || evValue == evValueRepeat {
			continue
		}
		kind, ok := classify(binding, evCode, evValue == evValuePress)
		if ok {
			edges = append(edges, Edge{Kind: kind, Code: evCode})
		}
	}
	return edges
}

// CheckEvdev reports whether at least one keyboard device is readable.
func CheckEvdev() (string, error) {
	paths, err := findKeyboards("/dev/input", "/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("%w: scan input devices: %w", fault.ErrCapabilityUnavailable, err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: no keyboard devices found", fault.ErrCapabilityUnavailable)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err == nil {
			_ = f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s", len(paths), path), nil
		}
	}
	return "", fmt.Errorf("%w: found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", fault.ErrCapabilityUnavailable, len(paths))
}

func findKeyboards(inputDir, sysDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(sysDir, e.Name()) {
			keyboards = append(keyboards, filepath.Join(inputDir, e.Name()))
		}
	}
	return keyboards, nil
}

// Keyboards advertise a long key capability bitmap; mice and buttons do not.
func isKeyboard(sysDir, eventName string) bool {
	data, err := os.ReadFile(filepath.Join(sysDir, eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}
