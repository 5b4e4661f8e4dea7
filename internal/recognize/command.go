package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/fault"
	"github.com/rbright/murmur/internal/recording"
)

// WAVPlaceholder in a recognizer command is replaced with the WAV file path.
const WAVPlaceholder = "{wav}"

// CommandEngine runs an external recognizer such as whisper-cli and reads the
// transcript from its stdout. Without a {wav} argument the WAV goes to stdin.
type CommandEngine struct {
	argv    []string
	timeout time.Duration
}

func NewCommandEngine(argv []string, timeout time.Duration) *CommandEngine {
	return &CommandEngine{argv: argv, timeout: timeout}
}

func (e *CommandEngine) Transcribe(ctx context.Context, rec recording.Recording) (string, error) {
	if len(e.argv) == 0 {
		return "", fmt.Errorf("%w: recognizer command is empty", fault.ErrRecognition)
	}

	path, err := writeTempWAV(rec)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fault.ErrRecognition, err)
	}
	defer os.Remove(path)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	argv, usesPath := expandArgv(e.argv, path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if !usesPath {
		wavFile, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("%w: reopen wav: %w", fault.ErrRecognition, err)
		}
		defer wavFile.Close()
		cmd.Stdin = wavFile
	}

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out after %s", fault.ErrRecognition, argv[0], e.timeout)
		}
		return "", fmt.Errorf("%w: run %s: %w%s", fault.ErrRecognition, argv[0], err, stderrSuffix(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// expandArgv substitutes the WAV path into every placeholder occurrence.
func expandArgv(argv []string, path string) ([]string, bool) {
	out := make([]string, len(argv))
	used := false
	for i, arg := range argv {
		if strings.Contains(arg, WAVPlaceholder) {
			used = true
			arg = strings.ReplaceAll(arg, WAVPlaceholder, path)
		}
		out[i] = config.ExpandUser(arg)
	}
	return out, used
}

func stderrSuffix(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > 200 {
		stderr = stderr[len(stderr)-200:]
	}
	return ": " + stderr
}
