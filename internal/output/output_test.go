package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/fault"
	"github.com/stretchr/testify/require"
)

func fakeRobotgo(delay, leadIn time.Duration) (*RobotgoTypist, *[]string, *[]time.Duration) {
	var typed []string
	var slept []time.Duration
	typist := NewRobotgoTypist(delay, leadIn)
	typist.emit = func(s string) { typed = append(typed, s) }
	typist.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return typist, &typed, &slept
}

func TestRobotgoTypistTypesRunesWithDelay(t *testing.T) {
	typist, typed, slept := fakeRobotgo(10*time.Millisecond, 100*time.Millisecond)

	require.NoError(t, typist.Type(context.Background(), "héy"))
	require.Equal(t, []string{"h", "é", "y"}, *typed)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}, *slept)
}

func TestRobotgoTypistSkipsEmptyText(t *testing.T) {
	typist, typed, slept := fakeRobotgo(10*time.Millisecond, 100*time.Millisecond)

	require.NoError(t, typist.Type(context.Background(), ""))
	require.Empty(t, *typed)
	require.Empty(t, *slept)
}

func TestRobotgoTypistCancelledIsSynthesisFailure(t *testing.T) {
	typist, typed, _ := fakeRobotgo(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := typist.Type(ctx, "abc")
	require.ErrorIs(t, err, fault.ErrSynthesis)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, *typed)
}

func TestRobotgoTypistRecoversPanic(t *testing.T) {
	typist, _, _ := fakeRobotgo(0, 0)
	typist.emit = func(string) { panic("no display") }

	err := typist.Type(context.Background(), "a")
	require.ErrorIs(t, err, fault.ErrSynthesis)
	require.ErrorContains(t, err, "no display")
}

func TestCommandTypistWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "typed.txt")

	typist := NewCommandTypist([]string{scriptPath, outputPath}, time.Millisecond, nil)
	require.NoError(t, typist.Type(context.Background(), "hello from murmur"))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from murmur", string(data))
}

func TestCommandTypistFailureIsSynthesisFailure(t *testing.T) {
	typist := NewCommandTypist([]string{writeFailScript(t, "no focused window")}, 0, nil)

	err := typist.Type(context.Background(), "text")
	require.ErrorIs(t, err, fault.ErrSynthesis)
	require.ErrorContains(t, err, "wait for")
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default().Output
	typist, err := New(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &RobotgoTypist{}, typist)

	cfg.Backend = config.BackendCommand
	cfg.Command = config.CommandConfig{Raw: "wtype -", Argv: []string{"wtype", "-"}}
	typist, err = New(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &CommandTypist{}, typist)

	cfg.Backend = config.BackendClipboard
	typist, err = New(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &ClipboardTypist{}, typist)

	cfg.Backend = "paste"
	_, err = New(cfg, nil)
	require.Error(t, err)
}

func fakeClipboard(keys []string) (*ClipboardTypist, *[]string, *[]string) {
	var written []string
	var tapped []string
	typist := NewClipboardTypist(keys, 100*time.Millisecond, nil)
	typist.write = func(s string) error {
		written = append(written, s)
		return nil
	}
	typist.tap = func(key string, modifiers []string) error {
		tapped = append(append(tapped, modifiers...), key)
		return nil
	}
	typist.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return typist, &written, &tapped
}

func TestClipboardTypistWritesThenPastes(t *testing.T) {
	typist, written, tapped := fakeClipboard(config.OutputConfig{PasteShortcut: "Ctrl + Shift + V"}.PasteKeys())

	require.NoError(t, typist.Type(context.Background(), "hello there"))
	require.Equal(t, []string{"hello there"}, *written)
	require.Equal(t, []string{"ctrl", "shift", "v"}, *tapped)
}

func TestClipboardTypistSkipsEmptyText(t *testing.T) {
	typist, written, tapped := fakeClipboard([]string{"ctrl", "v"})

	require.NoError(t, typist.Type(context.Background(), ""))
	require.Empty(t, *written)
	require.Empty(t, *tapped)
}

func TestClipboardTypistFailures(t *testing.T) {
	typist, _, tapped := fakeClipboard([]string{"ctrl", "v"})
	typist.write = func(string) error { return errors.New("xclip missing") }

	err := typist.Type(context.Background(), "text")
	require.ErrorIs(t, err, fault.ErrSynthesis)
	require.ErrorContains(t, err, "set clipboard")
	require.Empty(t, *tapped)

	typist, written, _ := fakeClipboard([]string{"ctrl", "v"})
	typist.tap = func(string, []string) error { return errors.New("no display") }

	err = typist.Type(context.Background(), "text")
	require.ErrorIs(t, err, fault.ErrSynthesis)
	require.ErrorContains(t, err, "clipboard remains set")
	require.Equal(t, []string{"text"}, *written)
}

func TestWaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	require.NoError(t, wait(context.Background(), 0))
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
