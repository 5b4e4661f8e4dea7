package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/murmur/internal/fault"
)

// CommandTypist hands text to an external typer such as `wtype -` or
// `xdotool type --file -` on stdin.
type CommandTypist struct {
	argv   []string
	leadIn time.Duration
	logger *slog.Logger
}

func NewCommandTypist(argv []string, leadIn time.Duration, logger *slog.Logger) *CommandTypist {
	return &CommandTypist{argv: argv, leadIn: leadIn, logger: logger}
}

func (t *CommandTypist) Type(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := wait(ctx, t.leadIn); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrSynthesis, err)
	}

	commandCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := runCommandWithInput(commandCtx, t.argv, text); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrSynthesis, err)
	}
	if t.logger != nil {
		t.logger.Debug("typing command finished", "command", t.argv[0], "chars", len([]rune(text)))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
