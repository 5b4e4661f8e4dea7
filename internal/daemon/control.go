package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rbright/murmur/internal/ipc"
	"golang.org/x/sys/unix"
)

// StopTimeout bounds how long Stop waits for a signalled daemon to exit.
const StopTimeout = 5 * time.Second

const pollInterval = 50 * time.Millisecond

// Instance describes the daemon recorded in the lock, if any.
type Instance struct {
	Running   bool
	Stale     bool
	PID       int
	CreatedAt time.Time
	Name      string
	// State and Episodes come from the control socket and stay empty when it
	// does not answer.
	State    string
	Episodes uint64
}

// Inspect reads the lock and asks a live daemon for its state.
func Inspect(ctx context.Context, paths Paths) (Instance, error) {
	record, err := ReadLock(paths.Lock)
	if errors.Is(err, fs.ErrNotExist) {
		return Instance{}, nil
	}
	if err != nil {
		return Instance{Stale: true}, nil
	}

	inst := Instance{PID: record.PID, CreatedAt: record.CreatedAt}
	if !processAlive(record) {
		inst.Stale = true
		return inst, nil
	}
	inst.Running = true
	inst.Name = ProcessName(record.PID)

	if paths.Socket != "" {
		resp, sendErr := ipc.Send(ctx, paths.Socket, ipc.Request{Command: ipc.CommandStatus}, 250*time.Millisecond)
		if sendErr == nil && resp.OK {
			inst.State = resp.State
			inst.Episodes = resp.Episodes
		}
	}
	return inst, nil
}

// Stop sends SIGTERM to the recorded daemon and waits up to timeout for it
// to remove its lock. A stale lock is removed directly.
func Stop(ctx context.Context, paths Paths, timeout time.Duration) (Instance, error) {
	inst, err := Inspect(ctx, paths)
	if err != nil {
		return inst, err
	}
	if !inst.Running {
		if inst.Stale {
			if rmErr := os.Remove(paths.Lock); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				return inst, fmt.Errorf("remove stale lock: %w", rmErr)
			}
		}
		return inst, nil
	}

	if err := unix.Kill(inst.PID, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			_ = os.Remove(paths.Lock)
			return inst, nil
		}
		return inst, fmt.Errorf("signal pid %d: %w", inst.PID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		record, readErr := ReadLock(paths.Lock)
		if errors.Is(readErr, fs.ErrNotExist) || (readErr == nil && record.PID != inst.PID) {
			return inst, nil
		}
		if readErr == nil && !processAlive(record) {
			_ = os.Remove(paths.Lock)
			return inst, nil
		}

		select {
		case <-ctx.Done():
			return inst, fmt.Errorf("daemon pid %d did not stop within %s", inst.PID, timeout)
		case <-ticker.C:
		}
	}
}

// ChildExitError reports a spawned daemon that exited before taking the lock.
type ChildExitError struct {
	Code int
}

func (e *ChildExitError) Error() string {
	return fmt.Sprintf("daemon exited during startup with code %d", e.Code)
}

// Spawn starts exe with args as a detached daemon in its own session and
// waits until it answers status on the control socket, which happens only
// after its capabilities are acquired. A child that exits first is reported
// as a ChildExitError carrying its exit code.
func Spawn(ctx context.Context, paths Paths, exe string, args []string, timeout time.Duration) (int, error) {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start daemon: %w", err)
	}
	pid := cmd.Process.Pid

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if daemonReady(ctx, paths, pid) {
			return pid, nil
		}

		select {
		case waitErr := <-exited:
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				return 0, &ChildExitError{Code: exitErr.ExitCode()}
			}
			if waitErr != nil {
				return 0, fmt.Errorf("daemon exited during startup: %w", waitErr)
			}
			return 0, &ChildExitError{Code: 0}
		case <-ctx.Done():
			return pid, fmt.Errorf("daemon pid %d did not become ready within %s", pid, timeout)
		case <-ticker.C:
		}
	}
}

// daemonReady reports whether pid holds the lock and serves the control
// socket, when one is configured.
func daemonReady(ctx context.Context, paths Paths, pid int) bool {
	record, err := ReadLock(paths.Lock)
	if err != nil || record.PID != pid {
		return false
	}
	if paths.Socket == "" {
		return true
	}
	resp, err := ipc.Send(ctx, paths.Socket, ipc.Request{Command: ipc.CommandStatus}, 200*time.Millisecond)
	return err == nil && resp.OK && resp.PID == pid
}
