package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/rbright/murmur/internal/fault"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/session"
	"golang.org/x/sys/unix"
)

// Session is the controller a Supervisor drives.
type Session interface {
	Run(ctx context.Context, edges <-chan hotkey.Edge) error
	Status() session.Status
}

// Capabilities are acquired once the lock is held.
type Capabilities struct {
	Hotkeys hotkey.Source
	Session Session
	// Close releases anything Acquire opened. Optional.
	Close func()
}

// AcquireFunc opens the hotkey and audio capabilities. Errors should wrap a
// fault kind.
type AcquireFunc func(context.Context) (Capabilities, error)

// Supervisor runs one daemon lifetime.
type Supervisor struct {
	Paths   Paths
	Logger  *slog.Logger
	Acquire AcquireFunc
	Now     func() time.Time
}

// Run holds the instance lock for the lifetime of the session. SIGINT,
// SIGTERM, ctx cancellation, and the control-socket stop command all become
// one cancellation of the session; Run returns after the session has gone
// idle and the lock is removed.
func (s *Supervisor) Run(ctx context.Context) (err error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	lock, reclaimed, err := AcquireLock(s.Paths.Lock, now())
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Error("release instance lock failed", "error", releaseErr.Error())
			err = errors.Join(err, releaseErr)
		}
	}()
	if reclaimed.PID != 0 {
		logger.Warn("reclaimed stale instance lock", "stale_pid", reclaimed.PID, "path", lock.Path())
	}
	logger.Info("instance lock acquired", "path", lock.Path(), "pid", lock.Record().PID)

	ctx, stopSignals := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	caps, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	if caps.Close != nil {
		defer caps.Close()
	}

	edges, err := caps.Hotkeys.Subscribe(ctx)
	if err != nil {
		if errors.Is(err, fault.ErrCapabilityUnavailable) {
			return err
		}
		return fmt.Errorf("%w: subscribe hotkey: %w", fault.ErrCapabilityUnavailable, err)
	}

	serveDone := s.serveControl(ctx, logger, caps.Session, cancel)

	logger.Info("daemon ready")
	runErr := caps.Session.Run(ctx, edges)
	cancel()
	<-serveDone

	if runErr != nil {
		return runErr
	}
	logger.Info("daemon stopped", "episodes", caps.Session.Status().Episodes)
	return nil
}

// serveControl starts the control socket. A socket failure is logged and the
// daemon keeps running without it; the lock still guards the instance.
func (s *Supervisor) serveControl(ctx context.Context, logger *slog.Logger, sess Session, stop context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	if s.Paths.Socket == "" {
		close(done)
		return done
	}

	listener, err := ipc.Listen(ctx, s.Paths.Socket, 150*time.Millisecond, 2)
	if err != nil {
		logger.Warn("control socket unavailable", "path", s.Paths.Socket, "error", err.Error())
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer os.Remove(s.Paths.Socket)
		if err := ipc.Serve(ctx, listener, controlHandler(sess, stop)); err != nil {
			logger.Error("control socket failed", "error", err.Error())
		}
	}()
	return done
}

func controlHandler(sess Session, stop context.CancelFunc) ipc.Handler {
	pid := os.Getpid()
	return ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		status := sess.Status()
		resp := ipc.Response{OK: true, State: string(status.State), PID: pid, Episodes: status.Episodes}
		switch req.Command {
		case ipc.CommandStatus:
			resp.Message = "running"
		case ipc.CommandStop:
			stop()
			resp.Message = "stop requested"
		default:
			resp.OK = false
			resp.Error = fmt.Sprintf("unknown command: %s", req.Command)
		}
		return resp
	})
}
