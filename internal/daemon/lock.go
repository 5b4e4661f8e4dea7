// Package daemon supervises one murmur process: the per-user instance lock,
// signal handling, the control socket, and start/stop of detached children.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/fault"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// Paths locate the instance lock and control socket.
type Paths struct {
	Lock   string
	Socket string
}

// ResolvePaths returns $XDG_RUNTIME_DIR/murmur/{murmur.lock,murmur.sock},
// or /tmp/murmur-<uid>.{lock,sock} when no runtime dir is set.
func ResolvePaths() Paths {
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		dir := filepath.Join(runtimeDir, "murmur")
		return Paths{
			Lock:   filepath.Join(dir, "murmur.lock"),
			Socket: filepath.Join(dir, "murmur.sock"),
		}
	}
	base := filepath.Join(os.TempDir(), fmt.Sprintf("murmur-%d", unix.Getuid()))
	return Paths{Lock: base + ".lock", Socket: base + ".sock"}
}

// LockRecord is the persisted content of the instance lock.
type LockRecord struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// ConflictError reports a live instance holding the lock.
type ConflictError struct {
	PID       int
	CreatedAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("murmur already running (pid %d)", e.PID)
}

func (e *ConflictError) Is(target error) bool {
	return target == fault.ErrInstanceConflict
}

// pidReuseSlack tolerates clock skew between lock creation and the
// process start time reported by the kernel.
const pidReuseSlack = 2 * time.Second

// processAlive reports whether the process that wrote record still runs. A
// live pid that started after the lock was written is a reused pid.
var processAlive = func(record LockRecord) bool {
	if record.PID <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(record.PID))
	if err != nil {
		return true
	}
	if !exists {
		return false
	}
	if record.CreatedAt.IsZero() {
		return true
	}
	proc, err := process.NewProcess(int32(record.PID))
	if err != nil {
		return true
	}
	started, err := proc.CreateTime()
	if err != nil {
		return true
	}
	return !time.UnixMilli(started).After(record.CreatedAt.Add(pidReuseSlack))
}

// ProcessName returns the executable name of pid, or "" when unknown.
func ProcessName(pid int) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return name
}

// InstanceLock is a held lock file. Release removes it.
type InstanceLock struct {
	path   string
	record LockRecord
	once   sync.Once
}

// AcquireLock creates the lock at path for the current process. A lock left
// by a dead process is reclaimed; a live holder yields *ConflictError.
func AcquireLock(path string, now time.Time) (*InstanceLock, LockRecord, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, LockRecord{}, fmt.Errorf("ensure lock dir: %w", err)
	}

	record := LockRecord{PID: os.Getpid(), CreatedAt: now.UTC()}
	var reclaimed LockRecord
	for attempt := 0; attempt < 3; attempt++ {
		err := createLockFile(path, record)
		if err == nil {
			return &InstanceLock{path: path, record: record}, reclaimed, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, LockRecord{}, err
		}

		existing, readErr := ReadLock(path)
		switch {
		case errors.Is(readErr, fs.ErrNotExist):
			continue
		case readErr == nil && existing.PID != record.PID && processAlive(existing):
			return nil, LockRecord{}, &ConflictError{PID: existing.PID, CreatedAt: existing.CreatedAt}
		}

		reclaimed = existing
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, LockRecord{}, fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}
	return nil, LockRecord{}, fmt.Errorf("acquire lock %s: lost race after retries", path)
}

// createLockFile writes record to a temp file and links it into place so the
// lock never exists half-written.
func createLockFile(path string, record LockRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".murmur-lock-*")
	if err != nil {
		return fmt.Errorf("create lock temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write lock temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod lock temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close lock temp file: %w", err)
	}

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("link lock %s: %w", path, err)
	}
	return nil
}

// ReadLock decodes the lock at path.
func ReadLock(path string) (LockRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LockRecord{}, err
	}
	var record LockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return LockRecord{}, fmt.Errorf("decode lock %s: %w", path, err)
	}
	return record, nil
}

// Record returns what this lock wrote.
func (l *InstanceLock) Record() LockRecord {
	return l.record
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release removes the lock if it still belongs to this process. It is safe
// to call more than once.
func (l *InstanceLock) Release() error {
	var err error
	l.once.Do(func() {
		current, readErr := ReadLock(l.path)
		if errors.Is(readErr, fs.ErrNotExist) {
			return
		}
		if readErr == nil && current.PID != l.record.PID {
			return
		}
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = fmt.Errorf("remove lock %s: %w", l.path, rmErr)
		}
	})
	return err
}
