package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/fault"
	"github.com/stretchr/testify/require"
)

func stubAlive(t *testing.T, alive bool) {
	t.Helper()
	prev := processAlive
	processAlive = func(LockRecord) bool { return alive }
	t.Cleanup(func() { processAlive = prev })
}

func writeLock(t *testing.T, path string, record LockRecord) {
	t.Helper()
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestResolvePathsUsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	paths := ResolvePaths()
	require.Equal(t, "/run/user/1000/murmur/murmur.lock", paths.Lock)
	require.Equal(t, "/run/user/1000/murmur/murmur.sock", paths.Socket)
}

func TestResolvePathsFallsBackToTmp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("TMPDIR", "/tmp")
	paths := ResolvePaths()
	require.Regexp(t, `^/tmp/murmur-\d+\.lock$`, paths.Lock)
	require.Regexp(t, `^/tmp/murmur-\d+\.sock$`, paths.Socket)
}

func TestAcquireLockCreatesAndReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murmur", "murmur.lock")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	lock, reclaimed, err := AcquireLock(path, now)
	require.NoError(t, err)
	require.Zero(t, reclaimed.PID)

	record, err := ReadLock(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), record.PID)
	require.True(t, record.CreatedAt.Equal(now))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".murmur-lock-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestAcquireLockRejectsLiveHolder(t *testing.T) {
	stubAlive(t, true)
	path := filepath.Join(t.TempDir(), "murmur.lock")
	holder := LockRecord{PID: os.Getpid() + 1, CreatedAt: time.Unix(1_700_000_000, 0).UTC()}
	writeLock(t, path, holder)

	_, _, err := AcquireLock(path, time.Now())
	require.ErrorIs(t, err, fault.ErrInstanceConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, holder.PID, conflict.PID)
	require.Contains(t, err.Error(), "already running")

	record, readErr := ReadLock(path)
	require.NoError(t, readErr)
	require.Equal(t, holder.PID, record.PID)
}

func TestAcquireLockReclaimsDeadHolder(t *testing.T) {
	stubAlive(t, false)
	path := filepath.Join(t.TempDir(), "murmur.lock")
	writeLock(t, path, LockRecord{PID: os.Getpid() + 1, CreatedAt: time.Unix(1_700_000_000, 0).UTC()})

	lock, reclaimed, err := AcquireLock(path, time.Now())
	require.NoError(t, err)
	defer lock.Release()
	require.Equal(t, os.Getpid()+1, reclaimed.PID)

	record, err := ReadLock(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), record.PID)
}

func TestAcquireLockReclaimsUnreadableLock(t *testing.T) {
	stubAlive(t, true)
	path := filepath.Join(t.TempDir(), "murmur.lock")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	lock, _, err := AcquireLock(path, time.Now())
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murmur.lock")
	lock, _, err := AcquireLock(path, time.Now())
	require.NoError(t, err)

	foreign := LockRecord{PID: os.Getpid() + 7, CreatedAt: time.Now().UTC()}
	require.NoError(t, os.Remove(path))
	writeLock(t, path, foreign)

	require.NoError(t, lock.Release())
	record, err := ReadLock(path)
	require.NoError(t, err)
	require.Equal(t, foreign.PID, record.PID)
}

func TestProcessAliveChecksStartTime(t *testing.T) {
	require.True(t, processAlive(LockRecord{PID: os.Getpid(), CreatedAt: time.Now()}))
	require.True(t, processAlive(LockRecord{PID: os.Getpid()}))
	require.False(t, processAlive(LockRecord{PID: 0}))

	// This process started long after the lock claims to have been written,
	// so the pid must have been reused.
	require.False(t, processAlive(LockRecord{PID: os.Getpid(), CreatedAt: time.Unix(946_684_800, 0)}))
}

func TestProcessNameForSelf(t *testing.T) {
	require.NotEmpty(t, ProcessName(os.Getpid()))
}
