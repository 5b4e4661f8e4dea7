package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/murmur/internal/fault"
	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "murmur", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "murmur", "config.jsonc"), resolved)
}

func TestAutostartPathFollowsConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	path, err := AutostartPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "autostart", "murmur.desktop"), path)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err = AutostartPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "autostart", "murmur.desktop"), path)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "audio": { "device": "usb" },
  "feedback": { "enable": false }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "usb", loaded.Config.Audio.Device)
	require.False(t, loaded.Config.Feedback.Enable)
}

func TestLoadInvalidConfigIsConfigurationInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"audio": {"sample_rate": -1}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.ErrorIs(t, err, fault.ErrConfigInvalid)
	require.Contains(t, err.Error(), "audio.sample_rate")
}

func TestExpandUser(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, "", ExpandUser("  "))
	require.Equal(t, home, ExpandUser("~"))
	require.Equal(t, filepath.Join(home, "sounds", "start.wav"), ExpandUser("~/sounds/start.wav"))
	require.Equal(t, "/abs/start.wav", ExpandUser("/abs/start.wav"))
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	require.Equal(t, int64(400), cfg.PTT.MinHold().Milliseconds())
	require.Equal(t, int64(300), cfg.PTT.PostRelease().Milliseconds())
	require.Equal(t, 512, cfg.Audio.FrameSamples())
	require.Equal(t, int64(10), cfg.Output.TypingDelay().Milliseconds())
}
