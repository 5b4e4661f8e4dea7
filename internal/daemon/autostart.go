package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteAutostart installs a desktop entry at path that runs
// `exe --config configPath start` when the user logs in. An existing entry is
// replaced.
func WriteAutostart(path, exe, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}

	execLine := strings.Join([]string{desktopQuote(exe), "--config", desktopQuote(configPath), "start"}, " ")
	entry := "[Desktop Entry]\n" +
		"Type=Application\n" +
		"Name=murmur\n" +
		"Comment=Push-to-talk dictation\n" +
		"Exec=" + execLine + "\n" +
		"Icon=audio-input-microphone\n" +
		"Terminal=false\n" +
		"X-GNOME-Autostart-enabled=true\n" +
		"Hidden=false\n" +
		"NoDisplay=false\n"

	tmp, err := os.CreateTemp(filepath.Dir(path), ".murmur-desktop-*")
	if err != nil {
		return fmt.Errorf("create autostart entry: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(entry); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write autostart entry: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod autostart entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close autostart entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install autostart entry: %w", err)
	}
	return nil
}

// desktopQuote quotes an Exec argument when it holds reserved characters.
// Inside quotes, backslash, quote, backtick and dollar take a backslash, and
// that backslash is itself doubled by the string-value escaping of the file.
func desktopQuote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\\\`, `"`, `\\"`, "`", "\\\\`", `$`, `\\$`)
	return `"` + r.Replace(arg) + `"`
}
