package config

const (
	BackendPulse = "pulse"
	BackendMalgo = "malgo"

	BackendX11   = "x11"
	BackendEvdev = "evdev"

	BackendCommand       = "command"
	BackendWhisperServer = "whisper_server"

	BackendRobotgo   = "robotgo"
	BackendClipboard = "clipboard"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	recognizer := "whisper-cli -m ~/.local/share/murmur/models/ggml-base.en.bin -nt -np -f {wav}"

	return Config{
		Audio: AudioConfig{
			Backend:             BackendPulse,
			Device:              "default",
			SampleRate:          16000,
			Channels:            1,
			FrameMS:             32,
			MaxRecordingSeconds: 120,
			QueueFrames:         256,
		},
		PTT: PTTConfig{
			MinHoldMS:     400,
			PostReleaseMS: 300,
		},
		Hotkey: HotkeyConfig{
			Backend:  BackendX11,
			Modifier: "ctrl",
			Trigger:  "space",
		},
		Recognizer: RecognizerConfig{
			Backend:   BackendCommand,
			Command:   CommandConfig{Raw: recognizer, Argv: mustParseArgv(recognizer)},
			URL:       "http://127.0.0.1:8080/inference",
			Language:  "en",
			TimeoutMS: 30000,
		},
		Output: OutputConfig{
			Backend:            BackendRobotgo,
			TypingDelaySeconds: 0.01,
			LeadInMS:           100,
			PasteShortcut:      "ctrl+v",
			Capitalize:         true,
		},
		Feedback: FeedbackConfig{Enable: true},
		Log:      LogConfig{Level: "info"},
	}
}
