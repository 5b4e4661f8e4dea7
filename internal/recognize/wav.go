package recognize

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rbright/murmur/internal/recording"
)

// WriteWAV encodes the recording as 16-bit PCM WAV.
func WriteWAV(w io.WriteSeeker, rec recording.Recording) error {
	channels := rec.Format.Channels
	if channels <= 0 {
		channels = 1
	}

	enc := wav.NewEncoder(w, rec.Format.SampleRate, 16, channels, 1)
	data := make([]int, len(rec.Samples))
	for i, sample := range rec.Samples {
		data[i] = int(sample)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rec.Format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// writeTempWAV writes the recording to a private temp file. The caller must
// remove the returned path.
func writeTempWAV(rec recording.Recording) (string, error) {
	file, err := os.CreateTemp("", "murmur-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	path := file.Name()

	if err := WriteWAV(file, rec); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return path, nil
}
