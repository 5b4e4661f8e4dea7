// Package recording accumulates captured frames for one dictation episode.
package recording

import (
	"fmt"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/fault"
)

// Buffer is the append-only frame sequence of one episode.
type Buffer struct {
	format    audio.Format
	maxFrames int
	frames    []audio.Frame
	next      uint64
	started   bool
}

// NewBuffer creates an empty buffer bounded to maxFrames (0 means unbounded).
func NewBuffer(format audio.Format, maxFrames int) *Buffer {
	return &Buffer{format: format, maxFrames: maxFrames}
}

// Append adds one frame. Sequence gaps and the length bound both surface as
// fault.ErrOverflow; the frame is not appended in that case.
func (b *Buffer) Append(frame audio.Frame) error {
	if b.started && frame.Seq != b.next {
		return fmt.Errorf("%w: frame sequence gap: expected %d, got %d", fault.ErrOverflow, b.next, frame.Seq)
	}
	if b.maxFrames > 0 && len(b.frames) >= b.maxFrames {
		return fmt.Errorf("%w: recording exceeded %s", fault.ErrOverflow, time.Duration(b.maxFrames)*b.format.FrameDuration())
	}
	if want := b.format.FrameLen(); want > 0 && len(frame.Samples) != want {
		return fmt.Errorf("frame %d has %d samples, want %d", frame.Seq, len(frame.Samples), want)
	}

	b.frames = append(b.frames, frame)
	b.next = frame.Seq + 1
	b.started = true
	return nil
}

// Len is the number of frames appended so far.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Recording is a closed buffer flattened for recognition.
type Recording struct {
	Format  audio.Format
	Samples []int16
	// Frames counts frames included in Samples.
	Frames int
	// Trailing counts frames dropped for arriving after the cutoff.
	Trailing int
}

// Duration is the audio length of Samples.
func (r Recording) Duration() time.Duration {
	return time.Duration(r.Frames) * r.Format.FrameDuration()
}

// Empty reports whether the recording holds no audio.
func (r Recording) Empty() bool {
	return len(r.Samples) == 0
}

// Flatten concatenates frames delivered at or before cutoff. A zero cutoff
// keeps every frame.
func (b *Buffer) Flatten(cutoff time.Time) Recording {
	kept := len(b.frames)
	if !cutoff.IsZero() {
		kept = 0
		for kept < len(b.frames) && !b.frames[kept].At.After(cutoff) {
			kept++
		}
	}

	samples := make([]int16, 0, kept*b.format.FrameLen())
	for _, frame := range b.frames[:kept] {
		samples = append(samples, frame.Samples...)
	}

	return Recording{
		Format:   b.format,
		Samples:  samples,
		Frames:   kept,
		Trailing: len(b.frames) - kept,
	}
}
