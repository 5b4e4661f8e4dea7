package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/fault"
)

// Format is the PCM shape a Source is opened with.
type Format struct {
	SampleRate int
	Channels   int
	// FrameSamples is the per-channel sample count of one Frame.
	FrameSamples int
	// QueueFrames bounds how many delivered frames may wait for Pull.
	QueueFrames int
}

// FrameLen is the interleaved sample count of one Frame.
func (f Format) FrameLen() int {
	return f.FrameSamples * f.Channels
}

// FrameBytes is the s16le byte size of one Frame.
func (f Format) FrameBytes() int {
	return f.FrameLen() * 2
}

func (f Format) FrameDuration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.FrameSamples) * time.Second / time.Duration(f.SampleRate)
}

// Frame is one fixed-length block of interleaved s16 PCM.
type Frame struct {
	Seq     uint64
	At      time.Time
	Samples []int16
}

// Source opens capture streams on one device.
type Source interface {
	Open(ctx context.Context, format Format) (Stream, error)
}

// Stream yields frames in device-delivery order.
//
// Pull blocks until a frame is ready. After Close it keeps returning frames
// the device already delivered, then io.EOF.
type Stream interface {
	Pull(ctx context.Context) (Frame, error)
	Close() error
}

// framer cuts device callbacks into fixed-size frames and queues them for Pull.
// The queue is bounded; when it fills the stream fails with fault.ErrOverflow
// instead of dropping audio.
type framer struct {
	format Format
	now    func() time.Time
	frames chan Frame

	mu      sync.Mutex
	pending []byte
	seq     uint64
	closed  bool
	err     error
}

func newFramer(format Format, now func() time.Time) *framer {
	queue := format.QueueFrames
	if queue <= 0 {
		queue = 1
	}
	if now == nil {
		now = time.Now
	}
	return &framer{
		format: format,
		now:    now,
		frames: make(chan Frame, queue),
	}
}

// write accepts s16le bytes from the device. It returns io.EOF once the
// framer is finished so the device callback can stop.
func (f *framer) write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.EOF
	}
	if f.err != nil {
		return len(b), nil
	}

	f.pending = append(f.pending, b...)
	size := f.format.FrameBytes()
	for len(f.pending) >= size {
		f.emitLocked(f.pending[:size])
		f.pending = f.pending[size:]
	}
	return len(b), nil
}

func (f *framer) emitLocked(b []byte) {
	samples := make([]int16, f.format.FrameLen())
	for i := 0; i+1 < len(b) && i/2 < len(samples); i += 2 {
		samples[i/2] = int16(binary.LittleEndian.Uint16(b[i:]))
	}

	frame := Frame{Seq: f.seq, At: f.now(), Samples: samples}
	f.seq++

	select {
	case f.frames <- frame:
	default:
		f.err = fmt.Errorf("%w: capture queue full at frame %d", fault.ErrOverflow, frame.Seq)
	}
}

// finish flushes a trailing partial frame padded with silence and closes the
// queue. Safe to call more than once.
func (f *framer) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if len(f.pending) > 0 && f.err == nil {
		padded := make([]byte, f.format.FrameBytes())
		copy(padded, f.pending)
		f.emitLocked(padded)
	}
	f.pending = nil
	f.closed = true
	close(f.frames)
}

func (f *framer) overflow() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *framer) pull(ctx context.Context) (Frame, error) {
	if err := f.overflow(); err != nil {
		return Frame{}, err
	}
	select {
	case frame, ok := <-f.frames:
		if !ok {
			if err := f.overflow(); err != nil {
				return Frame{}, err
			}
			return Frame{}, io.EOF
		}
		return frame, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}
