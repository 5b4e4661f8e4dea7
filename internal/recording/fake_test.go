package recording

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/murmur/internal/audio"
)

// scriptedSource hands out one scriptedStream.
type scriptedSource struct {
	stream  *scriptedStream
	openErr error
}

func (s *scriptedSource) Open(context.Context, audio.Format) (audio.Stream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.stream, nil
}

// scriptedStream delivers frames pushed by the test, in order, and ends with
// io.EOF once closed and drained.
type scriptedStream struct {
	frames chan audio.Frame
	errs   chan error
	once   sync.Once
	stop   chan struct{}
	closes atomic.Int32
}

func newScriptedStream() *scriptedStream {
	return &scriptedStream{
		frames: make(chan audio.Frame, 64),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
	}
}

func (s *scriptedStream) Pull(ctx context.Context) (audio.Frame, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case err := <-s.errs:
		return audio.Frame{}, err
	case <-s.stop:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
			return audio.Frame{}, io.EOF
		}
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

func (s *scriptedStream) Close() error {
	s.once.Do(func() {
		s.closes.Add(1)
		close(s.stop)
	})
	return nil
}

var testFormat = audio.Format{SampleRate: 1000, Channels: 1, FrameSamples: 10, QueueFrames: 8}

func frameAt(seq uint64, at time.Time, value int16) audio.Frame {
	samples := make([]int16, testFormat.FrameLen())
	for i := range samples {
		samples[i] = value
	}
	return audio.Frame{Seq: seq, At: at, Samples: samples}
}
