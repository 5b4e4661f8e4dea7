package audio

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/rbright/murmur/internal/fault"
	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func steppedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestFormatDerivedSizes(t *testing.T) {
	format := Format{SampleRate: 16000, Channels: 2, FrameSamples: 512}
	require.Equal(t, 1024, format.FrameLen())
	require.Equal(t, 2048, format.FrameBytes())
	require.Equal(t, 32*time.Millisecond, format.FrameDuration())
	require.Zero(t, Format{}.FrameDuration())
}

func TestFramerCutsFixedFramesAcrossWrites(t *testing.T) {
	start := time.Unix(100, 0)
	f := newFramer(Format{SampleRate: 8000, Channels: 1, FrameSamples: 3, QueueFrames: 8}, steppedClock(start, time.Millisecond))

	n, err := f.write(pcm(1, 2))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	_, err = f.write(pcm(3, 4, 5, 6, 7))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := f.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), first.Seq)
	require.Equal(t, []int16{1, 2, 3}, first.Samples)
	require.Equal(t, start.Add(time.Millisecond), first.At)

	second, err := f.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), second.Seq)
	require.Equal(t, []int16{4, 5, 6}, second.Samples)

	f.finish()
	tail, err := f.pull(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tail.Seq)
	require.Equal(t, []int16{7, 0, 0}, tail.Samples)

	_, err = f.pull(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestFramerRejectsWritesAfterFinish(t *testing.T) {
	f := newFramer(Format{SampleRate: 8000, Channels: 1, FrameSamples: 2, QueueFrames: 2}, nil)
	f.finish()
	f.finish()

	n, err := f.write(pcm(1, 2))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestFramerFullQueueIsOverflow(t *testing.T) {
	f := newFramer(Format{SampleRate: 8000, Channels: 1, FrameSamples: 1, QueueFrames: 2}, nil)

	_, err := f.write(pcm(1, 2, 3))
	require.NoError(t, err)

	_, err = f.pull(context.Background())
	require.ErrorIs(t, err, fault.ErrOverflow)
	require.ErrorContains(t, err, "frame 2")

	f.finish()
	_, err = f.pull(context.Background())
	require.ErrorIs(t, err, fault.ErrOverflow)
}

func TestFramerPullHonorsContext(t *testing.T) {
	f := newFramer(Format{SampleRate: 8000, Channels: 1, FrameSamples: 4, QueueFrames: 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pull(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
