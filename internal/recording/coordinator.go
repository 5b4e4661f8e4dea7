package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/audio"
)

// Options bound one episode's recording.
type Options struct {
	Format       audio.Format
	MaxRecording time.Duration
}

func (o Options) maxFrames() int {
	frame := o.Format.FrameDuration()
	if o.MaxRecording <= 0 || frame <= 0 {
		return 0
	}
	return int(o.MaxRecording / frame)
}

// Coordinator pulls frames from an open stream into a Buffer on its own
// goroutine until closed.
type Coordinator struct {
	stream audio.Stream
	logger *slog.Logger

	faults chan error
	done   chan struct{}

	mu     sync.Mutex
	buffer *Buffer
	closed bool
	err    error

	closeOnce sync.Once
	result    Recording
	resultErr error
}

// Open opens the source and starts the pull loop. It blocks for as long as
// the device takes to open.
func Open(ctx context.Context, source audio.Source, opts Options, logger *slog.Logger) (*Coordinator, error) {
	stream, err := source.Open(ctx, opts.Format)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Coordinator{
		stream: stream,
		logger: logger,
		faults: make(chan error, 1),
		done:   make(chan struct{}),
		buffer: NewBuffer(opts.Format, opts.maxFrames()),
	}
	go c.pullLoop()
	return c, nil
}

// Faults delivers the first capture failure, if any. It is never closed.
func (c *Coordinator) Faults() <-chan error {
	return c.faults
}

// Frames reports how many frames are buffered.
func (c *Coordinator) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Len()
}

func (c *Coordinator) pullLoop() {
	defer close(c.done)
	for {
		frame, err := c.stream.Pull(context.Background())
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			c.fail(fmt.Errorf("pull audio frame: %w", err))
			return
		}
		if err := c.append(frame); err != nil {
			c.fail(err)
			return
		}
	}
}

func (c *Coordinator) append(frame audio.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.buffer.Append(frame)
}

// fail records the first capture error, stops the device, and notifies the
// owner. The buffer is kept until Close so the owner decides its fate.
func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	first := c.err == nil
	if first {
		c.err = err
	}
	c.mu.Unlock()
	if !first {
		return
	}

	c.logger.Error("audio capture failed", "error", err.Error())
	_ = c.stream.Close()
	select {
	case c.faults <- err:
	default:
	}
}

// Close stops the device, waits for frames it already delivered, and returns
// the frames delivered at or before cutoff as one contiguous buffer. No frame
// is appended after Close returns. Later calls return the first result.
func (c *Coordinator) Close(cutoff time.Time) (Recording, error) {
	c.closeOnce.Do(func() {
		closeErr := c.stream.Close()
		<-c.done

		c.mu.Lock()
		c.closed = true
		c.result = c.buffer.Flatten(cutoff)
		c.resultErr = c.err
		c.buffer = NewBuffer(c.buffer.format, 0)
		c.mu.Unlock()

		if c.resultErr == nil && closeErr != nil {
			c.resultErr = fmt.Errorf("close audio stream: %w", closeErr)
		}
		if c.resultErr != nil {
			c.result = Recording{Format: c.result.Format}
		}
	})
	return c.result, c.resultErr
}

// Discard closes the coordinator and drops everything it buffered.
func (c *Coordinator) Discard() {
	_, _ = c.Close(time.Time{})
}
