package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cue"
	"github.com/rbright/murmur/internal/recording"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	timer := &fakeTimer{deadline: f.now.Add(d), c: make(chan time.Time, 1)}
	if d <= 0 {
		timer.fire(f.now)
	}
	f.timers = append(f.timers, timer)
	return timer
}

// Advance moves time forward and fires every timer that came due.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	for _, timer := range f.timers {
		if !timer.deadline.After(f.now) {
			timer.fire(f.now)
		}
	}
}

type fakeTimer struct {
	deadline time.Time
	c        chan time.Time
	done     atomic.Bool
}

func (t *fakeTimer) fire(now time.Time) {
	if t.done.CompareAndSwap(false, true) {
		t.c <- now
	}
}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

func (t *fakeTimer) Stop() bool {
	return t.done.CompareAndSwap(false, true)
}

var testFormat = audio.Format{SampleRate: 1000, Channels: 1, FrameSamples: 10, QueueFrames: 8}

// fakeCapture buffers frames pushed by the test in a real recording.Buffer.
type fakeCapture struct {
	mu     sync.Mutex
	buffer *recording.Buffer
	cutoff time.Time
	faults chan error
	closes atomic.Int32
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{
		buffer: recording.NewBuffer(testFormat, 0),
		faults: make(chan error, 1),
	}
}

func (f *fakeCapture) push(seq uint64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffer.Append(audio.Frame{Seq: seq, At: at, Samples: make([]int16, testFormat.FrameLen())})
}

func (f *fakeCapture) Faults() <-chan error {
	return f.faults
}

func (f *fakeCapture) Close(cutoff time.Time) (recording.Recording, error) {
	f.closes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.buffer.Flatten(cutoff), nil
}

func (f *fakeCapture) Discard() {
	f.closes.Add(1)
}

type fakeOpener struct {
	err    error
	opened chan *fakeCapture
	calls  atomic.Int32
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{opened: make(chan *fakeCapture, 4)}
}

func (f *fakeOpener) Open(context.Context) (Capture, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	capture := newFakeCapture()
	f.opened <- capture
	return capture, nil
}

type fakeEngine struct {
	text  string
	err   error
	gate  chan struct{}
	calls atomic.Int32

	mu   sync.Mutex
	last recording.Recording
}

func (f *fakeEngine) Transcribe(ctx context.Context, rec recording.Recording) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = rec
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.text, f.err
}

func (f *fakeEngine) lastRecording() recording.Recording {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeTypist struct {
	err   error
	gate  chan struct{}
	calls atomic.Int32
	mu    sync.Mutex
	typed []string
}

func (f *fakeTypist) Type(_ context.Context, text string) error {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed = append(f.typed, text)
	return f.err
}

func (f *fakeTypist) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.typed...)
}

type fakeCues struct {
	mu     sync.Mutex
	played []cue.Name
}

func (f *fakeCues) Play(name cue.Name) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, name)
}

func (f *fakeCues) names() []cue.Name {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cue.Name(nil), f.played...)
}
