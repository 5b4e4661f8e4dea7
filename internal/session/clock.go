package session

import "time"

// Clock supplies time to the controller so tests can drive timers.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer the controller uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type systemClock struct{}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s systemTimer) C() <-chan time.Time {
	return s.t.C
}

func (s systemTimer) Stop() bool {
	return s.t.Stop()
}

// timerC returns the timer channel, or nil so a select never fires on an
// unset timer.
func timerC(t Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}

// remaining reports how long is left until deadline, never negative.
func remaining(clock Clock, deadline time.Time) time.Duration {
	d := deadline.Sub(clock.Now())
	if d < 0 {
		return 0
	}
	return d
}
