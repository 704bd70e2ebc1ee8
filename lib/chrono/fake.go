package chrono

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a Clock whose Sleep returns immediately after advancing the
// current time by the requested duration. Every sleep is recorded.
type FakeClock struct {
	mutex  sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// OnSleep, if set, is called after each sleep with the new current time.
	OnSleep func(now time.Time)
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (f *FakeClock) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeClock) Location() *time.Location {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now.Location()
}

// Set moves the clock to an arbitrary time, simulating a manual clock change.
func (f *FakeClock) Set(now time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = now
}

// Advance moves the clock forward without recording a sleep.
func (f *FakeClock) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}

func (f *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mutex.Lock()
	f.sleeps = append(f.sleeps, d)
	if d > 0 {
		f.now = f.now.Add(d)
	}
	now := f.now
	hook := f.OnSleep
	f.mutex.Unlock()

	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}

// Sleeps returns a copy of every duration passed to Sleep so far.
func (f *FakeClock) Sleeps() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
