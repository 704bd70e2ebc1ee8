package chrono

import (
	"context"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the clock's location.
	Now() time.Time
	Location() *time.Location
}

// Clock is a TimeAPI that can also block, anything that sleeps should
// depend on this instead of calling time.Sleep directly.
type Clock interface {
	TimeAPI
	// Sleep blocks for d or until ctx is done, in which case ctx.Err() is returned.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardClock is the standard implementation of Clock using the standard library.
type StandardClock struct {
	location *time.Location
}

// NewStandardClock loads the given IANA timezone, an empty name or "Local"
// uses the machine's local timezone.
func NewStandardClock(timezone string) (StandardClock, error) {
	if timezone == "" {
		timezone = "Local"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardClock{}, err
	}
	return StandardClock{location: location}, nil
}

func (s StandardClock) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardClock) Location() *time.Location {
	return s.location
}

func (s StandardClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
