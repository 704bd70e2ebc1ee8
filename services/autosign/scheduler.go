package autosign

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"yamisign/lib/assert"
	"yamisign/lib/chrono"
	"yamisign/lib/telemetry"
)

const DefaultPollCeiling = 60 * time.Second

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts H:MM:SS, HH:MM:SS and HH:MM.
func ParseTimeOfDay(text string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: expected H:MM:SS or HH:MM", text)
	}

	values := make([]int, 3)
	for i, part := range parts {
		if part == "" || len(part) > 2 || (i > 0 && len(part) != 2) {
			return TimeOfDay{}, fmt.Errorf("parse time of day %q: malformed component %q", text, part)
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", text, err)
		}
		values[i] = v
	}

	tod := TimeOfDay{Hour: values[0], Minute: values[1], Second: values[2]}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 || tod.Second < 0 || tod.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: out of range", text)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, day.Location())
}

// NextFireTime is today at tod, or tomorrow if that has already passed.
// A target equal to now fires now.
func NextFireTime(now time.Time, tod TimeOfDay) time.Time {
	target := tod.On(now)
	if target.Before(now) {
		target = tod.On(now.AddDate(0, 0, 1))
	}
	return target
}

// FollowingFireTime is the calendar day after the previous scheduled
// instant at tod. It is derived from the schedule, not from when the
// previous run finished.
func FollowingFireTime(prev time.Time, tod TimeOfDay) time.Time {
	return tod.On(prev.AddDate(0, 0, 1))
}

// Job is invoked once per scheduled instant.
type Job func(ctx context.Context, scheduled time.Time)

// Scheduler fires a job once a day at a fixed time of day.
type Scheduler struct {
	clock chrono.Clock
	tel   telemetry.API
}

func NewScheduler(clock chrono.Clock, tel telemetry.API) Scheduler {
	assert.NotNil(clock)
	return Scheduler{
		clock: clock,
		tel:   telemetry.NewScopedAPI("autosign", tel).Scope("scheduler"),
	}
}

// Start blocks, running job every day at tod until ctx is done. The clock
// is re-read at most every pollCeiling so wall clock changes are noticed.
func (s Scheduler) Start(ctx context.Context, tod TimeOfDay, pollCeiling time.Duration, job Job) error {
	if pollCeiling <= 0 {
		pollCeiling = DefaultPollCeiling
	}

	next := NextFireTime(s.clock.Now(), tod)
	s.tel.ReportDebug("first run scheduled", "at", next)

	for {
		err := s.waitUntil(ctx, next, pollCeiling)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		assert.True(!now.Before(next), "scheduler woke at %v before %v", now, next)

		s.tel.ReportDebug("scheduled time reached", "scheduled", next, "now", now)
		job(ctx, next)
		s.tel.ReportDebug("run completed", "scheduled", next, "now", s.clock.Now())

		next = FollowingFireTime(next, tod)
		s.tel.ReportDebug("next run scheduled", "at", next)
	}
}

func (s Scheduler) waitUntil(ctx context.Context, target time.Time, pollCeiling time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := target.Sub(s.clock.Now())
		if remaining <= 0 {
			return nil
		}
		err := s.clock.Sleep(ctx, min(pollCeiling, remaining))
		if err != nil {
			return err
		}
	}
}
