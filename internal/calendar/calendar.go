// Package calendar computes day boundaries in the planner's fixed time zone.
package calendar

import (
	"fmt"
	"sync"
	"time"
)

// DefaultOffset is the planner's zone, UTC+03:00 all year round.
const DefaultOffset = 3 * time.Hour

const dayLayout = "2006-01-02"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Zone is a fixed UTC offset without daylight saving.
type Zone struct {
	loc    *time.Location
	offset time.Duration
}

func NewZone(offset time.Duration) Zone {
	secs := int(offset / time.Second)
	sign := '+'
	abs := offset
	if offset < 0 {
		sign = '-'
		abs = -offset
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, int(abs/time.Hour), int(abs%time.Hour/time.Minute))
	return Zone{loc: time.FixedZone(name, secs), offset: offset}
}

func DefaultZone() Zone {
	return NewZone(DefaultOffset)
}

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) Offset() time.Duration { return z.offset }

// Today returns the calendar day that contains now in the zone.
func (z Zone) Today(now time.Time) Day {
	return z.DayOf(now)
}

func (z Zone) DayOf(t time.Time) Day {
	y, m, d := t.In(z.Location()).Date()
	return Day{Year: y, Month: m, Day: d, loc: z.Location()}
}

// ParseDay reads a YYYY-MM-DD date as a day of the zone.
func (z Zone) ParseDay(raw string) (Day, error) {
	t, err := time.ParseInLocation(dayLayout, raw, z.Location())
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return z.DayOf(t), nil
}

// Encode converts an instant into the storage representation: the zone's wall
// clock labelled as UTC. The remote store holds only encoded values.
func (z Zone) Encode(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	w := t.In(z.Location())
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC)
}

// Decode is the inverse of Encode.
func (z Zone) Decode(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), z.Location())
}

// Day is a calendar date in a fixed zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
	loc   *time.Location
}

func (d Day) location() *time.Location {
	if d.loc == nil {
		return time.UTC
	}
	return d.loc
}

func (d Day) Start() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, d.location())
}

// End is the last millisecond of the day.
func (d Day) End() time.Time {
	return d.Start().AddDate(0, 0, 1).Add(-time.Millisecond)
}

func (d Day) Noon() time.Time {
	return d.Start().Add(12 * time.Hour)
}

// Contains reports whether t falls in [Start, next day's Start).
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start()) && t.Before(d.AddDays(1).Start())
}

func (d Day) AddDays(n int) Day {
	t := d.Start().AddDate(0, 0, n)
	y, m, dd := t.Date()
	return Day{Year: y, Month: m, Day: dd, loc: d.location()}
}

func (d Day) Equal(o Day) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

func (d Day) String() string {
	return d.Start().Format(dayLayout)
}
