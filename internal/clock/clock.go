// Package clock provides an injectable time source pinned to one zone.
package clock

import "time"

// Clock supplies "now" and "today" in a single configured time zone.
// Injected everywhere the core needs wall time so tests can fix it.
type Clock interface {
	Now() time.Time
	// Today returns midnight of the current day in the clock's zone.
	Today() time.Time
	Location() *time.Location
}

type zoned struct {
	loc *time.Location
}

// New returns a Clock reading the system time in loc. A nil loc
// defaults to time.Local.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &zoned{loc: loc}
}

func (z *zoned) Now() time.Time           { return time.Now().In(z.loc) }
func (z *zoned) Location() *time.Location { return z.loc }

func (z *zoned) Today() time.Time {
	return Midnight(z.Now())
}

// Midnight truncates t to midnight in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Fixed is a Clock frozen at a settable instant, for tests.
type Fixed struct {
	Time time.Time
}

// NewFixed returns a Fixed clock set to t.
func NewFixed(t time.Time) *Fixed { return &Fixed{Time: t} }

func (f *Fixed) Now() time.Time            { return f.Time }
func (f *Fixed) Today() time.Time          { return Midnight(f.Time) }
func (f *Fixed) Location() *time.Location  { return f.Time.Location() }
func (f *Fixed) Advance(d time.Duration)   { f.Time = f.Time.Add(d) }
