package testfixtures

import (
	"sync"
	"time"

	"github.com/example/lodging-scheduler/internal/civil"
)

// Clock is a settable time source shared by the services a test builds.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection into BookingDeps and services. A nil
// clock falls back to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetLocal moves the clock to the wall time clock on day in loc, which is
// how stay windows and slot sweeps are expressed.
func (c *Clock) SetLocal(day civil.Date, clock civil.Clock, loc *time.Location) time.Time {
	t := day.At(clock, loc)
	c.Set(t)
	return t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Today is the property date the clock currently falls on.
func (c *Clock) Today(loc *time.Location) civil.Date {
	return civil.DateOf(c.Now().In(loc))
}
