// Package civil models calendar dates and wall-clock times that carry no
// location of their own. They are pinned to the property's time zone only
// when converted to instants.
package civil

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("civil: date must be formatted as YYYY-MM-DD")
	// ErrInvalidClock is returned when a clock string is not HH:MM.
	ErrInvalidClock = errors.New("civil: clock time must be formatted as HH:MM")
)

// Date is a calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns midnight at the start of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the instant of clock c on d in loc. A clock of 24:00 resolves to
// the following midnight.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, int(c), 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	from := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	to := time.Date(other.Year, other.Month, other.Day, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Before reports whether d precedes other.
func (d Date) Before(other Date) bool {
	return d.DaysUntil(other) > 0
}

// After reports whether d follows other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Clock is a wall-clock time expressed in minutes since midnight. Valid
// values range from 00:00 to 24:00 inclusive.
type Clock int

// EndOfDay is the 24:00 clock.
const EndOfDay Clock = 24 * 60

// ParseClock parses an HH:MM string. 24:00 is accepted as the end of the day.
func ParseClock(value string) (Clock, error) {
	var hour, minute int
	if len(value) != 5 || value[2] != ':' {
		return 0, ErrInvalidClock
	}
	if _, err := fmt.Sscanf(value, "%02d:%02d", &hour, &minute); err != nil {
		return 0, ErrInvalidClock
	}
	if minute < 0 || minute > 59 || hour < 0 || hour > 24 {
		return 0, ErrInvalidClock
	}
	c := Clock(hour*60 + minute)
	if c > EndOfDay {
		return 0, ErrInvalidClock
	}
	return c, nil
}

// NewClock builds a clock from an hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int {
	return int(c)
}
