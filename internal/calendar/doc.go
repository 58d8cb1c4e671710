// Package calendar projects room bookings onto a day-by-day grid so callers
// can render which days of a window are taken and by which reservations.
package calendar
