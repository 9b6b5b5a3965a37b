// Package timebounds computes calendar period boundaries in UTC.
//
// All functions return half-open ranges [start, end): the start instant is
// inside the period, the end instant is the start of the next one. They are
// pure and total over any valid time.Time.
package timebounds

import "time"

// DayBounds returns midnight UTC of t's day through the next midnight.
func DayBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns the ISO 8601 week containing t: Monday 00:00:00 UTC
// through the following Monday 00:00:00 UTC. The week start is always
// Monday regardless of locale.
func WeekBounds(t time.Time) (start, end time.Time) {
	day, _ := DayBounds(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday counts as day 7 in ISO 8601
	}
	start = day.AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns the first of t's month 00:00:00 UTC through the first
// of the next month. AddDate handles 28/29/30/31-day months and the
// December rollover into the next year.
func MonthBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
