// Package time contains time related helpers
package time

import "time"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Deref returns the zero time if pt is nil, else *pt
func Deref(pt *time.Time) time.Time {
	if pt == nil {
		return time.Time{}
	}
	return *pt
}

// UTCDate truncates t to midnight UTC
func UTCDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PrevWeekday returns the most recent date on or before t that falls on wd (UTC)
func PrevWeekday(t time.Time, wd time.Weekday) time.Time {
	d := UTCDate(t)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
