package client

import (
	"time"

	openapiTypes "github.com/oapi-codegen/runtime/types"
)

// fromDate converts a nullable wire date to time.Time.
// Returns zero time for nil.
func fromDate(d *openapiTypes.Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// toDate converts t to a wire date, nil for the zero time.
func toDate(t time.Time) *openapiTypes.Date {
	if t.IsZero() {
		return nil
	}
	return &openapiTypes.Date{Time: t}
}

// dateOnly strips the clock of t in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// onOrAfter reports whether the calendar day of t is on or after day.
func onOrAfter(t, day time.Time) bool {
	return !dateOnly(t).Before(dateOnly(day))
}

// formatDay renders t as YYYY-MM-DD.
func formatDay(t time.Time) string {
	return t.Format(openapiTypes.DateFormat)
}
