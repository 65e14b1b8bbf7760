package utils

// Display-time formatting for the agency's home timezone.  These are
// pure functions over an explicit *time.Location: the EST/EDT suffix is
// derived from the timestamp being formatted, never from the current
// wall clock, so a winter meeting formatted in summer still reads EST.

import "time"

// DefaultZone is the agency's display timezone name; config resolves it
// once at startup and passes the *time.Location around explicitly.
const DefaultZone = "America/New_York"

// FormatDateTime renders t in loc as "MM/DD/YYYY HH:MM AM/PM TZ" where
// TZ is the zone abbreviation in effect at t (e.g. EST or EDT).
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(loc)
	return local.Format("01/02/2006 03:04 PM MST")
}

// FormatDate renders t in loc as "MM/DD/YYYY".
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("01/02/2006")
}

// FormatTime renders t in loc as "HH:MM AM/PM TZ".
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("03:04 PM MST")
}
