package utils

import (
	"testing"
	"time"
)

func TestFormatDateTimeDSTFollowsTimestamp(t *testing.T) {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// A January instant must format as EST and a July instant as EDT,
	// regardless of when the test runs.
	winter := time.Date(2025, 1, 15, 19, 30, 0, 0, time.UTC)
	if got := FormatDateTime(winter, loc); got != "01/15/2025 02:30 PM EST" {
		t.Errorf("winter format = %q", got)
	}
	summer := time.Date(2025, 7, 15, 18, 30, 0, 0, time.UTC)
	if got := FormatDateTime(summer, loc); got != "07/15/2025 02:30 PM EDT" {
		t.Errorf("summer format = %q", got)
	}
}

func TestFormatZeroTimes(t *testing.T) {
	loc := time.UTC
	if got := FormatDateTime(time.Time{}, loc); got != "" {
		t.Errorf("zero datetime = %q, want empty", got)
	}
	if got := FormatDate(time.Time{}, loc); got != "" {
		t.Errorf("zero date = %q, want empty", got)
	}
	if got := FormatTime(time.Time{}, loc); got != "" {
		t.Errorf("zero time = %q, want empty", got)
	}
}

func TestFormatDateAndTime(t *testing.T) {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	at := time.Date(2025, 11, 3, 14, 5, 0, 0, time.UTC)
	if got := FormatDate(at, loc); got != "11/03/2025" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatTime(at, loc); got != "09:05 AM EST" {
		t.Errorf("FormatTime = %q", got)
	}
}
