package lifecycle

import (
	"testing"
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

func pending(interpreter uint64) *model.Assignment {
	id := interpreter
	return &model.Assignment{
		ID:            7,
		InterpreterID: &id,
		Status:        model.StatusPending,
		RateCents:     50_00,
		MinimumHours:  2,
	}
}

func TestConfirmOnlyFromPending(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{model.StatusPending, true},
		{model.StatusConfirmed, false},
		{model.StatusInProgress, false},
		{model.StatusCompleted, false},
		{model.StatusCancelled, false},
		{model.StatusNoShow, false},
	}
	for _, tc := range cases {
		a := pending(3)
		a.Status = tc.status
		if got := Confirm(a); got != tc.want {
			t.Errorf("Confirm from %s = %v, want %v", tc.status, got, tc.want)
		}
		if tc.want && a.Status != model.StatusConfirmed {
			t.Errorf("Confirm from %s left status %s", tc.status, a.Status)
		}
		if !tc.want && a.Status != tc.status {
			t.Errorf("failed Confirm mutated status: %s -> %s", tc.status, a.Status)
		}
	}
}

func TestConfirmFailureTouchesNothing(t *testing.T) {
	a := pending(3)
	a.Status = model.StatusCompleted
	done := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	a.CompletedAt = &done

	if Confirm(a) {
		t.Fatal("Confirm succeeded on COMPLETED assignment")
	}
	if a.InterpreterID == nil || *a.InterpreterID != 3 {
		t.Error("interpreter changed by failed confirm")
	}
	if a.CompletedAt == nil || !a.CompletedAt.Equal(done) {
		t.Error("completion timestamp changed by failed confirm")
	}
}

func TestStart(t *testing.T) {
	a := pending(3)
	if Start(a) {
		t.Error("Start succeeded from PENDING")
	}
	a.Status = model.StatusConfirmed
	if !Start(a) || a.Status != model.StatusInProgress {
		t.Errorf("Start from CONFIRMED: status %s", a.Status)
	}
}

func TestCompleteFromConfirmedOrInProgress(t *testing.T) {
	now := time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC)
	for _, from := range []string{model.StatusConfirmed, model.StatusInProgress} {
		a := pending(3)
		a.Status = from
		if !Complete(a, now) {
			t.Fatalf("Complete from %s failed", from)
		}
		if a.Status != model.StatusCompleted {
			t.Errorf("status after complete: %s", a.Status)
		}
		if a.CompletedAt == nil || !a.CompletedAt.Equal(now) {
			t.Errorf("completed_at not stamped from %s", from)
		}
	}

	a := pending(3)
	if Complete(a, now) {
		t.Error("Complete succeeded from PENDING")
	}
	if a.CompletedAt != nil {
		t.Error("completed_at stamped on failed complete")
	}
}

func TestCancelDetachesInterpreter(t *testing.T) {
	for _, from := range []string{model.StatusPending, model.StatusConfirmed} {
		a := pending(42)
		a.Status = from
		former, ok := Cancel(a)
		if !ok {
			t.Fatalf("Cancel from %s failed", from)
		}
		if former == nil || *former != 42 {
			t.Errorf("Cancel from %s did not return former interpreter", from)
		}
		if a.InterpreterID != nil {
			t.Error("interpreter still attached after cancel")
		}
		if a.Status != model.StatusCancelled {
			t.Errorf("status after cancel: %s", a.Status)
		}
	}

	a := pending(42)
	a.Status = model.StatusInProgress
	if former, ok := Cancel(a); ok || former != nil {
		t.Error("Cancel succeeded from IN_PROGRESS")
	}
	if a.InterpreterID == nil {
		t.Error("failed cancel detached the interpreter")
	}
}

func TestMarkNoShowKeepsInterpreter(t *testing.T) {
	for _, from := range []string{model.StatusConfirmed, model.StatusInProgress} {
		a := pending(3)
		a.Status = from
		if !MarkNoShow(a) {
			t.Fatalf("MarkNoShow from %s failed", from)
		}
		if a.Status != model.StatusNoShow {
			t.Errorf("status after no-show: %s", a.Status)
		}
		if a.InterpreterID == nil {
			t.Error("no-show detached the interpreter")
		}
	}

	a := pending(3)
	if MarkNoShow(a) {
		t.Error("MarkNoShow succeeded from PENDING")
	}
}

func TestPayableCents(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2025, 4, 7, h, m, 0, 0, time.UTC)
	}
	cases := []struct {
		name      string
		rateCents int64
		minHours  int
		start     time.Time
		end       time.Time
		want      int64
	}{
		// one actual hour, two-hour minimum applies
		{"minimum floor", 50_00, 2, day(10, 0), day(11, 0), 100_00},
		// 3.5 actual hours above the one-hour minimum
		{"partial hours", 40_00, 1, day(9, 0), day(12, 30), 140_00},
		{"exact minimum", 60_00, 2, day(9, 0), day(11, 0), 120_00},
		{"zero window", 50_00, 2, time.Time{}, time.Time{}, 0},
		{"inverted window", 50_00, 2, day(12, 0), day(10, 0), 0},
	}
	for _, tc := range cases {
		if got := PayableCents(tc.rateCents, tc.minHours, tc.start, tc.end); got != tc.want {
			t.Errorf("%s: PayableCents = %d, want %d", tc.name, got, tc.want)
		}
	}
}
