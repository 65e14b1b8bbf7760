// Package lifecycle implements the assignment status machine: pure
// guard predicates paired with mutators.  Mutators outside their guard
// are no-ops that report failure; callers must check the result before
// assuming the transition happened.  Persistence is the caller's job.
package lifecycle

import (
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

// CanConfirm reports whether the assignment may move to CONFIRMED.
func CanConfirm(a *model.Assignment) bool {
	return a.Status == model.StatusPending
}

// CanStart reports whether the assignment may move to IN_PROGRESS.
func CanStart(a *model.Assignment) bool {
	return a.Status == model.StatusConfirmed
}

// CanComplete reports whether the assignment may move to COMPLETED.
func CanComplete(a *model.Assignment) bool {
	return a.Status == model.StatusConfirmed || a.Status == model.StatusInProgress
}

// CanCancel reports whether the assignment may move to CANCELLED.
func CanCancel(a *model.Assignment) bool {
	return a.Status == model.StatusPending || a.Status == model.StatusConfirmed
}

// Confirm moves PENDING → CONFIRMED.  Returns false without touching
// the assignment when the guard fails.
func Confirm(a *model.Assignment) bool {
	if !CanConfirm(a) {
		return false
	}
	a.Status = model.StatusConfirmed
	return true
}

// Start moves CONFIRMED → IN_PROGRESS.
func Start(a *model.Assignment) bool {
	if !CanStart(a) {
		return false
	}
	a.Status = model.StatusInProgress
	return true
}

// Complete moves CONFIRMED or IN_PROGRESS → COMPLETED and stamps the
// completion time.
func Complete(a *model.Assignment, now time.Time) bool {
	if !CanComplete(a) {
		return false
	}
	a.Status = model.StatusCompleted
	t := now.UTC()
	a.CompletedAt = &t
	return true
}

// Cancel moves PENDING or CONFIRMED → CANCELLED and detaches the
// interpreter, returning the former interpreter id so the caller can
// still notify them.  The rest of the record is preserved for audit.
// ok is false (and the assignment untouched) when the guard fails.
func Cancel(a *model.Assignment) (former *uint64, ok bool) {
	if !CanCancel(a) {
		return nil, false
	}
	former = a.InterpreterID
	a.Status = model.StatusCancelled
	a.InterpreterID = nil
	return former, true
}

// CanMarkNoShow reports whether the assignment may move to NO_SHOW.
func CanMarkNoShow(a *model.Assignment) bool {
	return a.Status == model.StatusConfirmed || a.Status == model.StatusInProgress
}

// MarkNoShow moves CONFIRMED or IN_PROGRESS → NO_SHOW.  Unlike Cancel
// the interpreter stays attached: staff follow up with them about the
// missed mission.
func MarkNoShow(a *model.Assignment) bool {
	if !CanMarkNoShow(a) {
		return false
	}
	a.Status = model.StatusNoShow
	return true
}

// PayableCents computes the amount owed to the interpreter in cents:
// hourly rate times the greater of the actual duration and the minimum
// billable hours.  Partial hours are billed proportionally.  Returns 0
// when the window is not yet set or inverted.
func PayableCents(rateCents int64, minimumHours int, start, end time.Time) int64 {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0
	}
	minutes := int64(end.Sub(start) / time.Minute)
	if floor := int64(minimumHours) * 60; minutes < floor {
		minutes = floor
	}
	return rateCents * minutes / 60
}
