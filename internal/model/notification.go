package model

import "time"

// AssignmentNotification is an in-app notification row shown on the
// interpreter dashboard when a new assignment is offered
// (`assignment_notifications` table).
type AssignmentNotification struct {
	ID            uint64    // assignment_notifications.id
	AssignmentID  uint64    // assignment_notifications.assignment_id
	InterpreterID uint64    // assignment_notifications.interpreter_id
	IsRead        bool      // assignment_notifications.is_read
	CreatedAt     time.Time // assignment_notifications.created_at
}
