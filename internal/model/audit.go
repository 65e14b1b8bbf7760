package model

import "time"

// Audit action codes recorded for the assignment workflow.  Email sends
// use the EMAIL_SENT_ prefix followed by the upper-cased email type.
const (
	AuditAssignmentAccepted = "ASSIGNMENT_ACCEPTED"
	AuditAssignmentDeclined = "ASSIGNMENT_DECLINED"
	AuditStatusChanged      = "STATUS_CHANGED"
	AuditEmailSentPrefix    = "EMAIL_SENT_"
)

// AuditLog is one append-only entry in the `audit_logs` table.  Rows
// are never updated or deleted.  Changes holds a JSON document
// describing what happened (old/new status, email type, and so on).
type AuditLog struct {
	ID        uint64    // audit_logs.id
	UserID    *uint64   // audit_logs.user_id (nullable for anonymous link clicks)
	Action    string    // audit_logs.action
	ModelName string    // audit_logs.model_name (e.g. "Assignment")
	ObjectID  string    // audit_logs.object_id
	Changes   string    // audit_logs.changes (JSON)
	IPAddress *string   // audit_logs.ip_address (nullable)
	CreatedAt time.Time // audit_logs.created_at
}
