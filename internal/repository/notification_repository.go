package repository

import (
	"context"
	"database/sql"

	"github.com/dbdint/agency-api/internal/model"
)

// NotificationRepo persists in-app assignment notifications for
// interpreters.  Unread counts are cheap enough to serve from the
// database; the dashboard endpoint additionally caches them in Redis.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts an unread notification for an offered assignment.
func (r *NotificationRepo) Create(ctx context.Context, assignmentID, interpreterID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assignment_notifications (assignment_id, interpreter_id, is_read) VALUES (?,?,0)`,
		assignmentID, interpreterID)
	return err
}

// UnreadCount returns how many unread notifications an interpreter has.
func (r *NotificationRepo) UnreadCount(ctx context.Context, interpreterID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignment_notifications WHERE interpreter_id = ? AND is_read = 0`,
		interpreterID).Scan(&n)
	return n, err
}

// ListByInterpreter returns an interpreter's notifications, newest
// first.
func (r *NotificationRepo) ListByInterpreter(ctx context.Context, interpreterID uint64, limit, offset int) ([]model.AssignmentNotification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, assignment_id, interpreter_id, is_read, created_at
		 FROM assignment_notifications WHERE interpreter_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		interpreterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AssignmentNotification
	for rows.Next() {
		var n model.AssignmentNotification
		if err := rows.Scan(&n.ID, &n.AssignmentID, &n.InterpreterID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification read.  The interpreter id is part of
// the predicate so users cannot mark each other's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, interpreterID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assignment_notifications SET is_read=1 WHERE id=? AND interpreter_id=?`,
		id, interpreterID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var owner uint64
		err := r.db.QueryRowContext(ctx,
			`SELECT interpreter_id FROM assignment_notifications WHERE id=?`, id).Scan(&owner)
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		if err != nil {
			return err
		}
		if owner != interpreterID {
			return ErrForbidden
		}
	}
	return nil
}

// MarkAllRead flags every unread notification for an interpreter.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, interpreterID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE assignment_notifications SET is_read=1 WHERE interpreter_id=? AND is_read=0`,
		interpreterID)
	return err
}
