package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dbdint/agency-api/internal/model"
)

// AuditRepo appends rows to the audit_logs table.  The table is
// append-only; there are no update or delete operations.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Record writes one audit entry.  changes is marshalled to JSON; a nil
// map records an empty object.  Callers treat a returned error as a
// warning, never as a reason to roll back the action being audited.
func (r *AuditRepo) Record(ctx context.Context, userID *uint64, action, modelName, objectID string, changes map[string]any, ip *string) error {
	if changes == nil {
		changes = map[string]any{}
	}
	doc, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (user_id, action, model_name, object_id, changes, ip_address)
		 VALUES (?,?,?,?,?,?)`,
		userID, action, modelName, objectID, string(doc), ip)
	return err
}

// ListByObject returns the audit trail for one record, oldest first.
func (r *AuditRepo) ListByObject(ctx context.Context, modelName, objectID string) ([]model.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, model_name, object_id, changes, ip_address, created_at
		 FROM audit_logs WHERE model_name = ? AND object_id = ? ORDER BY created_at, id`,
		modelName, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AuditLog
	for rows.Next() {
		var (
			l      model.AuditLog
			userID sql.NullInt64
			ip     sql.NullString
		)
		if err := rows.Scan(&l.ID, &userID, &l.Action, &l.ModelName, &l.ObjectID, &l.Changes, &ip, &l.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			v := uint64(userID.Int64)
			l.UserID = &v
		}
		l.IPAddress = nullString(ip)
		out = append(out, l)
	}
	return out, rows.Err()
}
