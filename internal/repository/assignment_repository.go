package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

// ErrAssignmentNotFound is returned when an assignment id does not
// exist.  Handlers translate it into a 404 or the "not found" page.
var ErrAssignmentNotFound = errors.New("assignment not found")

// AssignmentRepo provides CRUD operations for assignments.  Rows are
// never deleted; cancellation is a status transition.  All timestamp
// columns are stored in UTC.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo returns an AssignmentRepo bound to the given database.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *AssignmentRepo) DB() *sql.DB { return r.db }

const assignmentCols = `id, quote_id, interpreter_id, client_name, client_email, client_phone,
	service_type_id, source_language_id, target_language_id, start_time, end_time,
	location, city, state, zip_code, status, is_paid, rate_cents, minimum_hours,
	total_payment_cents, notes, special_requirements, created_at, updated_at, completed_at`

// Create inserts a new assignment and populates the generated ID and
// timestamps on the provided record.
func (r *AssignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	const q = `INSERT INTO assignments
		(quote_id, interpreter_id, client_name, client_email, client_phone,
		 service_type_id, source_language_id, target_language_id, start_time, end_time,
		 location, city, state, zip_code, status, is_paid, rate_cents, minimum_hours,
		 total_payment_cents, notes, special_requirements)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q,
		a.QuoteID, a.InterpreterID, a.ClientName, a.ClientEmail, a.ClientPhone,
		a.ServiceTypeID, a.SourceLanguageID, a.TargetLanguageID, a.StartTime.UTC(), a.EndTime.UTC(),
		a.Location, a.City, a.State, a.ZipCode, a.Status, a.IsPaid, a.RateCents, a.MinimumHours,
		a.TotalPaymentCents, a.Notes, a.SpecialRequirements)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	got, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	a.CreatedAt, a.UpdatedAt = got.CreatedAt, got.UpdatedAt
	return nil
}

// GetByID fetches one assignment.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (model.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	return scanAssignment(row)
}

// GetDetail fetches one assignment joined with the display strings
// needed by pages and emails (catalog names, interpreter contact).
func (r *AssignmentRepo) GetDetail(ctx context.Context, id uint64) (model.AssignmentDetail, error) {
	const q = `SELECT a.id, a.quote_id, a.interpreter_id, a.client_name, a.client_email, a.client_phone,
		a.service_type_id, a.source_language_id, a.target_language_id, a.start_time, a.end_time,
		a.location, a.city, a.state, a.zip_code, a.status, a.is_paid, a.rate_cents, a.minimum_hours,
		a.total_payment_cents, a.notes, a.special_requirements, a.created_at, a.updated_at, a.completed_at,
		st.name, sl.name, tl.name,
		COALESCE(CONCAT(u.first_name, ' ', u.last_name), ''), COALESCE(u.email, '')
	FROM assignments a
	JOIN service_types st ON st.id = a.service_type_id
	JOIN languages sl ON sl.id = a.source_language_id
	JOIN languages tl ON tl.id = a.target_language_id
	LEFT JOIN interpreters i ON i.id = a.interpreter_id
	LEFT JOIN users u ON u.id = i.user_id
	WHERE a.id = ?`
	var d model.AssignmentDetail
	row := r.db.QueryRowContext(ctx, q, id)
	a, extra, err := scanAssignmentRow(row, true)
	if err != nil {
		return d, err
	}
	d.Assignment = a
	d.ServiceTypeName = extra[0]
	d.SourceLanguage = extra[1]
	d.TargetLanguage = extra[2]
	d.InterpreterName = extra[3]
	d.InterpreterEmail = extra[4]
	return d, nil
}

// Update persists staff-editable fields.  Status is deliberately not
// written here; transitions go through UpdateStatusTx so the lifecycle
// guards cannot be bypassed by an edit.
func (r *AssignmentRepo) Update(ctx context.Context, a *model.Assignment) error {
	const q = `UPDATE assignments SET
		interpreter_id=?, client_name=?, client_email=?, client_phone=?,
		service_type_id=?, source_language_id=?, target_language_id=?,
		start_time=?, end_time=?, location=?, city=?, state=?, zip_code=?,
		rate_cents=?, minimum_hours=?, total_payment_cents=?, notes=?, special_requirements=?
	WHERE id=?`
	res, err := r.db.ExecContext(ctx, q,
		a.InterpreterID, a.ClientName, a.ClientEmail, a.ClientPhone,
		a.ServiceTypeID, a.SourceLanguageID, a.TargetLanguageID,
		a.StartTime.UTC(), a.EndTime.UTC(), a.Location, a.City, a.State, a.ZipCode,
		a.RateCents, a.MinimumHours, a.TotalPaymentCents, a.Notes, a.SpecialRequirements,
		a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The row may exist with identical values; distinguish from a
		// missing id before reporting not found.
		if _, err := r.GetByID(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatusTx persists the outcome of a lifecycle transition within
// an existing transaction: status, interpreter reference, payable
// amount and completion timestamp.
func (r *AssignmentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
	const q = `UPDATE assignments SET status=?, interpreter_id=?, total_payment_cents=?, completed_at=? WHERE id=?`
	res, err := tx.ExecContext(ctx, q, a.Status, a.InterpreterID, a.TotalPaymentCents, a.CompletedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM assignments WHERE id=?`, a.ID).Scan(&exists); err != nil {
			return ErrAssignmentNotFound
		}
	}
	return nil
}

// SetPaid updates the display-only paid flag.
func (r *AssignmentRepo) SetPaid(ctx context.Context, id uint64, paid bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE assignments SET is_paid=? WHERE id=?`, paid, id)
	return err
}

// List returns assignments filtered by optional status, newest first.
func (r *AssignmentRepo) List(ctx context.Context, status string, limit, offset int) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentCols + ` FROM assignments`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListByInterpreter returns the interpreter's assignments, optionally
// filtered by status, ordered by start time.
func (r *AssignmentRepo) ListByInterpreter(ctx context.Context, interpreterID uint64, status string) ([]model.Assignment, error) {
	q := `SELECT ` + assignmentCols + ` FROM assignments WHERE interpreter_id = ?`
	args := []any{interpreterID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// rowScanner lets the scan helpers work with both *sql.Row and *sql.Rows.
type rowScanner interface{ Scan(dest ...any) error }

func scanAssignment(row rowScanner) (model.Assignment, error) {
	a, _, err := scanAssignmentRow(row, false)
	return a, err
}

// scanAssignmentRow scans the shared column list plus, when withDetail
// is set, the five display columns appended by GetDetail.
func scanAssignmentRow(row rowScanner, withDetail bool) (model.Assignment, [5]string, error) {
	var (
		a         model.Assignment
		extra     [5]string
		quoteID   sql.NullInt64
		interpID  sql.NullInt64
		cName     sql.NullString
		cEmail    sql.NullString
		cPhone    sql.NullString
		isPaid    sql.NullBool
		total     sql.NullInt64
		notes     sql.NullString
		special   sql.NullString
		completed sql.NullTime
	)
	dest := []any{
		&a.ID, &quoteID, &interpID, &cName, &cEmail, &cPhone,
		&a.ServiceTypeID, &a.SourceLanguageID, &a.TargetLanguageID, &a.StartTime, &a.EndTime,
		&a.Location, &a.City, &a.State, &a.ZipCode, &a.Status, &isPaid, &a.RateCents, &a.MinimumHours,
		&total, &notes, &special, &a.CreatedAt, &a.UpdatedAt, &completed,
	}
	if withDetail {
		dest = append(dest, &extra[0], &extra[1], &extra[2], &extra[3], &extra[4])
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return a, extra, ErrAssignmentNotFound
		}
		return a, extra, err
	}
	if quoteID.Valid {
		v := uint64(quoteID.Int64)
		a.QuoteID = &v
	}
	if interpID.Valid {
		v := uint64(interpID.Int64)
		a.InterpreterID = &v
	}
	a.ClientName = nullString(cName)
	a.ClientEmail = nullString(cEmail)
	a.ClientPhone = nullString(cPhone)
	if isPaid.Valid {
		v := isPaid.Bool
		a.IsPaid = &v
	}
	if total.Valid {
		v := total.Int64
		a.TotalPaymentCents = &v
	}
	a.Notes = nullString(notes)
	a.SpecialRequirements = nullString(special)
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	return a, extra, nil
}

func collectAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// nullTime converts an optional time for insertion.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
