package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

// Sentinel errors for the financial tables.
var (
	ErrPaymentNotFound = errors.New("interpreter payment not found")
	ErrExpenseNotFound = errors.New("expense not found")
)

// PaymentRepo persists the financial records derived from assignment
// lifecycle events: ledger transactions, interpreter payments, expenses
// and client payments.  The Tx variants run inside a caller-owned
// transaction so bookkeeping commits atomically with the status change
// that caused it.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTransactionTx inserts a ledger transaction and fills in the
// generated row id.
func (r *PaymentRepo) CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *model.FinancialTransaction) error {
	const q = `INSERT INTO financial_transactions
		(transaction_uuid, type, amount_cents, description, created_by)
		VALUES (?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, t.TransactionID, t.Type, t.AmountCents, t.Description, t.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// CreateInterpreterPaymentTx inserts a scheduled payment row.
func (r *PaymentRepo) CreateInterpreterPaymentTx(ctx context.Context, tx *sql.Tx, p *model.InterpreterPayment) error {
	const q = `INSERT INTO interpreter_payments
		(transaction_id, interpreter_id, assignment_id, amount_cents, payment_method,
		 status, scheduled_date, processed_date, reference_number)
		VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		p.TransactionID, p.InterpreterID, p.AssignmentID, p.AmountCents, p.PaymentMethod,
		p.Status, p.ScheduledDate.UTC(), nullTime(p.ProcessedDate), p.ReferenceNumber)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

const interpreterPaymentCols = `id, transaction_id, interpreter_id, assignment_id, amount_cents,
	payment_method, status, scheduled_date, processed_date, reference_number, created_at, updated_at`

// LatestByAssignmentTx returns the most recent payment row for an
// assignment, locking it for update so concurrent transitions cannot
// both act on it.
func (r *PaymentRepo) LatestByAssignmentTx(ctx context.Context, tx *sql.Tx, assignmentID uint64) (model.InterpreterPayment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+interpreterPaymentCols+` FROM interpreter_payments
		 WHERE assignment_id = ? ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`,
		assignmentID)
	return scanInterpreterPayment(row)
}

// UpdatePaymentStatusTx moves a payment to a new status, stamping the
// processed date when one is supplied.
func (r *PaymentRepo) UpdatePaymentStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string, processed *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE interpreter_payments SET status=?, processed_date=COALESCE(?, processed_date) WHERE id=?`,
		status, nullTime(processed), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM interpreter_payments WHERE id=?`, id).Scan(&exists); err != nil {
			return ErrPaymentNotFound
		}
	}
	return nil
}

// CreateExpenseTx inserts an expense row tied to a ledger transaction.
func (r *PaymentRepo) CreateExpenseTx(ctx context.Context, tx *sql.Tx, e *model.Expense) error {
	const q = `INSERT INTO expenses
		(transaction_id, expense_type, amount_cents, description, status, date_incurred, date_paid, approved_by)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		e.TransactionID, e.ExpenseType, e.AmountCents, e.Description, e.Status,
		e.DateIncurred.UTC(), nullTime(e.DatePaid), e.ApprovedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ExpenseByTransactionTx finds the expense created against the same
// ledger transaction as a payment, locking it for update.
func (r *PaymentRepo) ExpenseByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uint64) (model.Expense, error) {
	var (
		e          model.Expense
		datePaid   sql.NullTime
		approvedBy sql.NullInt64
	)
	row := tx.QueryRowContext(ctx,
		`SELECT id, transaction_id, expense_type, amount_cents, description, status, date_incurred, date_paid, approved_by
		 FROM expenses WHERE transaction_id = ? LIMIT 1 FOR UPDATE`, transactionID)
	err := row.Scan(&e.ID, &e.TransactionID, &e.ExpenseType, &e.AmountCents, &e.Description,
		&e.Status, &e.DateIncurred, &datePaid, &approvedBy)
	if err == sql.ErrNoRows {
		return e, ErrExpenseNotFound
	}
	if err != nil {
		return e, err
	}
	if datePaid.Valid {
		t := datePaid.Time
		e.DatePaid = &t
	}
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		e.ApprovedBy = &v
	}
	return e, nil
}

// UpdateExpenseStatusTx moves an expense to a new status.
func (r *PaymentRepo) UpdateExpenseStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE expenses SET status=? WHERE id=?`, status, id)
	return err
}

// GetPayment fetches a single payment row outside a transaction.
func (r *PaymentRepo) GetPayment(ctx context.Context, id uint64) (model.InterpreterPayment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+interpreterPaymentCols+` FROM interpreter_payments WHERE id = ?`, id)
	return scanInterpreterPayment(row)
}

// ListPayments returns payments filtered by optional status and
// interpreter, newest scheduled first.
func (r *PaymentRepo) ListPayments(ctx context.Context, status string, interpreterID uint64, limit, offset int) ([]model.InterpreterPayment, error) {
	q := `SELECT ` + interpreterPaymentCols + ` FROM interpreter_payments WHERE 1=1`
	args := []any{}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	if interpreterID != 0 {
		q += ` AND interpreter_id = ?`
		args = append(args, interpreterID)
	}
	q += ` ORDER BY scheduled_date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.InterpreterPayment
	for rows.Next() {
		p, err := scanInterpreterPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExpenses returns expenses filtered by optional status, newest
// first.
func (r *PaymentRepo) ListExpenses(ctx context.Context, status string, limit, offset int) ([]model.Expense, error) {
	q := `SELECT id, transaction_id, expense_type, amount_cents, description, status, date_incurred, date_paid, approved_by
		FROM expenses`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY date_incurred DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Expense
	for rows.Next() {
		var (
			e          model.Expense
			datePaid   sql.NullTime
			approvedBy sql.NullInt64
		)
		err := rows.Scan(&e.ID, &e.TransactionID, &e.ExpenseType, &e.AmountCents, &e.Description,
			&e.Status, &e.DateIncurred, &datePaid, &approvedBy)
		if err != nil {
			return nil, err
		}
		if datePaid.Valid {
			t := datePaid.Time
			e.DatePaid = &t
		}
		if approvedBy.Valid {
			v := uint64(approvedBy.Int64)
			e.ApprovedBy = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateClientPaymentTx records money received from a client against a
// quote or assignment, inside the transaction that wrote its backing
// ledger row.
func (r *PaymentRepo) CreateClientPaymentTx(ctx context.Context, tx *sql.Tx, p *model.ClientPayment) error {
	const q = `INSERT INTO client_payments
		(transaction_id, client_id, assignment_id, quote_id, amount_cents, tax_cents, total_cents,
		 payment_method, status, invoice_number, due_date, completed_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		p.TransactionID, p.ClientID, p.AssignmentID, p.QuoteID, p.AmountCents, p.TaxCents, p.TotalCents,
		p.PaymentMethod, p.Status, p.InvoiceNumber, nullTime(p.DueDate), nullTime(p.CompletedDate))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func scanInterpreterPayment(row rowScanner) (model.InterpreterPayment, error) {
	var (
		p            model.InterpreterPayment
		assignmentID sql.NullInt64
		processed    sql.NullTime
		ref          sql.NullString
	)
	err := row.Scan(&p.ID, &p.TransactionID, &p.InterpreterID, &assignmentID, &p.AmountCents,
		&p.PaymentMethod, &p.Status, &p.ScheduledDate, &processed, &ref, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrPaymentNotFound
	}
	if err != nil {
		return p, err
	}
	if assignmentID.Valid {
		v := uint64(assignmentID.Int64)
		p.AssignmentID = &v
	}
	if processed.Valid {
		t := processed.Time
		p.ProcessedDate = &t
	}
	if ref.Valid {
		p.ReferenceNumber = ref.String
	}
	return p, nil
}
