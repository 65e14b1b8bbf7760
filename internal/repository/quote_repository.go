package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dbdint/agency-api/internal/model"
)

// Sentinel errors for the quoting tables.
var (
	ErrQuoteNotFound        = errors.New("quote not found")
	ErrQuoteRequestNotFound = errors.New("quote request not found")
)

// QuoteRepo persists quote requests, issued quotes and the public
// (unauthenticated) enquiry inbox.
type QuoteRepo struct {
	db *sql.DB
}

func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

// DB exposes the handle for the quote-accept flow, which converts a
// quote into an assignment in one transaction.
func (r *QuoteRepo) DB() *sql.DB { return r.db }

// CreateRequest inserts a client quote request in PENDING status.
func (r *QuoteRepo) CreateRequest(ctx context.Context, q *model.QuoteRequest) error {
	const stmt = `INSERT INTO quote_requests
		(client_id, service_type_id, requested_date, duration_minutes, location, city, state, zip_code,
		 source_language_id, target_language_id, special_requirements, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, stmt,
		q.ClientID, q.ServiceTypeID, q.RequestedDate.UTC(), q.DurationMinutes,
		q.Location, q.City, q.State, q.ZipCode,
		q.SourceLanguageID, q.TargetLanguageID, q.SpecialRequirements, q.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

const quoteRequestCols = `id, client_id, service_type_id, requested_date, duration_minutes,
	location, city, state, zip_code, source_language_id, target_language_id,
	special_requirements, status, created_at, updated_at`

// GetRequest fetches one quote request.
func (r *QuoteRepo) GetRequest(ctx context.Context, id uint64) (model.QuoteRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+quoteRequestCols+` FROM quote_requests WHERE id = ?`, id)
	return scanQuoteRequest(row)
}

// ListRequestsByClient returns a client's quote requests, newest first.
func (r *QuoteRepo) ListRequestsByClient(ctx context.Context, clientID uint64) ([]model.QuoteRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+quoteRequestCols+` FROM quote_requests WHERE client_id = ? ORDER BY created_at DESC`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuoteRequests(rows)
}

// ListRequestsByStatus returns requests in a given status for the staff
// quoting queue, oldest first so the queue drains in order.
func (r *QuoteRepo) ListRequestsByStatus(ctx context.Context, status string, limit, offset int) ([]model.QuoteRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+quoteRequestCols+` FROM quote_requests WHERE status = ? ORDER BY created_at LIMIT ? OFFSET ?`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuoteRequests(rows)
}

// UpdateRequestStatus moves a quote request to a new status.
func (r *QuoteRepo) UpdateRequestStatus(ctx context.Context, id uint64, status string) error {
	return r.updateRequestStatus(ctx, r.db, id, status)
}

// UpdateRequestStatusTx is UpdateRequestStatus inside a caller-owned
// transaction.
func (r *QuoteRepo) UpdateRequestStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	return r.updateRequestStatus(ctx, tx, id, status)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *QuoteRepo) updateRequestStatus(ctx context.Context, db execer, id uint64, status string) error {
	res, err := db.ExecContext(ctx, `UPDATE quote_requests SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := db.QueryRowContext(ctx, `SELECT 1 FROM quote_requests WHERE id=?`, id).Scan(&exists); err != nil {
			return ErrQuoteRequestNotFound
		}
	}
	return nil
}

// CreateQuote inserts the staff-issued quote for a request.  A second
// quote for the same request violates the unique index and surfaces as
// ErrConflict.
func (r *QuoteRepo) CreateQuote(ctx context.Context, q *model.Quote) error {
	const stmt = `INSERT INTO quotes
		(quote_request_id, reference_number, amount_cents, tax_cents, valid_until, terms, status, created_by)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, stmt,
		q.QuoteRequestID, q.ReferenceNumber, q.AmountCents, q.TaxCents,
		q.ValidUntil.UTC(), q.Terms, q.Status, q.CreatedBy)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

const quoteCols = `id, quote_request_id, reference_number, amount_cents, tax_cents,
	valid_until, terms, status, created_by, created_at, updated_at`

// GetQuote fetches one quote by id.
func (r *QuoteRepo) GetQuote(ctx context.Context, id uint64) (model.Quote, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+quoteCols+` FROM quotes WHERE id = ?`, id)
	return scanQuote(row)
}

// GetQuoteByRequest fetches the quote issued for a request.
func (r *QuoteRepo) GetQuoteByRequest(ctx context.Context, requestID uint64) (model.Quote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+quoteCols+` FROM quotes WHERE quote_request_id = ?`, requestID)
	return scanQuote(row)
}

// UpdateQuoteStatusTx moves a quote to a new status inside a
// caller-owned transaction.
func (r *QuoteRepo) UpdateQuoteStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE quotes SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quotes WHERE id=?`, id).Scan(&exists); err != nil {
			return ErrQuoteNotFound
		}
	}
	return nil
}

// ExpireStale marks SENT quotes past their validity date EXPIRED and
// returns how many rows changed.  Run periodically by the sweeper.
func (r *QuoteRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE quotes SET status=? WHERE status=? AND valid_until < ?`,
		model.QuoteExpired, model.QuoteSent, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreatePublicRequest stores an unauthenticated enquiry from the public
// site.
func (r *QuoteRepo) CreatePublicRequest(ctx context.Context, p *model.PublicQuoteRequest) error {
	const stmt = `INSERT INTO public_quote_requests
		(full_name, email, phone, company_name, source_language_id, target_language_id,
		 service_type_id, requested_date, duration_minutes, location, city, state, zip_code,
		 special_requirements)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, stmt,
		p.FullName, p.Email, p.Phone, p.CompanyName, p.SourceLanguageID, p.TargetLanguageID,
		p.ServiceTypeID, p.RequestedDate.UTC(), p.DurationMinutes,
		p.Location, p.City, p.State, p.ZipCode, p.SpecialRequirements)
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

// MarkPublicRequestProcessed records which staff member handled an
// enquiry and when.
func (r *QuoteRepo) MarkPublicRequestProcessed(ctx context.Context, id, staffUserID uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE public_quote_requests SET processed=1, processed_by=?, processed_at=? WHERE id=?`,
		staffUserID, at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM public_quote_requests WHERE id=?`, id).Scan(&exists); err != nil {
			return ErrQuoteRequestNotFound
		}
	}
	return nil
}

// ListPublicRequests returns enquiries for the staff inbox, unprocessed
// first, oldest first within each group.
func (r *QuoteRepo) ListPublicRequests(ctx context.Context, unprocessedOnly bool, limit, offset int) ([]model.PublicQuoteRequest, error) {
	q := `SELECT id, full_name, email, phone, company_name, source_language_id, target_language_id,
		service_type_id, requested_date, duration_minutes, location, city, state, zip_code,
		special_requirements, created_at, processed, processed_by, processed_at
	FROM public_quote_requests`
	if unprocessedOnly {
		q += ` WHERE processed = 0`
	}
	q += ` ORDER BY processed, created_at LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PublicQuoteRequest
	for rows.Next() {
		var (
			p           model.PublicQuoteRequest
			special     sql.NullString
			processedBy sql.NullInt64
			processedAt sql.NullTime
		)
		err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CompanyName,
			&p.SourceLanguageID, &p.TargetLanguageID, &p.ServiceTypeID,
			&p.RequestedDate, &p.DurationMinutes, &p.Location, &p.City, &p.State, &p.ZipCode,
			&special, &p.CreatedAt, &p.Processed, &processedBy, &processedAt)
		if err != nil {
			return nil, err
		}
		p.SpecialRequirements = nullString(special)
		if processedBy.Valid {
			v := uint64(processedBy.Int64)
			p.ProcessedBy = &v
		}
		if processedAt.Valid {
			t := processedAt.Time
			p.ProcessedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPublicRequest fetches one enquiry.
func (r *QuoteRepo) GetPublicRequest(ctx context.Context, id uint64) (model.PublicQuoteRequest, error) {
	var (
		p           model.PublicQuoteRequest
		special     sql.NullString
		processedBy sql.NullInt64
		processedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, company_name, source_language_id, target_language_id,
			service_type_id, requested_date, duration_minutes, location, city, state, zip_code,
			special_requirements, created_at, processed, processed_by, processed_at
		 FROM public_quote_requests WHERE id = ?`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CompanyName,
			&p.SourceLanguageID, &p.TargetLanguageID, &p.ServiceTypeID,
			&p.RequestedDate, &p.DurationMinutes, &p.Location, &p.City, &p.State, &p.ZipCode,
			&special, &p.CreatedAt, &p.Processed, &processedBy, &processedAt)
	if err == sql.ErrNoRows {
		return p, ErrQuoteRequestNotFound
	}
	if err != nil {
		return p, err
	}
	p.SpecialRequirements = nullString(special)
	if processedBy.Valid {
		v := uint64(processedBy.Int64)
		p.ProcessedBy = &v
	}
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	return p, nil
}

func scanQuoteRequest(row rowScanner) (model.QuoteRequest, error) {
	var q model.QuoteRequest
	var special sql.NullString
	err := row.Scan(&q.ID, &q.ClientID, &q.ServiceTypeID, &q.RequestedDate, &q.DurationMinutes,
		&q.Location, &q.City, &q.State, &q.ZipCode, &q.SourceLanguageID, &q.TargetLanguageID,
		&special, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return q, ErrQuoteRequestNotFound
	}
	if err != nil {
		return q, err
	}
	q.SpecialRequirements = nullString(special)
	return q, nil
}

func collectQuoteRequests(rows *sql.Rows) ([]model.QuoteRequest, error) {
	var out []model.QuoteRequest
	for rows.Next() {
		q, err := scanQuoteRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuote(row rowScanner) (model.Quote, error) {
	var q model.Quote
	err := row.Scan(&q.ID, &q.QuoteRequestID, &q.ReferenceNumber, &q.AmountCents, &q.TaxCents,
		&q.ValidUntil, &q.Terms, &q.Status, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return q, ErrQuoteNotFound
	}
	return q, err
}
