package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dbdint/agency-api/internal/model"
)

func newQuoteRepo(t *testing.T) (*QuoteRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewQuoteRepo(db), mock
}

func TestCreateQuoteDuplicateRequestConflicts(t *testing.T) {
	r, mock := newQuoteRepo(t)

	mock.ExpectExec("INSERT INTO quotes").
		WillReturnError(errDup1062{})

	q := model.Quote{QuoteRequestID: 7, ReferenceNumber: "QT-2026-AB12CD", AmountCents: 25000, Status: model.QuoteSent, CreatedBy: 1, ValidUntil: time.Now().Add(24 * time.Hour)}
	if err := r.CreateQuote(context.Background(), &q); err != ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// errDup1062 mimics the MySQL duplicate-key error text.
type errDup1062 struct{}

func (errDup1062) Error() string { return "Error 1062 (23000): Duplicate entry '7' for key 'quotes.quote_request_id'" }

func TestExpireStaleReportsRowCount(t *testing.T) {
	r, mock := newQuoteRepo(t)

	now := time.Now()
	mock.ExpectExec("UPDATE quotes SET status").
		WithArgs(model.QuoteExpired, model.QuoteSent, now.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := r.ExpireStale(context.Background(), now)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 3 {
		t.Fatalf("expired %d, want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateRequestStatusMissingRow(t *testing.T) {
	r, mock := newQuoteRepo(t)

	mock.ExpectExec("UPDATE quote_requests SET status").
		WithArgs(model.QuoteRequestQuoted, uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM quote_requests").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	if err := r.UpdateRequestStatus(context.Background(), 99, model.QuoteRequestQuoted); err != ErrQuoteRequestNotFound {
		t.Fatalf("err = %v, want ErrQuoteRequestNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
