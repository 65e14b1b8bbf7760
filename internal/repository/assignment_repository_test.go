package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dbdint/agency-api/internal/model"
)

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "quote_id", "interpreter_id", "client_name", "client_email", "client_phone",
		"service_type_id", "source_language_id", "target_language_id", "start_time", "end_time",
		"location", "city", "state", "zip_code", "status", "is_paid", "rate_cents", "minimum_hours",
		"total_payment_cents", "notes", "special_requirements", "created_at", "updated_at", "completed_at",
	})
}

func TestAssignmentGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM assignments WHERE id").
		WithArgs(uint64(7)).
		WillReturnRows(assignmentRows().AddRow(
			7, nil, 3, "Acme Corp", "ops@acme.test", nil,
			1, 1, 2, start, end,
			"123 Main St", "Boston", "MA", "02101", model.StatusConfirmed, false, 5000, 2,
			10000, nil, nil, now, now, nil,
		))

	repo := NewAssignmentRepo(db)
	a, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if a.Status != model.StatusConfirmed {
		t.Errorf("status = %q", a.Status)
	}
	if a.InterpreterID == nil || *a.InterpreterID != 3 {
		t.Errorf("interpreter id = %v", a.InterpreterID)
	}
	if a.QuoteID != nil {
		t.Errorf("quote id should be nil, got %v", *a.QuoteID)
	}
	if a.TotalPaymentCents == nil || *a.TotalPaymentCents != 10000 {
		t.Errorf("total = %v", a.TotalPaymentCents)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignmentGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM assignments WHERE id").
		WithArgs(uint64(99)).
		WillReturnRows(assignmentRows())

	repo := NewAssignmentRepo(db)
	if _, err := repo.GetByID(context.Background(), 99); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("err = %v, want ErrAssignmentNotFound", err)
	}
}

func TestAssignmentUpdateStatusTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	interp := uint64(3)
	total := int64(12000)
	completed := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC)
	a := &model.Assignment{
		ID:                5,
		Status:            model.StatusCompleted,
		InterpreterID:     &interp,
		TotalPaymentCents: &total,
		CompletedAt:       &completed,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status=\\?, interpreter_id=\\?, total_payment_cents=\\?, completed_at=\\? WHERE id=\\?").
		WithArgs(model.StatusCompleted, &interp, &total, &completed, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewAssignmentRepo(db)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.UpdateStatusTx(context.Background(), tx, a); err != nil {
		t.Fatalf("UpdateStatusTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAssignmentListByInterpreterFiltersStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM assignments WHERE interpreter_id = \\? AND status = \\?").
		WithArgs(uint64(3), model.StatusPending).
		WillReturnRows(assignmentRows().AddRow(
			1, nil, 3, nil, nil, nil,
			1, 1, 2, start, start.Add(time.Hour),
			"Court House", "Boston", "MA", "02101", model.StatusPending, nil, 5000, 2,
			nil, nil, nil, now, now, nil,
		))

	repo := NewAssignmentRepo(db)
	got, err := repo.ListByInterpreter(context.Background(), 3, model.StatusPending)
	if err != nil {
		t.Fatalf("ListByInterpreter: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ClientDisplay() != "Unspecified Client" {
		t.Errorf("client display = %q", got[0].ClientDisplay())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
