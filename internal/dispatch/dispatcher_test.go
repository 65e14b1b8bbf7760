package dispatch

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dbdint/agency-api/internal/mailer"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/token"
)

// fakeMailer records sends instead of dialing SMTP.
type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	emailType string
	to        []string
	accept    string
	decline   string
}

func (f *fakeMailer) SendAssignmentEmail(emailType string, a model.AssignmentDetail, to []string, acceptURL, declineURL string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{emailType: emailType, to: to, accept: acceptURL, decline: declineURL})
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, sqlmock.Sqlmock, *fakeMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mail := &fakeMailer{}
	d := New(db,
		repository.NewAssignmentRepo(db),
		repository.NewPaymentRepo(db),
		repository.NewUserRepo(db),
		repository.NewAuditRepo(db),
		repository.NewNotificationRepo(db),
		mail,
		token.NewSigner("test-secret"),
		"https://ops.dbdint.test")
	return d, mock, mail
}

func detailRows(interpEmail string) *sqlmock.Rows {
	now := time.Now().UTC()
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "quote_id", "interpreter_id", "client_name", "client_email", "client_phone",
		"service_type_id", "source_language_id", "target_language_id", "start_time", "end_time",
		"location", "city", "state", "zip_code", "status", "is_paid", "rate_cents", "minimum_hours",
		"total_payment_cents", "notes", "special_requirements", "created_at", "updated_at", "completed_at",
		"service_type", "source_language", "target_language", "interpreter_name", "interpreter_email",
	})
	var interp any
	if interpEmail != "" {
		interp = 5
	}
	rows.AddRow(
		9, nil, interp, "Acme Corp", nil, nil,
		1, 1, 2, start, start.Add(2*time.Hour),
		"Courthouse", "Boston", "MA", "02101", model.StatusConfirmed, nil, 5000, 2,
		10000, nil, nil, now, now, nil,
		"Court Interpretation", "English", "Spanish", "Jordan Diaz", interpEmail)
	return rows
}

func paymentRows(id, txnID uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "transaction_id", "interpreter_id", "assignment_id", "amount_cents",
		"payment_method", "status", "scheduled_date", "processed_date", "reference_number",
		"created_at", "updated_at",
	}).AddRow(id, txnID, 5, 9, 10000, "ACH", status, now.Add(14*24*time.Hour), nil, "INT-9-AB12CD", now, now)
}

func TestApplyConfirmedSchedulesPayment(t *testing.T) {
	d, mock, mail := newTestDispatcher(t)

	interp := uint64(5)
	total := int64(10000)
	a := &model.Assignment{ID: 9, Status: model.StatusConfirmed, InterpreterID: &interp, TotalPaymentCents: &total}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO financial_transactions").
		WithArgs(sqlmock.AnyArg(), model.TransactionExpense, total, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO interpreter_payments").
		WithArgs(uint64(11), interp, sqlmock.AnyArg(), total, "ACH",
			model.PaymentPending, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(detailRows("jordan@example.test"))
	mock.ExpectQuery("SELECT email FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ops@dbdint.test"))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(2, 1))

	warnings, err := d.Apply(context.Background(), a, model.StatusPending, nil, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(mail.sent) != 1 || mail.sent[0].emailType != mailer.EmailAssignmentConfirmed {
		t.Fatalf("sent = %+v", mail.sent)
	}
	if len(mail.sent[0].to) != 2 {
		t.Errorf("recipients = %v, want interpreter plus admin", mail.sent[0].to)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyCompletedNoPaymentNoInterpreterAborts(t *testing.T) {
	d, mock, mail := newTestDispatcher(t)

	completed := time.Now().UTC()
	a := &model.Assignment{ID: 9, Status: model.StatusCompleted, CompletedAt: &completed}

	emptyPayments := sqlmock.NewRows([]string{
		"id", "transaction_id", "interpreter_id", "assignment_id", "amount_cents",
		"payment_method", "status", "scheduled_date", "processed_date", "reference_number",
		"created_at", "updated_at",
	})
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM interpreter_payments").
		WillReturnRows(emptyPayments)
	mock.ExpectRollback()

	_, err := d.Apply(context.Background(), a, model.StatusInProgress, nil, nil)
	if !errors.Is(err, ErrNoPayable) {
		t.Fatalf("err = %v, want ErrNoPayable", err)
	}
	if len(mail.sent) != 0 {
		t.Errorf("no email should be sent on abort, got %+v", mail.sent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyCompletedMovesPaymentToProcessing(t *testing.T) {
	d, mock, mail := newTestDispatcher(t)

	interp := uint64(5)
	total := int64(10000)
	completed := time.Now().UTC()
	a := &model.Assignment{
		ID: 9, Status: model.StatusCompleted,
		InterpreterID: &interp, TotalPaymentCents: &total, CompletedAt: &completed,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM interpreter_payments").
		WillReturnRows(paymentRows(21, 11, model.PaymentPending))
	mock.ExpectExec("UPDATE interpreter_payments SET status").
		WithArgs(model.PaymentProcessing, sqlmock.AnyArg(), uint64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO expenses").
		WithArgs(uint64(11), model.ExpenseSalary, int64(10000), sqlmock.AnyArg(),
			model.ExpenseStatusPending, sqlmock.AnyArg(), nil, nil).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(detailRows("jordan@example.test"))
	mock.ExpectQuery("SELECT email FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ops@dbdint.test"))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(2, 1))

	warnings, err := d.Apply(context.Background(), a, model.StatusInProgress, nil, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(mail.sent) != 1 || mail.sent[0].emailType != mailer.EmailAssignmentCompleted {
		t.Fatalf("sent = %+v", mail.sent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyCancelledRejectsExpenseKeepsCompletedPayment(t *testing.T) {
	d, mock, mail := newTestDispatcher(t)

	a := &model.Assignment{ID: 9, Status: model.StatusCancelled} // interpreter already detached

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM interpreter_payments").
		WillReturnRows(paymentRows(21, 11, model.PaymentCompleted))
	// Payment is COMPLETED so it stays; only the expense is rejected.
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM expenses WHERE transaction_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "transaction_id", "expense_type", "amount_cents", "description",
			"status", "date_incurred", "date_paid", "approved_by",
		}).AddRow(31, 11, model.ExpenseSalary, 10000, "desc", model.ExpenseStatusPending, now, nil, nil))
	mock.ExpectExec("UPDATE expenses SET status").
		WithArgs(model.ExpenseStatusRejected, uint64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(detailRows(""))
	mock.ExpectQuery("SELECT email FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ops@dbdint.test"))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(2, 1))

	warnings, err := d.Apply(context.Background(), a, model.StatusConfirmed, nil, nil, "former@example.test")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(mail.sent) != 1 || mail.sent[0].emailType != mailer.EmailAssignmentCancelled {
		t.Fatalf("sent = %+v", mail.sent)
	}
	// The detached interpreter still gets the cancellation via extraTo.
	found := false
	for _, addr := range mail.sent[0].to {
		if addr == "former@example.test" {
			found = true
		}
	}
	if !found {
		t.Errorf("former interpreter missing from recipients: %v", mail.sent[0].to)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOfferedSendsLinksAndNotification(t *testing.T) {
	d, mock, mail := newTestDispatcher(t)

	interp := uint64(5)
	detail := model.AssignmentDetail{
		Assignment:       model.Assignment{ID: 9, Status: model.StatusPending, InterpreterID: &interp},
		InterpreterEmail: "jordan@example.test",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignment_notifications")).
		WithArgs(uint64(9), interp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	warnings := d.Offered(context.Background(), detail, nil, nil)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(mail.sent) != 1 || mail.sent[0].emailType != mailer.EmailNewAssignment {
		t.Fatalf("sent = %+v", mail.sent)
	}

	// Both links must verify for their own action and carry id 9.
	sig := token.NewSigner("test-secret")
	acceptTok := mail.sent[0].accept[len("https://ops.dbdint.test/links/assignments/accept/"):]
	if id, err := sig.Verify(acceptTok, token.ActionAccept); err != nil || id != 9 {
		t.Errorf("accept token: id=%d err=%v", id, err)
	}
	declineTok := mail.sent[0].decline[len("https://ops.dbdint.test/links/assignments/decline/"):]
	if id, err := sig.Verify(declineTok, token.ActionDecline); err != nil || id != 9 {
		t.Errorf("decline token: id=%d err=%v", id, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
