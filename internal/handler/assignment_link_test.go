package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/dispatch"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/token"
)

// quietMailer satisfies the dispatcher without dialing SMTP.
type quietMailer struct{ sent int }

func (q *quietMailer) SendAssignmentEmail(emailType string, a model.AssignmentDetail, to []string, acceptURL, declineURL string) error {
	q.sent++
	return nil
}

func newLinkTestEnv(t *testing.T) (*LinkHandler, sqlmock.Sqlmock, *quietMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	assignments := repository.NewAssignmentRepo(db)
	audit := repository.NewAuditRepo(db)
	signer := token.NewSigner("test-secret")
	mail := &quietMailer{}
	d := dispatch.New(db, assignments,
		repository.NewPaymentRepo(db),
		repository.NewUserRepo(db),
		audit,
		repository.NewNotificationRepo(db),
		mail, signer, "https://ops.dbdint.test")

	h := NewLinkHandler(assignments, audit, signer, d, time.UTC)
	return h, mock, mail
}

func linkDetailRows(status string) *sqlmock.Rows {
	now := time.Now().UTC()
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "quote_id", "interpreter_id", "client_name", "client_email", "client_phone",
		"service_type_id", "source_language_id", "target_language_id", "start_time", "end_time",
		"location", "city", "state", "zip_code", "status", "is_paid", "rate_cents", "minimum_hours",
		"total_payment_cents", "notes", "special_requirements", "created_at", "updated_at", "completed_at",
		"service_type", "source_language", "target_language", "interpreter_name", "interpreter_email",
	}).AddRow(
		9, nil, 5, "Acme Corp", nil, nil,
		1, 1, 2, start, start.Add(2*time.Hour),
		"Courthouse", "Boston", "MA", "02101", status, nil, 5000, 2,
		10000, nil, nil, now, now, nil,
		"Court Interpretation", "English", "Spanish", "Jordan Diaz", "jordan@example.test")
}

func doLink(h *LinkHandler, handlerFn func(echo.Context) error, action, tok string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/links/assignments/" + action + "/:token")
	c.SetParamNames("token")
	c.SetParamValues(tok)
	_ = handlerFn(c)
	return rec
}

func TestAcceptLinkConfirmsThenReplayConflicts(t *testing.T) {
	h, mock, mail := newLinkTestEnv(t)

	tok, err := h.Signer.Issue(9, token.ActionAccept)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// First click: PENDING assignment moves to CONFIRMED with a payment
	// scheduled and the confirmation email sent.
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(linkDetailRows(model.StatusPending))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO financial_transactions").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("INSERT INTO interpreter_payments").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(linkDetailRows(model.StatusConfirmed))
	mock.ExpectQuery("SELECT email FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ops@dbdint.test"))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(3, 1))

	rec := doLink(h, h.Accept, "accept", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("first click status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Assignment Confirmed") {
		t.Fatalf("first click body missing confirmation page:\n%s", rec.Body.String())
	}
	if mail.sent != 1 {
		t.Fatalf("sent %d emails, want 1", mail.sent)
	}

	// Replay: the assignment is now CONFIRMED, so the guard stops the
	// transition and no further writes happen.
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(linkDetailRows(model.StatusConfirmed))

	rec = doLink(h, h.Accept, "accept", tok)
	if rec.Code != http.StatusConflict {
		t.Fatalf("replay status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Already Processed") {
		t.Fatalf("replay body missing already-processed page:\n%s", rec.Body.String())
	}
	if mail.sent != 1 {
		t.Fatalf("replay sent mail; total %d, want 1", mail.sent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptLinkRejectsForgedToken(t *testing.T) {
	h, mock, _ := newLinkTestEnv(t)

	rec := doLink(h, h.Accept, "accept", "not-a-real-token")
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db touched for forged token: %v", err)
	}
}

func TestAcceptLinkRejectsDeclineToken(t *testing.T) {
	h, mock, _ := newLinkTestEnv(t)

	tok, err := h.Signer.Issue(9, token.ActionDecline)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec := doLink(h, h.Accept, "accept", tok)
	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db touched for cross-action token: %v", err)
	}
}

func TestDeclineLinkConfirmedAssignmentConflicts(t *testing.T) {
	h, mock, mail := newLinkTestEnv(t)

	tok, err := h.Signer.Issue(9, token.ActionDecline)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// The interpreter already accepted; a late decline click must not
	// cancel the confirmed assignment.
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(linkDetailRows(model.StatusConfirmed))

	rec := doLink(h, h.Decline, "decline", tok)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Already Processed") {
		t.Fatalf("body missing already-processed page:\n%s", rec.Body.String())
	}
	if mail.sent != 0 {
		t.Fatalf("sent %d emails, want 0", mail.sent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("writes happened for a confirmed assignment: %v", err)
	}
}

func TestDeclineLinkCompletedAssignmentConflicts(t *testing.T) {
	h, mock, mail := newLinkTestEnv(t)

	tok, err := h.Signer.Issue(9, token.ActionDecline)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	mock.ExpectQuery("SELECT a.id, (.+) FROM assignments a").
		WillReturnRows(linkDetailRows(model.StatusCompleted))

	rec := doLink(h, h.Decline, "decline", tok)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if mail.sent != 0 {
		t.Fatalf("sent %d emails, want 0", mail.sent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
