package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/repository"
)

func newInterpreterTestEnv(t *testing.T) (*InterpreterHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewInterpreterHandler(
		repository.NewAssignmentRepo(db),
		repository.NewNotificationRepo(db),
		repository.NewUserRepo(db),
		nil, // no Redis in tests; the counter falls back to the database
		time.UTC)
	return h, mock
}

func interpreterProfileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "address", "city", "state", "zip_code", "hourly_rate_cents", "radius_of_service",
		"bank_name", "account_holder_name", "routing_number", "account_number", "account_type", "w9_on_file", "active",
	}).AddRow(5, 7, "12 Main St", "Boston", "MA", "02101", 5000, 25,
		"", "", "", "", "", true, true)
}

// doInterpreter invokes a dashboard handler as user 7 the way the JWT
// middleware would have populated the context (numeric claims decode as
// float64).
func doInterpreter(fn func(echo.Context) error, target string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", float64(7))
	_ = fn(c)
	return rec
}

func TestNotificationsListsCallerFeed(t *testing.T) {
	h, mock := newInterpreterTestEnv(t)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, user_id, (.+) FROM interpreters WHERE user_id").
		WillReturnRows(interpreterProfileRows())
	mock.ExpectQuery("SELECT id, assignment_id, (.+) FROM assignment_notifications").
		WillReturnRows(sqlmock.NewRows([]string{"id", "assignment_id", "interpreter_id", "is_read", "created_at"}).
			AddRow(31, 9, 5, false, created).
			AddRow(30, 8, 5, true, created.Add(-time.Hour)))

	rec := doInterpreter(h.Notifications, "/v1/interpreter/notifications")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"assignment_id":9`) || !strings.Contains(body, `"assignment_id":8`) {
		t.Fatalf("feed missing notifications:\n%s", body)
	}
	if !strings.Contains(body, `"is_read":false`) {
		t.Fatalf("unread flag lost:\n%s", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUnreadCountFallsBackToDatabase(t *testing.T) {
	h, mock := newInterpreterTestEnv(t)

	mock.ExpectQuery("SELECT id, user_id, (.+) FROM interpreters WHERE user_id").
		WillReturnRows(interpreterProfileRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assignment_notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rec := doInterpreter(h.UnreadCount, "/v1/interpreter/notifications/unread-count")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unread":3`) {
		t.Fatalf("count not served from database:\n%s", rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNotificationsWithoutProfileForbidden(t *testing.T) {
	h, mock := newInterpreterTestEnv(t)

	mock.ExpectQuery("SELECT id, user_id, (.+) FROM interpreters WHERE user_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := doInterpreter(h.Notifications, "/v1/interpreter/notifications")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
