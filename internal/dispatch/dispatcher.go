// Package dispatch turns assignment lifecycle transitions into their
// side effects: financial bookkeeping inside the same transaction as
// the status change, then emails, audit entries and notifications
// after commit.  Post-commit effects are best-effort; a failed email
// never rolls back a state change that already happened.
package dispatch

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbdint/agency-api/internal/mailer"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/token"
)

// ErrNoPayable is returned when a completion cannot be booked because
// the assignment has no interpreter to pay.
var ErrNoPayable = errors.New("assignment has no interpreter to pay")

// paymentLeadTime is how far ahead ACH payments are scheduled after an
// assignment is confirmed.
const paymentLeadTime = 14 * 24 * time.Hour

// MailSender is the slice of the mailer the dispatcher needs; tests
// substitute a recorder.
type MailSender interface {
	SendAssignmentEmail(emailType string, a model.AssignmentDetail, to []string, acceptURL, declineURL string) error
}

// statusEmails maps a new assignment status to the email type sent for
// it.  Statuses absent from the map (IN_PROGRESS) notify nobody.
var statusEmails = map[string]string{
	model.StatusConfirmed: mailer.EmailAssignmentConfirmed,
	model.StatusCancelled: mailer.EmailAssignmentCancelled,
	model.StatusCompleted: mailer.EmailAssignmentCompleted,
	model.StatusNoShow:    mailer.EmailAssignmentNoShow,
}

// Dispatcher applies a lifecycle transition and runs its side effects.
type Dispatcher struct {
	db            *sql.DB
	assignments   *repository.AssignmentRepo
	payments      *repository.PaymentRepo
	users         *repository.UserRepo
	audit         *repository.AuditRepo
	notifications *repository.NotificationRepo
	mail          MailSender
	signer        *token.Signer
	baseURL       string
	now           func() time.Time
}

// New wires a Dispatcher.  baseURL prefixes the accept/decline links
// placed in offer emails.
func New(db *sql.DB, assignments *repository.AssignmentRepo, payments *repository.PaymentRepo,
	users *repository.UserRepo, audit *repository.AuditRepo, notifications *repository.NotificationRepo,
	mail MailSender, signer *token.Signer, baseURL string) *Dispatcher {
	return &Dispatcher{
		db:            db,
		assignments:   assignments,
		payments:      payments,
		users:         users,
		audit:         audit,
		notifications: notifications,
		mail:          mail,
		signer:        signer,
		baseURL:       baseURL,
		now:           time.Now,
	}
}

// Apply persists a status change that has already passed the lifecycle
// guard and runs its behavior: bookkeeping commits atomically with the
// new status, then emails, audit and notifications follow best-effort.
// extraTo adds recipients the assignment row no longer knows about,
// such as an interpreter detached by a cancellation.  The returned
// warnings describe post-commit effects that failed.
func (d *Dispatcher) Apply(ctx context.Context, a *model.Assignment, oldStatus string, actor *uint64, ip *string, extraTo ...string) ([]string, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := d.assignments.UpdateStatusTx(ctx, tx, a); err != nil {
		return nil, err
	}

	switch a.Status {
	case model.StatusConfirmed:
		if err := d.schedulePayment(ctx, tx, a, actor); err != nil {
			return nil, err
		}
	case model.StatusCompleted:
		if err := d.bookCompletion(ctx, tx, a, actor); err != nil {
			return nil, err
		}
	case model.StatusCancelled:
		if err := d.unwindFinancials(ctx, tx, a); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return d.afterCommit(ctx, a, oldStatus, actor, ip, extraTo), nil
}

// Offered runs the side effects of a freshly created PENDING
// assignment: the offer email with accept/decline links and the
// interpreter's dashboard notification.  The assignment row itself is
// already persisted by the caller.
func (d *Dispatcher) Offered(ctx context.Context, a model.AssignmentDetail, actor *uint64, ip *string) []string {
	var warnings []string

	if a.InterpreterID != nil {
		if err := d.notifications.Create(ctx, a.ID, *a.InterpreterID); err != nil {
			warnings = append(warnings, "notification: "+err.Error())
		}
	}

	if a.InterpreterEmail == "" {
		return warnings
	}
	acceptURL, declineURL, err := d.linkURLs(a.ID)
	if err != nil {
		return append(warnings, "link tokens: "+err.Error())
	}
	if err := d.mail.SendAssignmentEmail(mailer.EmailNewAssignment, a, []string{a.InterpreterEmail}, acceptURL, declineURL); err != nil {
		warnings = append(warnings, "offer email: "+err.Error())
	} else {
		d.recordEmailAudit(ctx, a.ID, mailer.EmailNewAssignment, actor, ip)
	}
	return warnings
}

// linkURLs issues a fresh accept and decline token pair for an offer
// email.
func (d *Dispatcher) linkURLs(assignmentID uint64) (accept, decline string, err error) {
	acceptTok, err := d.signer.Issue(assignmentID, token.ActionAccept)
	if err != nil {
		return "", "", err
	}
	declineTok, err := d.signer.Issue(assignmentID, token.ActionDecline)
	if err != nil {
		return "", "", err
	}
	accept = fmt.Sprintf("%s/links/assignments/accept/%s", d.baseURL, acceptTok)
	decline = fmt.Sprintf("%s/links/assignments/decline/%s", d.baseURL, declineTok)
	return accept, decline, nil
}

// schedulePayment books the confirmed assignment's pay: an EXPENSE
// ledger transaction plus a PENDING ACH payment scheduled two weeks
// out.
func (d *Dispatcher) schedulePayment(ctx context.Context, tx *sql.Tx, a *model.Assignment, actor *uint64) error {
	if a.InterpreterID == nil || a.TotalPaymentCents == nil {
		return nil
	}
	_, err := d.createPaymentTx(ctx, tx, a, actor, model.PaymentPending)
	return err
}

// bookCompletion moves the assignment's payment to PROCESSING and
// records the salary expense against the same ledger transaction.  A
// completion without an interpreter cannot be booked and aborts.
func (d *Dispatcher) bookCompletion(ctx context.Context, tx *sql.Tx, a *model.Assignment, actor *uint64) error {
	payment, err := d.payments.LatestByAssignmentTx(ctx, tx, a.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		// Confirmed before the bookkeeping existed, or data repair:
		// create the missing payment now so the expense has a ledger
		// transaction to hang off.
		if a.InterpreterID == nil || a.TotalPaymentCents == nil {
			return ErrNoPayable
		}
		payment, err = d.createPaymentTx(ctx, tx, a, actor, model.PaymentPending)
	}
	if err != nil {
		return err
	}

	now := d.now().UTC()
	if err := d.payments.UpdatePaymentStatusTx(ctx, tx, payment.ID, model.PaymentProcessing, &now); err != nil {
		return err
	}
	expense := &model.Expense{
		TransactionID: payment.TransactionID,
		ExpenseType:   model.ExpenseSalary,
		AmountCents:   payment.AmountCents,
		Description:   fmt.Sprintf("Interpreter payment for assignment #%d", a.ID),
		Status:        model.ExpenseStatusPending,
		DateIncurred:  now,
	}
	return d.payments.CreateExpenseTx(ctx, tx, expense)
}

// unwindFinancials reverses the bookkeeping of a cancelled assignment.
// Payments already COMPLETED or FAILED are left alone; expenses already
// PAID are left alone.
func (d *Dispatcher) unwindFinancials(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
	payment, err := d.payments.LatestByAssignmentTx(ctx, tx, a.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if payment.Status != model.PaymentCompleted && payment.Status != model.PaymentFailed {
		if err := d.payments.UpdatePaymentStatusTx(ctx, tx, payment.ID, model.PaymentCancelled, nil); err != nil {
			return err
		}
	}

	expense, err := d.payments.ExpenseByTransactionTx(ctx, tx, payment.TransactionID)
	if errors.Is(err, repository.ErrExpenseNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if expense.Status != model.ExpenseStatusPaid {
		return d.payments.UpdateExpenseStatusTx(ctx, tx, expense.ID, model.ExpenseStatusRejected)
	}
	return nil
}

// createPaymentTx writes the ledger transaction and payment row for an
// assignment's pay.
func (d *Dispatcher) createPaymentTx(ctx context.Context, tx *sql.Tx, a *model.Assignment, actor *uint64, status string) (model.InterpreterPayment, error) {
	txn := &model.FinancialTransaction{
		TransactionID: uuid.NewString(),
		Type:          model.TransactionExpense,
		AmountCents:   *a.TotalPaymentCents,
		Description:   fmt.Sprintf("Interpreter payment for assignment #%d", a.ID),
		CreatedBy:     actor,
	}
	if err := d.payments.CreateTransactionTx(ctx, tx, txn); err != nil {
		return model.InterpreterPayment{}, err
	}
	ref, err := paymentReference(a.ID)
	if err != nil {
		return model.InterpreterPayment{}, err
	}
	payment := &model.InterpreterPayment{
		TransactionID:   txn.ID,
		InterpreterID:   *a.InterpreterID,
		AssignmentID:    &a.ID,
		AmountCents:     *a.TotalPaymentCents,
		PaymentMethod:   "ACH",
		Status:          status,
		ScheduledDate:   d.now().UTC().Add(paymentLeadTime),
		ReferenceNumber: ref,
	}
	if err := d.payments.CreateInterpreterPaymentTx(ctx, tx, payment); err != nil {
		return model.InterpreterPayment{}, err
	}
	return *payment, nil
}

// paymentReference builds the unique "INT-<assignment>-<6 hex>" payment
// reference.
func paymentReference(assignmentID uint64) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("INT-%d-%s", assignmentID, strings.ToUpper(hex.EncodeToString(buf))), nil
}

// afterCommit runs the non-transactional effects of a committed status
// change and collects warnings for ones that fail.
func (d *Dispatcher) afterCommit(ctx context.Context, a *model.Assignment, oldStatus string, actor *uint64, ip *string, extraTo []string) []string {
	var warnings []string

	if err := d.audit.Record(ctx, actor, model.AuditStatusChanged, "Assignment",
		strconv.FormatUint(a.ID, 10),
		map[string]any{"old_status": oldStatus, "new_status": a.Status}, ip); err != nil {
		warnings = append(warnings, "audit: "+err.Error())
	}

	emailType, ok := statusEmails[a.Status]
	if !ok {
		return warnings
	}
	detail, err := d.assignments.GetDetail(ctx, a.ID)
	if err != nil {
		return append(warnings, "load detail: "+err.Error())
	}

	var to []string
	if detail.InterpreterEmail != "" {
		to = append(to, detail.InterpreterEmail)
	}
	for _, addr := range extraTo {
		if addr != "" && addr != detail.InterpreterEmail {
			to = append(to, addr)
		}
	}
	if mailer.NotifiesAdmins(emailType) {
		admins, err := d.users.AdminEmails(ctx)
		if err != nil {
			warnings = append(warnings, "admin list: "+err.Error())
		} else {
			to = append(to, admins...)
		}
	}
	if len(to) == 0 {
		return warnings
	}

	if err := d.mail.SendAssignmentEmail(emailType, detail, to, "", ""); err != nil {
		warnings = append(warnings, "email: "+err.Error())
	} else {
		d.recordEmailAudit(ctx, a.ID, emailType, actor, ip)
	}
	return warnings
}

// recordEmailAudit appends an EMAIL_SENT_<TYPE> entry; failures here
// are silent because the email already went out.
func (d *Dispatcher) recordEmailAudit(ctx context.Context, assignmentID uint64, emailType string, actor *uint64, ip *string) {
	_ = d.audit.Record(ctx, actor,
		model.AuditEmailSentPrefix+strings.ToUpper(emailType),
		"Assignment", strconv.FormatUint(assignmentID, 10),
		map[string]any{"email_type": emailType}, ip)
}
