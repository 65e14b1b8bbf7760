package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/utils"
)

// StaffPaymentHandler manages the payroll side: reviewing scheduled
// interpreter payments, settling or failing them, and recording money
// received from clients.
type StaffPaymentHandler struct {
	Payments    *repository.PaymentRepo
	Assignments *repository.AssignmentRepo
	Audit       *repository.AuditRepo
	Zone        *time.Location
}

func NewStaffPaymentHandler(p *repository.PaymentRepo, a *repository.AssignmentRepo, audit *repository.AuditRepo, zone *time.Location) *StaffPaymentHandler {
	return &StaffPaymentHandler{Payments: p, Assignments: a, Audit: audit, Zone: zone}
}

type paymentResp struct {
	ID            uint64  `json:"id"`
	InterpreterID uint64  `json:"interpreter_id"`
	AssignmentID  *uint64 `json:"assignment_id,omitempty"`
	AmountCents   int64   `json:"amount_cents"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	Scheduled     string  `json:"scheduled_date"`
	Processed     *string `json:"processed_date,omitempty"`
	Reference     string  `json:"reference_number"`
}

func (h *StaffPaymentHandler) toResp(p model.InterpreterPayment) paymentResp {
	r := paymentResp{
		ID:            p.ID,
		InterpreterID: p.InterpreterID,
		AssignmentID:  p.AssignmentID,
		AmountCents:   p.AmountCents,
		Method:        p.PaymentMethod,
		Status:        p.Status,
		Scheduled:     utils.FormatDate(p.ScheduledDate, h.Zone),
		Reference:     p.ReferenceNumber,
	}
	if p.ProcessedDate != nil {
		s := utils.FormatDateTime(*p.ProcessedDate, h.Zone)
		r.Processed = &s
	}
	return r
}

// List returns interpreter payments filtered by ?status= and
// ?interpreter_id=.
func (h *StaffPaymentHandler) List(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	var interpreterID uint64
	if v := c.QueryParam("interpreter_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid interpreter_id"})
		}
		interpreterID = n
	}
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Payments.ListPayments(ctx, status, interpreterID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]paymentResp, 0, len(items))
	for _, p := range items {
		out = append(out, h.toResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// ListExpenses returns expense rows filtered by ?status=.
func (h *StaffPaymentHandler) ListExpenses(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Payments.ListExpenses(ctx, status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expenses": items})
}

// Settle marks a PROCESSING payment COMPLETED: the expense becomes
// PAID and the assignment's paid flag flips, all in one transaction.
func (h *StaffPaymentHandler) Settle(c echo.Context) error {
	return h.finish(c, model.PaymentCompleted)
}

// Fail marks a payment FAILED (e.g. an ACH return).  The expense and
// assignment are left untouched so the payment can be retried.
func (h *StaffPaymentHandler) Fail(c echo.Context) error {
	return h.finish(c, model.PaymentFailed)
}

func (h *StaffPaymentHandler) finish(c echo.Context, target string) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.Payments.GetPayment(ctx, id)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	switch p.Status {
	case model.PaymentCompleted, model.PaymentFailed, model.PaymentCancelled:
		return c.JSON(http.StatusConflict, echo.Map{"error": "payment already " + strings.ToLower(p.Status)})
	}

	tx, err := h.Assignments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if err := h.Payments.UpdatePaymentStatusTx(ctx, tx, p.ID, target, &now); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if target == model.PaymentCompleted {
		expense, err := h.Payments.ExpenseByTransactionTx(ctx, tx, p.TransactionID)
		switch {
		case err == repository.ErrExpenseNotFound:
			// Payment settled before completion bookkeeping; nothing to flip.
		case err != nil:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expense lookup failed"})
		default:
			if err := h.Payments.UpdateExpenseStatusTx(ctx, tx, expense.ID, model.ExpenseStatusPaid); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expense update failed"})
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	if target == model.PaymentCompleted && p.AssignmentID != nil {
		if err := h.Assignments.SetPaid(ctx, *p.AssignmentID, true); err != nil {
			c.Logger().Warnf("payment %d: set paid flag: %v", p.ID, err)
		}
	}

	uid, _ := getUserID(c)
	_ = h.Audit.Record(ctx, &uid, model.AuditStatusChanged, "InterpreterPayment",
		strconv.FormatUint(p.ID, 10),
		map[string]any{"old_status": p.Status, "new_status": target}, clientIP(c))

	p.Status = target
	p.ProcessedDate = &now
	return c.JSON(http.StatusOK, h.toResp(p))
}

type clientPaymentReq struct {
	ClientID     uint64  `json:"client_id"`
	QuoteID      *uint64 `json:"quote_id"`
	AssignmentID *uint64 `json:"assignment_id"`
	AmountCents  int64   `json:"amount_cents"`
	TaxCents     int64   `json:"tax_cents"`
	Method       string  `json:"payment_method"`
	Invoice      string  `json:"invoice_number"`
}

// RecordClientPayment registers money received from a client together
// with its INCOME ledger transaction.
func (h *StaffPaymentHandler) RecordClientPayment(c echo.Context) error {
	var req clientPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ClientID == 0 || req.AmountCents <= 0 || strings.TrimSpace(req.Invoice) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id, amount_cents and invoice_number required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	uid, _ := getUserID(c)

	tx, err := h.Assignments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	txn := &model.FinancialTransaction{
		TransactionID: newTransactionUUID(),
		Type:          model.TransactionIncome,
		AmountCents:   req.AmountCents + req.TaxCents,
		Description:   "Client payment, invoice " + strings.TrimSpace(req.Invoice),
		CreatedBy:     &uid,
	}
	if err := h.Payments.CreateTransactionTx(ctx, tx, txn); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger write failed"})
	}

	now := time.Now().UTC()
	p := &model.ClientPayment{
		TransactionID: txn.ID,
		ClientID:      req.ClientID,
		QuoteID:       req.QuoteID,
		AssignmentID:  req.AssignmentID,
		AmountCents:   req.AmountCents,
		TaxCents:      req.TaxCents,
		TotalCents:    req.AmountCents + req.TaxCents,
		PaymentMethod: strings.TrimSpace(req.Method),
		Status:        model.PaymentCompleted,
		InvoiceNumber: strings.TrimSpace(req.Invoice),
		CompletedDate: &now,
	}
	if err := h.Payments.CreateClientPaymentTx(ctx, tx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "invoice_number": p.InvoiceNumber})
}
