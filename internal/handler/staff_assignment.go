package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/dispatch"
	"github.com/dbdint/agency-api/internal/lifecycle"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/utils"
)

// StaffAssignmentHandler exposes assignment management to admins:
// creation (which triggers the offer email), edits, the guarded status
// transitions, and the audit trail.
type StaffAssignmentHandler struct {
	Assignments *repository.AssignmentRepo
	Users       *repository.UserRepo
	Catalog     *repository.CatalogRepo
	Audit       *repository.AuditRepo
	Dispatcher  *dispatch.Dispatcher
	Zone        *time.Location
}

func NewStaffAssignmentHandler(a *repository.AssignmentRepo, u *repository.UserRepo, cat *repository.CatalogRepo,
	audit *repository.AuditRepo, d *dispatch.Dispatcher, zone *time.Location) *StaffAssignmentHandler {
	return &StaffAssignmentHandler{Assignments: a, Users: u, Catalog: cat, Audit: audit, Dispatcher: d, Zone: zone}
}

// ----- DTOs -----

type assignmentReq struct {
	QuoteID             *uint64 `json:"quote_id"`
	InterpreterID       *uint64 `json:"interpreter_id"`
	ClientName          string  `json:"client_name"`
	ClientEmail         string  `json:"client_email"`
	ClientPhone         string  `json:"client_phone"`
	ServiceTypeID       uint64  `json:"service_type_id"`
	SourceLanguageID    uint64  `json:"source_language_id"`
	TargetLanguageID    uint64  `json:"target_language_id"`
	StartTime           string  `json:"start_time"` // RFC 3339
	EndTime             string  `json:"end_time"`
	Location            string  `json:"location"`
	City                string  `json:"city"`
	State               string  `json:"state"`
	ZipCode             string  `json:"zip_code"`
	RateCents           *int64  `json:"rate_cents"`    // defaults to the service type's base rate
	MinimumHours        *int    `json:"minimum_hours"` // defaults to the service type's minimum
	Notes               string  `json:"notes"`
	SpecialRequirements string  `json:"special_requirements"`
}

type assignmentResp struct {
	ID                uint64   `json:"id"`
	Status            string   `json:"status"`
	Client            string   `json:"client"`
	InterpreterID     *uint64  `json:"interpreter_id,omitempty"`
	ServiceTypeID     uint64   `json:"service_type_id"`
	SourceLanguageID  uint64   `json:"source_language_id"`
	TargetLanguageID  uint64   `json:"target_language_id"`
	StartTime         string   `json:"start_time"`
	EndTime           string   `json:"end_time"`
	StartDisplay      string   `json:"start_display"`
	Location          string   `json:"location"`
	RateCents         int64    `json:"rate_cents"`
	MinimumHours      int      `json:"minimum_hours"`
	TotalPaymentCents *int64   `json:"total_payment_cents,omitempty"`
	IsPaid            *bool    `json:"is_paid,omitempty"`
	CompletedAt       *string  `json:"completed_at,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

func (h *StaffAssignmentHandler) toResp(a model.Assignment, warnings []string) assignmentResp {
	r := assignmentResp{
		ID:                a.ID,
		Status:            a.Status,
		Client:            a.ClientDisplay(),
		InterpreterID:     a.InterpreterID,
		ServiceTypeID:     a.ServiceTypeID,
		SourceLanguageID:  a.SourceLanguageID,
		TargetLanguageID:  a.TargetLanguageID,
		StartTime:         a.StartTime.UTC().Format(time.RFC3339),
		EndTime:           a.EndTime.UTC().Format(time.RFC3339),
		StartDisplay:      utils.FormatDateTime(a.StartTime, h.Zone),
		Location:          a.Location,
		RateCents:         a.RateCents,
		MinimumHours:      a.MinimumHours,
		TotalPaymentCents: a.TotalPaymentCents,
		IsPaid:            a.IsPaid,
		Warnings:          warnings,
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.UTC().Format(time.RFC3339)
		r.CompletedAt = &s
	}
	return r
}

// Create inserts a PENDING assignment and, when an interpreter is
// attached, fires the offer email with its accept/decline links.
func (h *StaffAssignmentHandler) Create(c echo.Context) error {
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ServiceTypeID == 0 || req.SourceLanguageID == 0 || req.TargetLanguageID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_type_id and language ids required"})
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil || !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must follow start_time"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	st, err := h.Catalog.GetServiceType(ctx, req.ServiceTypeID)
	if err != nil {
		if err == repository.ErrCatalogNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown service type"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog lookup failed"})
	}

	a := model.Assignment{
		QuoteID:          req.QuoteID,
		InterpreterID:    req.InterpreterID,
		ServiceTypeID:    req.ServiceTypeID,
		SourceLanguageID: req.SourceLanguageID,
		TargetLanguageID: req.TargetLanguageID,
		StartTime:        start.UTC(),
		EndTime:          end.UTC(),
		Location:         strings.TrimSpace(req.Location),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		ZipCode:          strings.TrimSpace(req.ZipCode),
		Status:           model.StatusPending,
		RateCents:        st.BaseRateCents,
		MinimumHours:     st.MinimumHours,
	}
	if req.RateCents != nil && *req.RateCents > 0 {
		a.RateCents = *req.RateCents
	}
	if req.MinimumHours != nil && *req.MinimumHours > 0 {
		a.MinimumHours = *req.MinimumHours
	}
	setOptional(&a.ClientName, req.ClientName)
	setOptional(&a.ClientEmail, req.ClientEmail)
	setOptional(&a.ClientPhone, req.ClientPhone)
	setOptional(&a.Notes, req.Notes)
	setOptional(&a.SpecialRequirements, req.SpecialRequirements)

	if err := h.Assignments.Create(ctx, &a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	uid, _ := getUserID(c)
	actor := &uid

	var warnings []string
	if a.InterpreterID != nil {
		detail, err := h.Assignments.GetDetail(ctx, a.ID)
		if err != nil {
			warnings = append(warnings, "load detail: "+err.Error())
		} else {
			warnings = append(warnings, h.Dispatcher.Offered(ctx, detail, actor, clientIP(c))...)
		}
	}

	return c.JSON(http.StatusCreated, h.toResp(a, warnings))
}

// List returns assignments, optionally filtered by ?status=.
func (h *StaffAssignmentHandler) List(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Assignments.List(ctx, status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]assignmentResp, 0, len(items))
	for _, a := range items {
		out = append(out, h.toResp(a, nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": out})
}

// Get returns one assignment with its joined display fields.
func (h *StaffAssignmentHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Assignments.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := h.toResp(d.Assignment, nil)
	return c.JSON(http.StatusOK, echo.Map{
		"assignment":        resp,
		"service_type":      d.ServiceTypeName,
		"source_language":   d.SourceLanguage,
		"target_language":   d.TargetLanguage,
		"interpreter_name":  d.InterpreterName,
		"interpreter_email": d.InterpreterEmail,
	})
}

// Update edits scheduling and contact fields.  Terminal assignments
// are immutable.
func (h *StaffAssignmentHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req assignmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	a, err := h.Assignments.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	switch a.Status {
	case model.StatusCompleted, model.StatusCancelled, model.StatusNoShow:
		return c.JSON(http.StatusConflict, echo.Map{"error": "assignment is " + strings.ToLower(a.Status)})
	}

	if req.StartTime != "" {
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
		}
		a.StartTime = start.UTC()
	}
	if req.EndTime != "" {
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
		}
		a.EndTime = end.UTC()
	}
	if !a.EndTime.After(a.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must follow start_time"})
	}
	interpreterChanged := false
	if req.InterpreterID != nil {
		interpreterChanged = a.InterpreterID == nil || *a.InterpreterID != *req.InterpreterID
		a.InterpreterID = req.InterpreterID
	}
	if req.ServiceTypeID != 0 {
		a.ServiceTypeID = req.ServiceTypeID
	}
	if req.SourceLanguageID != 0 {
		a.SourceLanguageID = req.SourceLanguageID
	}
	if req.TargetLanguageID != 0 {
		a.TargetLanguageID = req.TargetLanguageID
	}
	if req.RateCents != nil && *req.RateCents > 0 {
		a.RateCents = *req.RateCents
	}
	if req.MinimumHours != nil && *req.MinimumHours > 0 {
		a.MinimumHours = *req.MinimumHours
	}
	updateOptional(&a.Location, req.Location)
	updateOptional(&a.City, req.City)
	updateOptional(&a.State, req.State)
	updateOptional(&a.ZipCode, req.ZipCode)
	setOptional(&a.ClientName, req.ClientName)
	setOptional(&a.ClientEmail, req.ClientEmail)
	setOptional(&a.ClientPhone, req.ClientPhone)
	setOptional(&a.Notes, req.Notes)
	setOptional(&a.SpecialRequirements, req.SpecialRequirements)

	if err := h.Assignments.Update(ctx, &a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	// Handing a PENDING assignment to a different interpreter restarts
	// the offer: fresh links, fresh notification.
	var warnings []string
	if interpreterChanged && a.Status == model.StatusPending {
		uid, _ := getUserID(c)
		if detail, err := h.Assignments.GetDetail(ctx, a.ID); err != nil {
			warnings = append(warnings, "load detail: "+err.Error())
		} else {
			warnings = append(warnings, h.Dispatcher.Offered(ctx, detail, &uid, clientIP(c))...)
		}
	}
	return c.JSON(http.StatusOK, h.toResp(a, warnings))
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus applies one guarded lifecycle transition.  An illegal
// transition returns 409 with the current status; side-effect failures
// after commit surface as warnings, never as errors.
func (h *StaffAssignmentHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	target := strings.ToUpper(strings.TrimSpace(req.Status))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	detail, err := h.Assignments.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	a := detail.Assignment
	old := a.Status
	var extraTo []string

	switch target {
	case model.StatusConfirmed:
		if !lifecycle.Confirm(&a) {
			return statusConflict(c, old)
		}
		if a.TotalPaymentCents == nil {
			total := lifecycle.PayableCents(a.RateCents, a.MinimumHours, a.StartTime, a.EndTime)
			a.TotalPaymentCents = &total
		}
	case model.StatusInProgress:
		if !lifecycle.Start(&a) {
			return statusConflict(c, old)
		}
	case model.StatusCompleted:
		if !lifecycle.Complete(&a, time.Now()) {
			return statusConflict(c, old)
		}
		if a.TotalPaymentCents == nil {
			total := lifecycle.PayableCents(a.RateCents, a.MinimumHours, a.StartTime, a.EndTime)
			a.TotalPaymentCents = &total
		}
	case model.StatusCancelled:
		if _, ok := lifecycle.Cancel(&a); !ok {
			return statusConflict(c, old)
		}
		extraTo = append(extraTo, detail.InterpreterEmail)
	case model.StatusNoShow:
		if !lifecycle.MarkNoShow(&a) {
			return statusConflict(c, old)
		}
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + target})
	}

	uid, _ := getUserID(c)
	warnings, err := h.Dispatcher.Apply(ctx, &a, old, &uid, clientIP(c), extraTo...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
	}
	for _, w := range warnings {
		c.Logger().Warnf("assignment %d status %s: %s", a.ID, target, w)
	}
	return c.JSON(http.StatusOK, h.toResp(a, warnings))
}

// Resend re-issues the offer email (with fresh link tokens) for a
// PENDING assignment.
func (h *StaffAssignmentHandler) Resend(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	detail, err := h.Assignments.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if detail.Status != model.StatusPending {
		return statusConflict(c, detail.Status)
	}
	if detail.InterpreterEmail == "" {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no interpreter attached"})
	}

	uid, _ := getUserID(c)
	warnings := h.Dispatcher.Offered(ctx, detail, &uid, clientIP(c))
	return c.JSON(http.StatusOK, echo.Map{"resent": true, "warnings": warnings})
}

// AuditTrail returns the append-only history for one assignment.
func (h *StaffAssignmentHandler) AuditTrail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Audit.ListByObject(ctx, "Assignment", strconv.FormatUint(id, 10))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"audit": entries})
}

func statusConflict(c echo.Context, current string) error {
	return c.JSON(http.StatusConflict, echo.Map{
		"error":  "transition not allowed",
		"status": current,
	})
}

// setOptional stores a trimmed non-empty string into a nullable field,
// leaving it untouched when the input is empty.
func setOptional(dst **string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = &s
	}
}

// updateOptional overwrites a plain string field only when the input is
// non-empty.
func updateOptional(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}
