package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/dispatch"
	"github.com/dbdint/agency-api/internal/lifecycle"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/token"
	"github.com/dbdint/agency-api/internal/utils"
)

// LinkHandler serves the accept/decline links interpreters click in
// offer emails.  Both endpoints are GET, unauthenticated, and
// idempotent: the token proves the click came from the email, the
// status guard stops replays, and the response is always a human
// readable HTML page.
type LinkHandler struct {
	Assignments *repository.AssignmentRepo
	Audit       *repository.AuditRepo
	Signer      *token.Signer
	Dispatcher  *dispatch.Dispatcher
	Zone        *time.Location
}

func NewLinkHandler(a *repository.AssignmentRepo, audit *repository.AuditRepo, s *token.Signer, d *dispatch.Dispatcher, zone *time.Location) *LinkHandler {
	return &LinkHandler{Assignments: a, Audit: audit, Signer: s, Dispatcher: d, Zone: zone}
}

// Accept handles GET /links/assignments/accept/:token.
func (h *LinkHandler) Accept(c echo.Context) error {
	id, err := h.Signer.Verify(c.Param("token"), token.ActionAccept)
	if err != nil {
		return pageExpired(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	detail, err := h.Assignments.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return pageNotFound(c)
		}
		return serverErrorPage(c)
	}

	a := detail.Assignment
	old := a.Status
	if !lifecycle.Confirm(&a) {
		return pageAlreadyProcessed(c, a.Status)
	}
	if a.TotalPaymentCents == nil {
		total := lifecycle.PayableCents(a.RateCents, a.MinimumHours, a.StartTime, a.EndTime)
		a.TotalPaymentCents = &total
	}

	warnings, err := h.Dispatcher.Apply(ctx, &a, old, nil, clientIP(c))
	if err != nil {
		return serverErrorPage(c)
	}
	for _, w := range warnings {
		c.Logger().Warnf("accept link assignment %d: %s", a.ID, w)
	}

	_ = h.Audit.Record(ctx, nil, model.AuditAssignmentAccepted, "Assignment",
		strconv.FormatUint(a.ID, 10), map[string]any{"via": "email_link"}, clientIP(c))

	return renderPage(c, http.StatusOK, pageData{
		Title:   "Assignment Confirmed",
		Message: "Thank you! You have accepted this assignment. A confirmation email with a calendar invitation is on its way.",
		Rows:    h.detailRows(detail),
	})
}

// Decline handles GET /links/assignments/decline/:token.  Declining
// cancels the assignment and releases the interpreter, who still gets
// the cancellation email even though the row no longer references them.
func (h *LinkHandler) Decline(c echo.Context) error {
	id, err := h.Signer.Verify(c.Param("token"), token.ActionDecline)
	if err != nil {
		return pageExpired(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	detail, err := h.Assignments.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrAssignmentNotFound {
			return pageNotFound(c)
		}
		return serverErrorPage(c)
	}

	a := detail.Assignment
	old := a.Status
	// Only an open offer can be declined from the email link.  Once the
	// assignment has been accepted (or moved further), the link renders
	// "already processed"; cancelling a confirmed job is a staff action.
	if a.Status != model.StatusPending {
		return pageAlreadyProcessed(c, a.Status)
	}
	if _, ok := lifecycle.Cancel(&a); !ok {
		return pageAlreadyProcessed(c, a.Status)
	}

	warnings, err := h.Dispatcher.Apply(ctx, &a, old, nil, clientIP(c), detail.InterpreterEmail)
	if err != nil {
		return serverErrorPage(c)
	}
	for _, w := range warnings {
		c.Logger().Warnf("decline link assignment %d: %s", a.ID, w)
	}

	_ = h.Audit.Record(ctx, nil, model.AuditAssignmentDeclined, "Assignment",
		strconv.FormatUint(a.ID, 10), map[string]any{"via": "email_link"}, clientIP(c))

	return renderPage(c, http.StatusOK, pageData{
		Title:   "Assignment Declined",
		Message: "You have declined this assignment. The office has been notified; no further action is needed.",
		Color:   "#b54708",
	})
}

func (h *LinkHandler) detailRows(d model.AssignmentDetail) []pageRow {
	return []pageRow{
		{Label: "Assignment", Value: "#" + strconv.FormatUint(d.ID, 10)},
		{Label: "Client", Value: d.ClientDisplay()},
		{Label: "Service", Value: d.ServiceTypeName},
		{Label: "Languages", Value: d.SourceLanguage + " to " + d.TargetLanguage},
		{Label: "Start", Value: utils.FormatDateTime(d.StartTime, h.Zone)},
		{Label: "End", Value: utils.FormatDateTime(d.EndTime, h.Zone)},
		{Label: "Location", Value: d.Location},
	}
}

func serverErrorPage(c echo.Context) error {
	return renderPage(c, http.StatusInternalServerError, pageData{
		Title:   "Something Went Wrong",
		Message: "We could not process your response. Please try again or contact the office.",
		Color:   "#b42318",
	})
}
