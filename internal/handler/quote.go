package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/mailer"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/queue"
	"github.com/dbdint/agency-api/internal/repository"
	queue_publisher "github.com/dbdint/agency-api/internal/service"
	"github.com/dbdint/agency-api/internal/utils"
)

// defaultQuoteValidity is how long an issued quote stays acceptable.
const defaultQuoteValidity = 14 * 24 * time.Hour

// QuoteHandler covers the quoting workflow end to end: the public
// enquiry form, registered clients' quote requests, staff issuing
// quotes, and accepting a quote into an assignment.
type QuoteHandler struct {
	Quotes      *repository.QuoteRepo
	Users       *repository.UserRepo
	Catalog     *repository.CatalogRepo
	Assignments *repository.AssignmentRepo
	Audit       *repository.AuditRepo
	Zone        *time.Location
}

func NewQuoteHandler(q *repository.QuoteRepo, u *repository.UserRepo, cat *repository.CatalogRepo,
	a *repository.AssignmentRepo, audit *repository.AuditRepo, zone *time.Location) *QuoteHandler {
	return &QuoteHandler{Quotes: q, Users: u, Catalog: cat, Assignments: a, Audit: audit, Zone: zone}
}

// ----- DTOs -----

type quoteRequestReq struct {
	ServiceTypeID       uint64 `json:"service_type_id"`
	SourceLanguageID    uint64 `json:"source_language_id"`
	TargetLanguageID    uint64 `json:"target_language_id"`
	RequestedDate       string `json:"requested_date"` // RFC 3339
	DurationMinutes     int    `json:"duration_minutes"`
	Location            string `json:"location"`
	City                string `json:"city"`
	State               string `json:"state"`
	ZipCode             string `json:"zip_code"`
	SpecialRequirements string `json:"special_requirements"`

	// Public form only.
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name"`
}

func (r *quoteRequestReq) validateCore() string {
	if r.ServiceTypeID == 0 || r.SourceLanguageID == 0 || r.TargetLanguageID == 0 {
		return "service_type_id and language ids required"
	}
	if r.DurationMinutes <= 0 {
		return "duration_minutes must be positive"
	}
	return ""
}

// PublicRequest handles the unauthenticated enquiry form.  The route
// sits behind the rate limiter; the handler just stores the enquiry
// and queues an acknowledgement email.
func (h *QuoteHandler) PublicRequest(c echo.Context) error {
	var req quoteRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name and email required"})
	}
	if msg := req.validateCore(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	when, err := time.Parse(time.RFC3339, req.RequestedDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requested_date"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.PublicQuoteRequest{
		FullName:         strings.TrimSpace(req.FullName),
		Email:            req.Email,
		Phone:            strings.TrimSpace(req.Phone),
		CompanyName:      strings.TrimSpace(req.CompanyName),
		SourceLanguageID: req.SourceLanguageID,
		TargetLanguageID: req.TargetLanguageID,
		ServiceTypeID:    req.ServiceTypeID,
		RequestedDate:    when.UTC(),
		DurationMinutes:  req.DurationMinutes,
		Location:         strings.TrimSpace(req.Location),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		ZipCode:          strings.TrimSpace(req.ZipCode),
	}
	setOptional(&p.SpecialRequirements, req.SpecialRequirements)

	if err := h.Quotes.CreatePublicRequest(ctx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	_ = queue_publisher.PublishMailJob(ctx, queue.MailJob{
		Kind:  queue.KindQuoteReceived,
		Email: p.Email,
		Name:  p.FullName,
	})

	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID})
}

// CreateRequest lets a registered client request a quote.
func (h *QuoteHandler) CreateRequest(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req quoteRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validateCore(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	when, err := time.Parse(time.RFC3339, req.RequestedDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requested_date"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Users.GetClientByUserID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no client profile"})
	}

	q := model.QuoteRequest{
		ClientID:         client.ID,
		ServiceTypeID:    req.ServiceTypeID,
		RequestedDate:    when.UTC(),
		DurationMinutes:  req.DurationMinutes,
		Location:         strings.TrimSpace(req.Location),
		City:             strings.TrimSpace(req.City),
		State:            strings.TrimSpace(req.State),
		ZipCode:          strings.TrimSpace(req.ZipCode),
		SourceLanguageID: req.SourceLanguageID,
		TargetLanguageID: req.TargetLanguageID,
		Status:           model.QuoteRequestPending,
	}
	setOptional(&q.SpecialRequirements, req.SpecialRequirements)

	if err := h.Quotes.CreateRequest(ctx, &q); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": q.ID, "status": q.Status})
}

// ListMyRequests returns the calling client's quote requests.
func (h *QuoteHandler) ListMyRequests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	client, err := h.Users.GetClientByUserID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no client profile"})
	}
	items, err := h.Quotes.ListRequestsByClient(ctx, client.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": items})
}

// GetMyQuote returns the issued quote for one of the client's requests.
func (h *QuoteHandler) GetMyQuote(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	request, _, err := h.ownedRequest(ctx, uid, requestID)
	if err != nil {
		return quoteOwnershipError(c, err)
	}

	q, err := h.Quotes.GetQuoteByRequest(ctx, request.ID)
	if err != nil {
		if err == repository.ErrQuoteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quote issued yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"quote":       q,
		"total_cents": q.AmountCents + q.TaxCents,
		"total":       mailer.FormatUSD(q.AmountCents + q.TaxCents),
		"valid_until": utils.FormatDate(q.ValidUntil, h.Zone),
	})
}

type issueQuoteReq struct {
	AmountCents int64  `json:"amount_cents"`
	TaxCents    int64  `json:"tax_cents"`
	ValidUntil  string `json:"valid_until"` // RFC 3339; defaults to two weeks out
	Terms       string `json:"terms"`
}

// IssueQuote creates the quote for a request, marks the request QUOTED
// and queues the notification email.  One quote per request.
func (h *QuoteHandler) IssueQuote(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req issueQuoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	validUntil := time.Now().UTC().Add(defaultQuoteValidity)
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil || !t.After(time.Now()) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid valid_until"})
		}
		validUntil = t.UTC()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	request, err := h.Quotes.GetRequest(ctx, requestID)
	if err != nil {
		if err == repository.ErrQuoteRequestNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	switch request.Status {
	case model.QuoteRequestPending, model.QuoteRequestProcessing:
	default:
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already " + strings.ToLower(request.Status)})
	}

	ref, err := quoteReference()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reference failed"})
	}
	q := model.Quote{
		QuoteRequestID:  request.ID,
		ReferenceNumber: ref,
		AmountCents:     req.AmountCents,
		TaxCents:        req.TaxCents,
		ValidUntil:      validUntil,
		Terms:           strings.TrimSpace(req.Terms),
		Status:          model.QuoteSent,
		CreatedBy:       uid,
	}
	if err := h.Quotes.CreateQuote(ctx, &q); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already quoted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	if err := h.Quotes.UpdateRequestStatus(ctx, request.ID, model.QuoteRequestQuoted); err != nil {
		c.Logger().Warnf("quote %d: mark request quoted: %v", q.ID, err)
	}

	if u, err := h.Users.GetUserByClientID(ctx, request.ClientID); err == nil {
		_ = queue_publisher.PublishMailJob(ctx, queue.MailJob{
			Kind:    queue.KindQuoteReady,
			Email:   u.Email,
			Name:    u.FullName(),
			QuoteID: q.ID,
		})
	}

	_ = h.Audit.Record(ctx, &uid, model.AuditStatusChanged, "Quote",
		strconv.FormatUint(q.ID, 10),
		map[string]any{"old_status": "", "new_status": q.Status, "reference_number": q.ReferenceNumber},
		clientIP(c))

	return c.JSON(http.StatusCreated, echo.Map{"id": q.ID, "reference_number": q.ReferenceNumber})
}

// AcceptQuote converts an accepted quote into a PENDING assignment in
// one transaction: quote ACCEPTED, request ACCEPTED, assignment
// created from the request's details.
func (h *QuoteHandler) AcceptQuote(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	request, _, err := h.ownedRequest(ctx, uid, requestID)
	if err != nil {
		return quoteOwnershipError(c, err)
	}
	q, err := h.Quotes.GetQuoteByRequest(ctx, request.ID)
	if err != nil {
		if err == repository.ErrQuoteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quote issued yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if q.Status != model.QuoteSent {
		return c.JSON(http.StatusConflict, echo.Map{"error": "quote is " + strings.ToLower(q.Status)})
	}
	if time.Now().UTC().After(q.ValidUntil) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "quote has expired"})
	}

	st, err := h.Catalog.GetServiceType(ctx, request.ServiceTypeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog lookup failed"})
	}

	tx, err := h.Quotes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Quotes.UpdateQuoteStatusTx(ctx, tx, q.ID, model.QuoteAccepted); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.Quotes.UpdateRequestStatusTx(ctx, tx, request.ID, model.QuoteRequestAccepted); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	a := model.Assignment{
		QuoteID:          &q.ID,
		ServiceTypeID:    request.ServiceTypeID,
		SourceLanguageID: request.SourceLanguageID,
		TargetLanguageID: request.TargetLanguageID,
		StartTime:        request.RequestedDate,
		EndTime:          request.RequestedDate.Add(time.Duration(request.DurationMinutes) * time.Minute),
		Location:         request.Location,
		City:             request.City,
		State:            request.State,
		ZipCode:          request.ZipCode,
		Status:           model.StatusPending,
		RateCents:        st.BaseRateCents,
		MinimumHours:     st.MinimumHours,
	}
	a.SpecialRequirements = request.SpecialRequirements
	_ = h.Audit.Record(ctx, &uid, model.AuditStatusChanged, "Quote",
		strconv.FormatUint(q.ID, 10),
		map[string]any{"old_status": model.QuoteSent, "new_status": model.QuoteAccepted},
		clientIP(c))

	if err := h.Assignments.Create(ctx, &a); err != nil {
		// The quote is accepted either way; staff can create the
		// assignment manually from the accepted request.
		c.Logger().Errorf("quote %d accepted but assignment create failed: %v", q.ID, err)
		return c.JSON(http.StatusOK, echo.Map{"quote": q.ID, "assignment": nil})
	}

	return c.JSON(http.StatusOK, echo.Map{"quote": q.ID, "assignment": a.ID})
}

// RejectQuote marks a SENT quote (and its request) rejected.
func (h *QuoteHandler) RejectQuote(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	request, _, err := h.ownedRequest(ctx, uid, requestID)
	if err != nil {
		return quoteOwnershipError(c, err)
	}
	q, err := h.Quotes.GetQuoteByRequest(ctx, request.ID)
	if err != nil {
		if err == repository.ErrQuoteNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no quote issued yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if q.Status != model.QuoteSent {
		return c.JSON(http.StatusConflict, echo.Map{"error": "quote is " + strings.ToLower(q.Status)})
	}

	tx, err := h.Quotes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Quotes.UpdateQuoteStatusTx(ctx, tx, q.ID, model.QuoteRejected); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.Quotes.UpdateRequestStatusTx(ctx, tx, request.ID, model.QuoteRequestRejected); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	_ = h.Audit.Record(ctx, &uid, model.AuditStatusChanged, "Quote",
		strconv.FormatUint(q.ID, 10),
		map[string]any{"old_status": model.QuoteSent, "new_status": model.QuoteRejected},
		clientIP(c))

	return c.JSON(http.StatusOK, echo.Map{"quote": q.ID, "status": model.QuoteRejected})
}

// ListRequests returns quote requests for the staff queue.
func (h *QuoteHandler) ListRequests(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status == "" {
		status = model.QuoteRequestPending
	}
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Quotes.ListRequestsByStatus(ctx, status, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": items})
}

// ListPublicRequests returns the public enquiry inbox for staff.
func (h *QuoteHandler) ListPublicRequests(c echo.Context) error {
	unprocessedOnly := c.QueryParam("all") == ""
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Quotes.ListPublicRequests(ctx, unprocessedOnly, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": items})
}

// MarkPublicProcessed records that a staff member handled an enquiry.
func (h *QuoteHandler) MarkPublicProcessed(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Quotes.MarkPublicRequestProcessed(ctx, id, uid, time.Now()); err != nil {
		if err == repository.ErrQuoteRequestNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ExpireStale sweeps SENT quotes past their validity date.  Also run
// periodically from main; this endpoint lets staff trigger it manually.
func (h *QuoteHandler) ExpireStale(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	n, err := h.Quotes.ExpireStale(ctx, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// ownedRequest loads a quote request and verifies the calling user's
// client profile owns it.
func (h *QuoteHandler) ownedRequest(ctx context.Context, userID, requestID uint64) (model.QuoteRequest, model.Client, error) {
	client, err := h.Users.GetClientByUserID(ctx, userID)
	if err != nil {
		return model.QuoteRequest{}, model.Client{}, repository.ErrForbidden
	}
	request, err := h.Quotes.GetRequest(ctx, requestID)
	if err != nil {
		return model.QuoteRequest{}, client, err
	}
	if request.ClientID != client.ID {
		return model.QuoteRequest{}, client, repository.ErrForbidden
	}
	return request, client, nil
}

func quoteOwnershipError(c echo.Context, err error) error {
	switch err {
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.ErrQuoteRequestNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}

// quoteReference builds the unique "QT-<year>-<6 hex>" reference.
func quoteReference() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("QT-%d-%s", time.Now().UTC().Year(), strings.ToUpper(hex.EncodeToString(buf))), nil
}
