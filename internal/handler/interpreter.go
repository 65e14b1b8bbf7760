package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dbdint/agency-api/internal/repository"
	"github.com/dbdint/agency-api/internal/utils"
)

// unreadCountTTL bounds how stale the cached unread badge may go.
const unreadCountTTL = 2 * time.Minute

// InterpreterHandler serves the interpreter dashboard: the jobs
// assigned to the caller and the notification feed for new offers.
// Rdb may be nil, in which case the unread counter skips the cache.
type InterpreterHandler struct {
	Assignments *repository.AssignmentRepo
	Notifs      *repository.NotificationRepo
	Users       *repository.UserRepo
	Rdb         *redis.Client
	Zone        *time.Location
}

func NewInterpreterHandler(a *repository.AssignmentRepo, n *repository.NotificationRepo,
	u *repository.UserRepo, rdb *redis.Client, zone *time.Location) *InterpreterHandler {
	return &InterpreterHandler{Assignments: a, Notifs: n, Users: u, Rdb: rdb, Zone: zone}
}

// profile resolves the caller's interpreter profile id.  On failure it
// writes the error response itself and returns ok=false.
func (h *InterpreterHandler) profile(ctx context.Context, c echo.Context) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	interp, err := h.Users.GetInterpreterByUserID(ctx, uid)
	if err != nil {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "no interpreter profile"})
		return 0, false
	}
	return interp.ID, true
}

// MyAssignments lists the caller's assignments, optionally filtered by
// ?status=.
func (h *InterpreterHandler) MyAssignments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interpID, ok := h.profile(ctx, c)
	if !ok {
		return nil
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))

	items, err := h.Assignments.ListByInterpreter(ctx, interpID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	type assignment struct {
		ID           uint64 `json:"id"`
		Status       string `json:"status"`
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
		StartDisplay string `json:"start_display"`
		Location     string `json:"location"`
		City         string `json:"city"`
		State        string `json:"state"`
	}
	out := make([]assignment, 0, len(items))
	for _, a := range items {
		out = append(out, assignment{
			ID:           a.ID,
			Status:       a.Status,
			StartTime:    a.StartTime.UTC().Format(time.RFC3339),
			EndTime:      a.EndTime.UTC().Format(time.RFC3339),
			StartDisplay: utils.FormatDateTime(a.StartTime, h.Zone),
			Location:     a.Location,
			City:         a.City,
			State:        a.State,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": out})
}

// Notifications returns the caller's notification feed, newest first.
func (h *InterpreterHandler) Notifications(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interpID, ok := h.profile(ctx, c)
	if !ok {
		return nil
	}
	limit, offset := pagination(c)

	items, err := h.Notifs.ListByInterpreter(ctx, interpID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type notification struct {
		ID           uint64 `json:"id"`
		AssignmentID uint64 `json:"assignment_id"`
		IsRead       bool   `json:"is_read"`
		CreatedAt    string `json:"created_at"`
	}
	out := make([]notification, 0, len(items))
	for _, n := range items {
		out = append(out, notification{
			ID:           n.ID,
			AssignmentID: n.AssignmentID,
			IsRead:       n.IsRead,
			CreatedAt:    n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// UnreadCount returns the unread badge number, served from Redis when
// a fresh count is cached there.
func (h *InterpreterHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interpID, ok := h.profile(ctx, c)
	if !ok {
		return nil
	}

	key := unreadCountKey(interpID)
	if h.Rdb != nil {
		if s, err := h.Rdb.Get(ctx, key).Result(); err == nil {
			if n, err := strconv.Atoi(s); err == nil {
				return c.JSON(http.StatusOK, echo.Map{"unread": n})
			}
		}
	}

	n, err := h.Notifs.UnreadCount(ctx, interpID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if h.Rdb != nil {
		_ = h.Rdb.SetEx(ctx, key, strconv.Itoa(n), unreadCountTTL).Err()
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkRead flags one notification read.
func (h *InterpreterHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interpID, ok := h.profile(ctx, c)
	if !ok {
		return nil
	}
	switch err := h.Notifs.MarkRead(ctx, id, interpID); err {
	case nil:
	case sql.ErrNoRows:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.dropUnreadCount(ctx, interpID)
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead flags every unread notification read.
func (h *InterpreterHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	interpID, ok := h.profile(ctx, c)
	if !ok {
		return nil
	}
	if err := h.Notifs.MarkAllRead(ctx, interpID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.dropUnreadCount(ctx, interpID)
	return c.NoContent(http.StatusNoContent)
}

func (h *InterpreterHandler) dropUnreadCount(ctx context.Context, interpID uint64) {
	if h.Rdb != nil {
		_ = h.Rdb.Del(ctx, unreadCountKey(interpID)).Err()
	}
}

func unreadCountKey(interpID uint64) string {
	return "notif:unread:" + strconv.FormatUint(interpID, 10)
}
