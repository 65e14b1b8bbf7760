package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbdint/agency-api/internal/mailer"
	"github.com/dbdint/agency-api/internal/model"
	"github.com/dbdint/agency-api/internal/repository"
)

// BrowseHandler serves the public catalog: supported languages and
// offered service types.  Routes sit behind the Redis response cache,
// so these handlers stay plain read-throughs.
type BrowseHandler struct {
	Catalog *repository.CatalogRepo
}

func NewBrowseHandler(cat *repository.CatalogRepo) *BrowseHandler {
	return &BrowseHandler{Catalog: cat}
}

type serviceTypeResp struct {
	ID                    uint64 `json:"id"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	BaseRateCents         int64  `json:"base_rate_cents"`
	BaseRate              string `json:"base_rate"`
	MinimumHours          int    `json:"minimum_hours"`
	CancellationPolicy    string `json:"cancellation_policy"`
	RequiresCertification bool   `json:"requires_certification"`
}

// Languages lists active languages ordered by name.
func (h *BrowseHandler) Languages(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Catalog.ListLanguages(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	type lang struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
		Code string `json:"code"`
	}
	out := make([]lang, 0, len(items))
	for _, l := range items {
		out = append(out, lang{ID: l.ID, Name: l.Name, Code: l.Code})
	}
	return c.JSON(http.StatusOK, echo.Map{"languages": out})
}

// ServiceTypes lists active service types with their default rates.
func (h *BrowseHandler) ServiceTypes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Catalog.ListServiceTypes(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]serviceTypeResp, 0, len(items))
	for _, s := range items {
		out = append(out, toServiceTypeResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"service_types": out})
}

func toServiceTypeResp(s model.ServiceType) serviceTypeResp {
	return serviceTypeResp{
		ID:                    s.ID,
		Name:                  s.Name,
		Description:           s.Description,
		BaseRateCents:         s.BaseRateCents,
		BaseRate:              mailer.FormatUSD(s.BaseRateCents),
		MinimumHours:          s.MinimumHours,
		CancellationPolicy:    s.CancellationPolicy,
		RequiresCertification: s.RequiresCertification,
	}
}
