package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dbdint/agency-api/internal/model"
)

// ErrCatalogNotFound is returned for a missing language or service type.
var ErrCatalogNotFound = errors.New("catalog entry not found")

// CatalogRepo reads the languages and service_types reference tables.
// Both tables change rarely; the public browse endpoints sit behind the
// response cache.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ListLanguages returns languages, optionally restricted to active
// ones, ordered by name.
func (r *CatalogRepo) ListLanguages(ctx context.Context, activeOnly bool) ([]model.Language, error) {
	q := `SELECT id, name, code, is_active FROM languages`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Code, &l.IsActive); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetLanguage fetches one language by id.
func (r *CatalogRepo) GetLanguage(ctx context.Context, id uint64) (model.Language, error) {
	var l model.Language
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code, is_active FROM languages WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.Code, &l.IsActive)
	if err == sql.ErrNoRows {
		return l, ErrCatalogNotFound
	}
	return l, err
}

const serviceTypeCols = `id, name, description, base_rate_cents, minimum_hours,
	cancellation_policy, requires_certification, active`

// ListServiceTypes returns service types, optionally restricted to
// active ones.
func (r *CatalogRepo) ListServiceTypes(ctx context.Context, activeOnly bool) ([]model.ServiceType, error) {
	q := `SELECT ` + serviceTypeCols + ` FROM service_types`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ServiceType
	for rows.Next() {
		s, err := scanServiceType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetServiceType fetches one service type by id.
func (r *CatalogRepo) GetServiceType(ctx context.Context, id uint64) (model.ServiceType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+serviceTypeCols+` FROM service_types WHERE id = ?`, id)
	return scanServiceType(row)
}

func scanServiceType(row rowScanner) (model.ServiceType, error) {
	var s model.ServiceType
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.BaseRateCents, &s.MinimumHours,
		&s.CancellationPolicy, &s.RequiresCertification, &s.Active)
	if err == sql.ErrNoRows {
		return s, ErrCatalogNotFound
	}
	return s, err
}
