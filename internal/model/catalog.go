package model

// Language is one row of the `languages` catalog table.
type Language struct {
	ID       uint64 // languages.id
	Name     string // languages.name (unique)
	Code     string // languages.code (ISO code, unique)
	IsActive bool   // languages.is_active
}

// ServiceType describes one offered interpretation service
// (`service_types` table).  BaseRateCents is the default hourly rate
// proposed when quoting; MinimumHours seeds the assignment minimum.
type ServiceType struct {
	ID                    uint64 // service_types.id
	Name                  string // service_types.name
	Description           string // service_types.description
	BaseRateCents         int64  // service_types.base_rate_cents
	MinimumHours          int    // service_types.minimum_hours
	CancellationPolicy    string // service_types.cancellation_policy
	RequiresCertification bool   // service_types.requires_certification
	Active                bool   // service_types.active
}
