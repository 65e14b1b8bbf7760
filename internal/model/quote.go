package model

import "time"

// QuoteRequest statuses.
const (
	QuoteRequestPending    = "PENDING"
	QuoteRequestProcessing = "PROCESSING"
	QuoteRequestQuoted     = "QUOTED"
	QuoteRequestAccepted   = "ACCEPTED"
	QuoteRequestRejected   = "REJECTED"
	QuoteRequestExpired    = "EXPIRED"
)

// Quote statuses.
const (
	QuoteDraft     = "DRAFT"
	QuoteSent      = "SENT"
	QuoteAccepted  = "ACCEPTED"
	QuoteRejected  = "REJECTED"
	QuoteExpired   = "EXPIRED"
	QuoteCancelled = "CANCELLED"
)

// QuoteRequest is a registered client's request for a price
// (`quote_requests` table).  Duration is requested minutes.
type QuoteRequest struct {
	ID                  uint64    // quote_requests.id
	ClientID            uint64    // quote_requests.client_id
	ServiceTypeID       uint64    // quote_requests.service_type_id
	RequestedDate       time.Time // quote_requests.requested_date
	DurationMinutes     int       // quote_requests.duration_minutes
	Location            string    // quote_requests.location
	City                string    // quote_requests.city
	State               string    // quote_requests.state
	ZipCode             string    // quote_requests.zip_code
	SourceLanguageID    uint64    // quote_requests.source_language_id
	TargetLanguageID    uint64    // quote_requests.target_language_id
	SpecialRequirements *string   // quote_requests.special_requirements (nullable)
	Status              string    // quote_requests.status
	CreatedAt           time.Time // quote_requests.created_at
	UpdatedAt           time.Time // quote_requests.updated_at
}

// Quote is a staff-issued price for a quote request (`quotes` table).
// Exactly one quote exists per request.  Amounts are integer cents.
type Quote struct {
	ID              uint64    // quotes.id
	QuoteRequestID  uint64    // quotes.quote_request_id (unique)
	ReferenceNumber string    // quotes.reference_number (unique)
	AmountCents     int64     // quotes.amount_cents
	TaxCents        int64     // quotes.tax_cents
	ValidUntil      time.Time // quotes.valid_until
	Terms           string    // quotes.terms
	Status          string    // quotes.status
	CreatedBy       uint64    // quotes.created_by (user id)
	CreatedAt       time.Time // quotes.created_at
	UpdatedAt       time.Time // quotes.updated_at
}

// PublicQuoteRequest is an unauthenticated quote enquiry submitted from
// the public site (`public_quote_requests` table).  Staff process these
// manually; Processed/ProcessedBy track that workflow.
type PublicQuoteRequest struct {
	ID                  uint64     // public_quote_requests.id
	FullName            string     // public_quote_requests.full_name
	Email               string     // public_quote_requests.email
	Phone               string     // public_quote_requests.phone
	CompanyName         string     // public_quote_requests.company_name
	SourceLanguageID    uint64     // public_quote_requests.source_language_id
	TargetLanguageID    uint64     // public_quote_requests.target_language_id
	ServiceTypeID       uint64     // public_quote_requests.service_type_id
	RequestedDate       time.Time  // public_quote_requests.requested_date
	DurationMinutes     int        // public_quote_requests.duration_minutes
	Location            string     // public_quote_requests.location
	City                string     // public_quote_requests.city
	State               string     // public_quote_requests.state
	ZipCode             string     // public_quote_requests.zip_code
	SpecialRequirements *string    // public_quote_requests.special_requirements (nullable)
	CreatedAt           time.Time  // public_quote_requests.created_at
	Processed           bool       // public_quote_requests.processed
	ProcessedBy         *uint64    // public_quote_requests.processed_by (nullable)
	ProcessedAt         *time.Time // public_quote_requests.processed_at (nullable)
}
