package model

import "time"

// Assignment statuses. An assignment is created PENDING when an
// interpreter is offered the job and only ever moves along the
// transitions allowed by the lifecycle package; it is never deleted,
// only transitioned to CANCELLED.
const (
	StatusPending    = "PENDING"     // offered to an interpreter, awaiting response
	StatusConfirmed  = "CONFIRMED"   // accepted by the interpreter
	StatusInProgress = "IN_PROGRESS" // interpreter started the mission
	StatusCompleted  = "COMPLETED"   // mission finished
	StatusCancelled  = "CANCELLED"   // cancelled by staff or declined by the interpreter
	StatusNoShow     = "NO_SHOW"     // client or interpreter did not show up
)

// Assignment records one scheduled interpretation job.  It mirrors the
// `assignments` table.  Client contact fields are free-form and optional:
// staff may create an assignment before (or without) a registered client
// account.  All monetary values are integer cents.
//
// Fields:
//  ID                – primary key identifier.
//  QuoteID           – quote this assignment was converted from (nullable).
//  InterpreterID     – interpreter currently holding the offer (nullable;
//                      cleared when the assignment is cancelled/declined).
//  ClientName/Email/Phone – optional free-form client contact info.
//  ServiceTypeID     – service being performed.
//  SourceLanguageID  – language interpreted from.
//  TargetLanguageID  – language interpreted to.
//  StartTime/EndTime – scheduled window, stored in UTC.
//  Location/City/State/ZipCode – where the mission takes place.
//  Status            – lifecycle state (see constants above).
//  IsPaid            – display-only paid flag; nil means "not yet settled".
//  RateCents         – interpreter hourly rate in cents.
//  MinimumHours      – minimum billable hours.
//  TotalPaymentCents – computed payable amount in cents (nullable until known).
//  Notes / SpecialRequirements – free text.
//  CreatedAt/UpdatedAt/CompletedAt – timestamps; CompletedAt set on completion.
type Assignment struct {
	ID                  uint64     // assignments.id
	QuoteID             *uint64    // assignments.quote_id (nullable)
	InterpreterID       *uint64    // assignments.interpreter_id (nullable)
	ClientName          *string    // assignments.client_name (nullable)
	ClientEmail         *string    // assignments.client_email (nullable)
	ClientPhone         *string    // assignments.client_phone (nullable)
	ServiceTypeID       uint64     // assignments.service_type_id
	SourceLanguageID    uint64     // assignments.source_language_id
	TargetLanguageID    uint64     // assignments.target_language_id
	StartTime           time.Time  // assignments.start_time
	EndTime             time.Time  // assignments.end_time
	Location            string     // assignments.location
	City                string     // assignments.city
	State               string     // assignments.state
	ZipCode             string     // assignments.zip_code
	Status              string     // assignments.status
	IsPaid              *bool      // assignments.is_paid (nullable tri-state)
	RateCents           int64      // assignments.rate_cents
	MinimumHours        int        // assignments.minimum_hours
	TotalPaymentCents   *int64     // assignments.total_payment_cents (nullable)
	Notes               *string    // assignments.notes (nullable)
	SpecialRequirements *string    // assignments.special_requirements (nullable)
	CreatedAt           time.Time  // assignments.created_at
	UpdatedAt           time.Time  // assignments.updated_at
	CompletedAt         *time.Time // assignments.completed_at (nullable)
}

// ClientDisplay returns the client name to show in emails and pages when
// the contact fields were left empty.
func (a *Assignment) ClientDisplay() string {
	if a.ClientName != nil && *a.ClientName != "" {
		return *a.ClientName
	}
	return "Unspecified Client"
}

// AssignmentDetail carries an assignment together with the display
// strings handlers and emails need (joined from the catalog and
// interpreter tables) so templates never reach back into the database.
type AssignmentDetail struct {
	Assignment
	ServiceTypeName    string
	SourceLanguage     string
	TargetLanguage     string
	InterpreterName    string // empty when no interpreter is attached
	InterpreterEmail   string // empty when no interpreter is attached
}
