package model

import "time"

// User roles stored in users.role and carried in the JWT role claim.
const (
	RoleClient      = "CLIENT"
	RoleInterpreter = "INTERPRETER"
	RoleAdmin       = "ADMIN"
)

// User represents an account row in the `users` table.  Clients and
// interpreters extend it with a profile row; admins are plain users
// with RoleAdmin.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name used in email salutations.
//  LastName     – family name.
//  Phone        – optional contact number.
//  Role         – CLIENT, INTERPRETER or ADMIN.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Phone        *string   // users.phone (nullable)
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// FullName joins first and last name for display; falls back to the
// email address when both are empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// Client is the profile row for a CLIENT user (`clients` table).
// Billing fields are optional and default to the main address.
type Client struct {
	ID               uint64  // clients.id
	UserID           uint64  // clients.user_id
	CompanyName      string  // clients.company_name
	Address          string  // clients.address
	City             string  // clients.city
	State            string  // clients.state
	ZipCode          string  // clients.zip_code
	BillingAddress   *string // clients.billing_address (nullable)
	BillingCity      *string // clients.billing_city (nullable)
	BillingState     *string // clients.billing_state (nullable)
	BillingZipCode   *string // clients.billing_zip_code (nullable)
	TaxID            *string // clients.tax_id (nullable)
	PreferredLangID  *uint64 // clients.preferred_language_id (nullable)
	CreditLimitCents int64   // clients.credit_limit_cents
	Active           bool    // clients.active
}

// Interpreter is the profile row for an INTERPRETER user
// (`interpreters` table).  Banking fields support ACH payroll and are
// optional until the interpreter completes onboarding.
type Interpreter struct {
	ID                uint64  // interpreters.id
	UserID            uint64  // interpreters.user_id
	Address           string  // interpreters.address
	City              string  // interpreters.city
	State             string  // interpreters.state
	ZipCode           string  // interpreters.zip_code
	HourlyRateCents   *int64  // interpreters.hourly_rate_cents (nullable)
	RadiusOfService   *int    // interpreters.radius_of_service (nullable, miles)
	BankName          *string // interpreters.bank_name (nullable)
	AccountHolderName *string // interpreters.account_holder_name (nullable)
	RoutingNumber     *string // interpreters.routing_number (nullable)
	AccountNumber     *string // interpreters.account_number (nullable)
	AccountType       *string // interpreters.account_type (checking|savings, nullable)
	W9OnFile          bool    // interpreters.w9_on_file
	Active            bool    // interpreters.active
}

// InterpreterLanguage links an interpreter to a working language with a
// proficiency level (`interpreter_languages` table, unique per pair).
type InterpreterLanguage struct {
	InterpreterID uint64 // interpreter_languages.interpreter_id
	LanguageID    uint64 // interpreter_languages.language_id
	Proficiency   string // NATIVE, FLUENT, PROFESSIONAL, INTERMEDIATE
	IsPrimary     bool   // interpreter_languages.is_primary
	Certified     bool   // interpreter_languages.certified
}
