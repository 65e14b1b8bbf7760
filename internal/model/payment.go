package model

import "time"

// FinancialTransaction types.
const (
	TransactionIncome   = "INCOME"
	TransactionExpense  = "EXPENSE"
	TransactionInternal = "INTERNAL"
)

// InterpreterPayment statuses.
const (
	PaymentPending    = "PENDING"
	PaymentProcessing = "PROCESSING"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentCancelled  = "CANCELLED"
)

// Expense types and statuses.
const (
	ExpenseSalary      = "SALARY"
	ExpenseOperational = "OPERATIONAL"

	ExpenseStatusPending  = "PENDING"
	ExpenseStatusApproved = "APPROVED"
	ExpenseStatusPaid     = "PAID"
	ExpenseStatusRejected = "REJECTED"
)

// FinancialTransaction is the root bookkeeping row every payment or
// expense hangs off (`financial_transactions` table).  TransactionID is
// a UUID used for external references; amounts are integer cents.
type FinancialTransaction struct {
	ID            uint64    // financial_transactions.id
	TransactionID string    // financial_transactions.transaction_uuid (unique)
	Type          string    // INCOME, EXPENSE or INTERNAL
	AmountCents   int64     // financial_transactions.amount_cents
	Description   string    // financial_transactions.description
	CreatedBy     *uint64   // financial_transactions.created_by (nullable for system actions)
	CreatedAt     time.Time // financial_transactions.created_at
}

// InterpreterPayment tracks money owed to an interpreter for an
// assignment (`interpreter_payments` table).  Exactly one transaction
// backs each payment; at most one payment per assignment is active at a
// time and consumers always fetch the latest by creation time.
type InterpreterPayment struct {
	ID              uint64     // interpreter_payments.id
	TransactionID   uint64     // interpreter_payments.transaction_id
	InterpreterID   uint64     // interpreter_payments.interpreter_id
	AssignmentID    *uint64    // interpreter_payments.assignment_id (nullable)
	AmountCents     int64      // interpreter_payments.amount_cents
	PaymentMethod   string     // interpreter_payments.payment_method (ACH, CHECK, ...)
	Status          string     // interpreter_payments.status
	ScheduledDate   time.Time  // interpreter_payments.scheduled_date
	ProcessedDate   *time.Time // interpreter_payments.processed_date (nullable)
	ReferenceNumber string     // interpreter_payments.reference_number (unique)
	CreatedAt       time.Time  // interpreter_payments.created_at
	UpdatedAt       time.Time  // interpreter_payments.updated_at
}

// Expense is a company expense row (`expenses` table), created against
// the same transaction as the interpreter payment when an assignment
// completes.
type Expense struct {
	ID            uint64     // expenses.id
	TransactionID uint64     // expenses.transaction_id
	ExpenseType   string     // expenses.expense_type
	AmountCents   int64      // expenses.amount_cents
	Description   string     // expenses.description
	Status        string     // expenses.status
	DateIncurred  time.Time  // expenses.date_incurred
	DatePaid      *time.Time // expenses.date_paid (nullable)
	ApprovedBy    *uint64    // expenses.approved_by (nullable)
}

// ClientPayment tracks money received from a client
// (`client_payments` table).  InvoiceNumber is unique per payment.
type ClientPayment struct {
	ID            uint64     // client_payments.id
	TransactionID uint64     // client_payments.transaction_id
	ClientID      uint64     // client_payments.client_id
	AssignmentID  *uint64    // client_payments.assignment_id (nullable)
	QuoteID       *uint64    // client_payments.quote_id (nullable)
	AmountCents   int64      // client_payments.amount_cents
	TaxCents      int64      // client_payments.tax_cents
	TotalCents    int64      // client_payments.total_cents
	PaymentMethod string     // client_payments.payment_method
	Status        string     // client_payments.status
	InvoiceNumber string     // client_payments.invoice_number (unique)
	DueDate       *time.Time // client_payments.due_date (nullable)
	CompletedDate *time.Time // client_payments.completed_date (nullable)
	CreatedAt     time.Time  // client_payments.created_at
}
