package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dbdint/agency-api/internal/model"
)

// Sentinel errors for user rows.
var (
	ErrEmailExists  = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// UserRepo provides access to the users table plus the client and
// interpreter profile tables that extend it.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// DB exposes the handle for handlers that register a user and their
// profile in one transaction.
func (r *UserRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new user row.  A duplicate email surfaces as
// ErrEmailExists (MySQL error 1062 on the unique index).
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.User) error {
	const q = `INSERT INTO users (email, password_hash, first_name, last_name, phone, role, is_active)
		VALUES (?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.IsActive)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

const userCols = `id, email, password_hash, first_name, last_name, phone, role, is_active, created_at, updated_at`

// GetByEmail fetches a user by email address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// AdminEmails returns the email addresses of all active admin users.
// The dispatcher uses this list for internal status notifications.
func (r *UserRepo) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email FROM users WHERE role = ? AND is_active = 1`, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateClientProfileTx inserts the client profile row for a new
// CLIENT user.
func (r *UserRepo) CreateClientProfileTx(ctx context.Context, tx *sql.Tx, c *model.Client) error {
	const q = `INSERT INTO clients
		(user_id, company_name, address, city, state, zip_code,
		 billing_address, billing_city, billing_state, billing_zip_code,
		 tax_id, preferred_language_id, credit_limit_cents, active)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		c.UserID, c.CompanyName, c.Address, c.City, c.State, c.ZipCode,
		c.BillingAddress, c.BillingCity, c.BillingState, c.BillingZipCode,
		c.TaxID, c.PreferredLangID, c.CreditLimitCents, c.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// CreateInterpreterProfileTx inserts the interpreter profile row for a
// new INTERPRETER user.
func (r *UserRepo) CreateInterpreterProfileTx(ctx context.Context, tx *sql.Tx, i *model.Interpreter) error {
	const q = `INSERT INTO interpreters
		(user_id, address, city, state, zip_code, hourly_rate_cents, radius_of_service,
		 bank_name, account_holder_name, routing_number, account_number, account_type, w9_on_file, active)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		i.UserID, i.Address, i.City, i.State, i.ZipCode, i.HourlyRateCents, i.RadiusOfService,
		i.BankName, i.AccountHolderName, i.RoutingNumber, i.AccountNumber, i.AccountType, i.W9OnFile, i.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	i.ID = uint64(id)
	return nil
}

// AddInterpreterLanguageTx links an interpreter to a working language.
func (r *UserRepo) AddInterpreterLanguageTx(ctx context.Context, tx *sql.Tx, l *model.InterpreterLanguage) error {
	const q = `INSERT INTO interpreter_languages
		(interpreter_id, language_id, proficiency, is_primary, certified)
		VALUES (?,?,?,?,?)`
	_, err := tx.ExecContext(ctx, q, l.InterpreterID, l.LanguageID, l.Proficiency, l.IsPrimary, l.Certified)
	if err != nil && strings.Contains(err.Error(), "1062") {
		return ErrConflict
	}
	return err
}

// GetClientByUserID fetches the client profile for a user account.
func (r *UserRepo) GetClientByUserID(ctx context.Context, userID uint64) (model.Client, error) {
	var c model.Client
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, company_name, address, city, state, zip_code,
			billing_address, billing_city, billing_state, billing_zip_code,
			tax_id, preferred_language_id, credit_limit_cents, active
		 FROM clients WHERE user_id = ?`, userID)
	var prefLang sql.NullInt64
	err := row.Scan(&c.ID, &c.UserID, &c.CompanyName, &c.Address, &c.City, &c.State, &c.ZipCode,
		&c.BillingAddress, &c.BillingCity, &c.BillingState, &c.BillingZipCode,
		&c.TaxID, &prefLang, &c.CreditLimitCents, &c.Active)
	if err == sql.ErrNoRows {
		return c, ErrUserNotFound
	}
	if err != nil {
		return c, err
	}
	if prefLang.Valid {
		v := uint64(prefLang.Int64)
		c.PreferredLangID = &v
	}
	return c, nil
}

// GetUserByClientID resolves a client profile id back to its user
// account, used when emailing quote updates.
func (r *UserRepo) GetUserByClientID(ctx context.Context, clientID uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.phone, u.role, u.is_active, u.created_at, u.updated_at
		 FROM users u JOIN clients c ON c.user_id = u.id WHERE c.id = ?`, clientID)
	return scanUser(row)
}

// GetInterpreterByUserID fetches the interpreter profile for a user
// account.
func (r *UserRepo) GetInterpreterByUserID(ctx context.Context, userID uint64) (model.Interpreter, error) {
	return r.getInterpreter(ctx, `user_id`, userID)
}

// GetInterpreterByID fetches an interpreter profile by its own id.
func (r *UserRepo) GetInterpreterByID(ctx context.Context, id uint64) (model.Interpreter, error) {
	return r.getInterpreter(ctx, `id`, id)
}

func (r *UserRepo) getInterpreter(ctx context.Context, col string, id uint64) (model.Interpreter, error) {
	var i model.Interpreter
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, address, city, state, zip_code, hourly_rate_cents, radius_of_service,
			bank_name, account_holder_name, routing_number, account_number, account_type, w9_on_file, active
		 FROM interpreters WHERE `+col+` = ?`, id)
	var rate sql.NullInt64
	var radius sql.NullInt64
	err := row.Scan(&i.ID, &i.UserID, &i.Address, &i.City, &i.State, &i.ZipCode, &rate, &radius,
		&i.BankName, &i.AccountHolderName, &i.RoutingNumber, &i.AccountNumber, &i.AccountType, &i.W9OnFile, &i.Active)
	if err == sql.ErrNoRows {
		return i, ErrUserNotFound
	}
	if err != nil {
		return i, err
	}
	if rate.Valid {
		v := rate.Int64
		i.HourlyRateCents = &v
	}
	if radius.Valid {
		v := int(radius.Int64)
		i.RadiusOfService = &v
	}
	return i, nil
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var phone sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	u.Phone = nullString(phone)
	return u, nil
}
