package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/roles"
	"github.com/openshelf/critique/pkg/storage/postgres"
)

// Store handles account persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new account store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const accountColumns = `id, username, email, first_name, last_name, bio, role, is_superuser, last_login_at, created_at, updated_at`

// rowScanner lets scanAccount work with both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	var firstName, lastName, bio sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&firstName,
		&lastName,
		&bio,
		&a.Role,
		&a.Superuser,
		&lastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.FirstName = firstName.String
	a.LastName = lastName.String
	a.Bio = bio.String
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

// Create inserts a new account. A uniqueness failure on username or email is
// reported as a validation error.
func (s *Store) Create(ctx context.Context, a *Account) error {
	if a.Role == "" {
		a.Role = roles.RoleUser
	}

	query := `
		INSERT INTO users (username, email, first_name, last_name, bio, role, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		a.Username,
		a.Email,
		a.FirstName,
		a.LastName,
		a.Bio,
		a.Role,
		a.Superuser,
		now,
		now,
	).Scan(&a.ID)

	if postgres.IsUniqueViolation(err) {
		return httputil.NewValidationError("username or email already in use")
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetByID retrieves an account by id
func (s *Store) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %d: %w", id, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetByUsername retrieves an account by username
func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE username = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %q: %w", username, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// CheckIdentityConflict fails with a validation error when the email is
// already bound to a different username, or the username to a different
// email. This closes the silent-hijack path where a code re-request would
// attach someone else's address to an existing account.
func (s *Store) CheckIdentityConflict(ctx context.Context, username, email string) error {
	var emailTaken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND username <> $2)`,
		email, username,
	).Scan(&emailTaken)
	if err != nil {
		return fmt.Errorf("failed to check email binding: %w", err)
	}
	if emailTaken {
		return httputil.NewValidationError("email already in use by another account")
	}

	var usernameTaken bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND email <> $2)`,
		username, email,
	).Scan(&usernameTaken)
	if err != nil {
		return fmt.Errorf("failed to check username binding: %w", err)
	}
	if usernameTaken {
		return httputil.NewValidationError("username already in use by another account")
	}
	return nil
}

// FindOrCreate atomically returns the account for a (username, email) pair,
// creating it with the default role when absent. A single upsert statement
// keeps concurrent sign-in requests from racing a lookup against an insert.
func (s *Store) FindOrCreate(ctx context.Context, username, email string) (*Account, error) {
	query := `
		INSERT INTO users (username, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (username) DO UPDATE SET updated_at = users.updated_at
		RETURNING ` + accountColumns

	now := time.Now().UTC()
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, username, email, roles.RoleUser, now))
	if postgres.IsUniqueViolation(err) {
		// The insert lost a race on the email column instead; the identity
		// conflict check reports it the same way as the pre-check path.
		return nil, httputil.NewValidationError("email already in use by another account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find or create account: %w", err)
	}
	return a, nil
}

// List returns a page of accounts plus the unpaginated total. A non-empty
// search term matches usernames exactly.
func (s *Store) List(ctx context.Context, search string, limit, offset int) ([]*Account, int, error) {
	where := ""
	countArgs := []interface{}{}
	pageArgs := []interface{}{}
	if search != "" {
		where = ` WHERE username = $1`
		countArgs = append(countArgs, search)
		pageArgs = append(pageArgs, search, limit, offset)
	} else {
		pageArgs = append(pageArgs, limit, offset)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM users` + where + ` ORDER BY username`
	if search != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Update applies a partial update to the account with the given username and
// returns the updated record.
func (s *Store) Update(ctx context.Context, username string, p *Patch) (*Account, error) {
	a, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if p.Email != nil {
		if err := ValidateEmail(*p.Email); err != nil {
			return nil, err
		}
		a.Email = *p.Email
	}
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Bio != nil {
		a.Bio = *p.Bio
	}
	if p.Role != nil {
		if err := ValidateRole(*p.Role); err != nil {
			return nil, err
		}
		a.Role = *p.Role
	}

	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, bio = $4, role = $5, updated_at = $6
		WHERE username = $7
	`

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, query, a.Email, a.FirstName, a.LastName, a.Bio, a.Role, now, username)
	if postgres.IsUniqueViolation(err) {
		return nil, httputil.NewValidationError("email already in use by another account")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	a.UpdatedAt = now
	return a, nil
}

// Delete removes the account with the given username
func (s *Store) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", username, httputil.ErrNotFound)
	}
	return nil
}

// TouchLastLogin records a successful sign-in. Besides bookkeeping, this
// mutates the state confirmation codes are derived from, so a used code
// cannot be replayed.
func (s *Store) TouchLastLogin(ctx context.Context, id int64, when time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`,
		when.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// EnsureAdmin creates or promotes the bootstrap admin account
func (s *Store) EnsureAdmin(ctx context.Context, username, email string) (*Account, error) {
	query := `
		INSERT INTO users (username, email, role, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (username) DO UPDATE SET role = $3, is_superuser = TRUE, updated_at = $4
		RETURNING ` + accountColumns

	now := time.Now().UTC()
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, username, email, roles.RoleAdmin, now))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure admin account: %w", err)
	}
	return a, nil
}

// ResolveAccount loads the current identity snapshot for an account id. Used
// by the auth middleware so role changes take effect on the next request, not
// at token expiry.
func (s *Store) ResolveAccount(ctx context.Context, id int64) (*roles.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Snapshot(), nil
}
