package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/weatherly/internal/apperror"
	"github.com/sakif/weatherly/internal/model"
	"github.com/sakif/weatherly/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

// CreateAccount inserts a new account and fills in its ID and CreatedAt.
//
// WHY NOT CHECK-THEN-INSERT?
// A SELECT followed by an INSERT leaves a gap where a second registration for
// the same name could slip in. The UNIQUE constraint on users.username closes
// that gap: we just INSERT and translate the constraint failure into
// apperror.UsernameTaken. The existing row is never touched.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	if !account.Role.Valid() {
		return fmt.Errorf("sqlite: creating account %q: invalid role %q", account.Username, account.Role)
	}

	now := db.now()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, password, role, created_at) VALUES (?, ?, ?, ?)`,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		now.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UsernameTaken()
		}
		return fmt.Errorf("sqlite: inserting account %q: %w", account.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading id of account %q: %w", account.Username, err)
	}
	account.ID = id
	account.CreatedAt = now
	return nil
}

// VerifyAccount returns the role of the account whose username AND stored
// hash both match exactly. Anything else is apperror.ErrNotFound; callers turn
// that into a generic "invalid credentials" so the two cases look the same.
func (db *DB) VerifyAccount(ctx context.Context, username, passwordHash string) (model.Role, error) {
	var role string
	err := db.conn.QueryRowContext(ctx,
		`SELECT role FROM users WHERE username = ? AND password = ?`,
		username, passwordHash,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("account", username)
		}
		return "", fmt.Errorf("sqlite: verifying account %q: %w", username, err)
	}

	parsed, err := model.ParseRole(role)
	if err != nil {
		return "", fmt.Errorf("sqlite: verifying account %q: %w", username, err)
	}
	return parsed, nil
}

// GetAccount retrieves an account, including its stored hash, by username.
// Returns apperror.ErrNotFound if no account has that name.
func (db *DB) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password, role, created_at FROM users WHERE username = ?`,
		username,
	)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", username)
		}
		return nil, fmt.Errorf("sqlite: getting account %q: %w", username, err)
	}
	return a, nil
}

// ListAccounts returns every account in registration order. Hashes are left
// blank; nothing that lists accounts needs them.
func (db *DB) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, '', role, created_at FROM users ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}
	return accounts, nil
}

// CountAccounts returns the number of registered accounts, admins included.
func (db *DB) CountAccounts(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting accounts: %w", err)
	}
	return n, nil
}

// DeleteAccount removes an account by username. Search logs written by that
// account are kept; they are history, not account data.
// Returns apperror.ErrNotFound if no account has that name.
func (db *DB) DeleteAccount(ctx context.Context, username string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %q: %w", username, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account", username)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (*model.Account, error) {
	var (
		a         model.Account
		role      string
		createdAt string
	)
	if err := s.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &createdAt); err != nil {
		return nil, err
	}

	parsed, err := model.ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = parsed
	a.CreatedAt = parseTimestamp(createdAt)
	return &a, nil
}
