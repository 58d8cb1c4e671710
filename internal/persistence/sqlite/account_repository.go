package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository using SQLite
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates an account repository on q.
func NewAccountRepository(q Queryable) *AccountRepository {
	return &AccountRepository{q: q}
}

const accountColumns = `id, email, display_name, role, password_hash, disabled, created_at, updated_at`

// CreateAccount inserts a new account. Emails are unique case-insensitively.
func (r *AccountRepository) CreateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" || strings.TrimSpace(account.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.DisplayName,
		account.Role,
		account.PasswordHash,
		boolToInt(account.Disabled),
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAccount updates mutable account fields.
func (r *AccountRepository) UpdateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" {
		return persistence.ErrConstraintViolation
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET email = ?, display_name = ?, role = ?, password_hash = ?, disabled = ?, updated_at = ?
		WHERE id = ?`,
		account.Email,
		account.DisplayName,
		account.Role,
		account.PasswordHash,
		boolToInt(account.Disabled),
		formatTime(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if err != nil {
		return persistence.Account{}, mapError(err)
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, strings.TrimSpace(email))
	account, err := scanAccount(row)
	if err != nil {
		return persistence.Account{}, mapError(err)
	}
	return account, nil
}

// ListAccounts returns all accounts ordered by creation time.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]persistence.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	accounts := make([]persistence.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (persistence.Account, error) {
	var (
		account                    persistence.Account
		disabled                   int
		createdAtStr, updatedAtStr string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.Role,
		&account.PasswordHash,
		&disabled,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Account{}, err
	}
	account.Disabled = disabled != 0

	var err error
	if account.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Account{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if account.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Account{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return account, nil
}
