// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a caller's transaction with WithTx, which is
// how the engine groups several statements into one atomic scope.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// accountNumberingLockKey is the advisory lock serializing number assignment
	accountNumberingLockKey int64 = 0x4c45444745520001

	accountNumberConstraint = "accounts_number_key"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be the pool or a pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// LockNumbering takes a transaction-scoped advisory lock. Concurrent creators
// queue here, so the max-number read that follows is never stale.
func (r *AccountRepository) LockNumbering(ctx context.Context) error {
	query := `SELECT pg_advisory_xact_lock($1)`

	if _, err := r.querier.Exec(ctx, query, accountNumberingLockKey); err != nil {
		r.logger.Error("Failed to acquire account numbering lock", "error", err)
		return fmt.Errorf("failed to acquire account numbering lock: %w", err)
	}
	return nil
}

// LatestNumber returns the highest assigned account number, 0 for an empty table
func (r *AccountRepository) LatestNumber(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(MAX(number), 0) FROM accounts`

	var latest int64
	if err := r.querier.QueryRow(ctx, query).Scan(&latest); err != nil {
		r.logger.Error("Failed to read latest account number", "error", err)
		return 0, fmt.Errorf("failed to read latest account number: %w", err)
	}
	return latest, nil
}

// Create stores a new account. A number collision returns ErrDuplicateNumber.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, number, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.querier.Exec(ctx, query, acc.ID, acc.Number, acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, accountNumberConstraint) {
			r.logger.Warn("Account number already assigned", "number", acc.Number)
			return account.ErrDuplicateNumber{Number: acc.Number}
		}
		r.logger.Error("Failed to create account", "number", acc.Number, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, number, created_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(&acc.ID, &acc.Number, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// GetByNumber retrieves an account by its external number
func (r *AccountRepository) GetByNumber(ctx context.Context, number int64) (*account.Account, error) {
	query := `
		SELECT id, number, created_at
		FROM accounts
		WHERE number = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, number).Scan(&acc.ID, &acc.Number, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{Number: number}
		}
		r.logger.Error("Failed to get account by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}

	return &acc, nil
}

// List returns every account ordered by number
func (r *AccountRepository) List(ctx context.Context) ([]*account.Account, error) {
	query := `
		SELECT id, number, created_at
		FROM accounts
		ORDER BY number ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		var acc account.Account
		if err := rows.Scan(&acc.ID, &acc.Number, &acc.CreatedAt); err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// LockForUpdate obtains a row lock on the account that is held until the
// surrounding transaction ends. Only meaningful on a repository bound with WithTx.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, number, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(&acc.ID, &acc.Number, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return &acc, nil
}
