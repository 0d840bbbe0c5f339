package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerStore implements ledger.Store over the ledger_entries table
type LedgerStore struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerStore creates a new PostgreSQL ledger store
func NewLedgerStore(logger *slog.Logger, db *persistence.PostgresDB) ledger.Store {
	return &LedgerStore{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (s *LedgerStore) WithTx(tx pgx.Tx) ledger.Store {
	return &LedgerStore{
		querier: tx,
		logger:  s.logger,
	}
}

// Append inserts one entry. The amount sign is the caller's responsibility.
func (s *LedgerStore) Append(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, account_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.querier.Exec(ctx, query,
		entry.ID,
		entry.TransactionID,
		entry.AccountID,
		entry.Amount,
		entry.Kind,
		entry.CreatedAt,
	)
	if err != nil {
		s.logger.Error("Failed to append ledger entry",
			"transaction_id", entry.TransactionID.String(),
			"account_id", entry.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// Balance sums the account's entries. COALESCE turns the empty aggregate into 0.
func (s *LedgerStore) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM ledger_entries
		WHERE account_id = $1
	`

	var balance int64
	if err := s.querier.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		s.logger.Error("Failed to compute balance", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}

	return balance, nil
}
