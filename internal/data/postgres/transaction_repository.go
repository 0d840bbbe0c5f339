package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const idempotencyKeyConstraint = "transactions_idempotency_key_key"

// TransactionRepository implements transaction.Repository for the transactions header table
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the header row. Inside a transaction a competing insert with the
// same idempotency key blocks until the other side commits or rolls back.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, type, amount, origin_account_id, destination_account_id, idempotency_key, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.Type,
		txn.Amount,
		refID(txn.Origin),
		refID(txn.Destination),
		nullIfEmpty(txn.IdempotencyKey),
		txn.CorrelationID,
		txn.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyConstraint) {
			r.logger.Info("Idempotency key already committed", "idempotency_key", txn.IdempotencyKey)
			return transaction.ErrDuplicateIdempotencyKey{Key: txn.IdempotencyKey}
		}
		r.logger.Error("Failed to create transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByIdempotencyKey returns the committed transaction for key, or nil when there is none
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	if key == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	query := `
		SELECT t.id, t.type, t.amount,
			t.origin_account_id, o.number,
			t.destination_account_id, d.number,
			t.idempotency_key, t.correlation_id, t.created_at
		FROM transactions t
		LEFT JOIN accounts o ON o.id = t.origin_account_id
		LEFT JOIN accounts d ON d.id = t.destination_account_id
		WHERE t.idempotency_key = $1
	`

	var (
		txn                          transaction.Transaction
		originID, destinationID      *uuid.UUID
		originNumber, destinationNum *int64
		storedKey                    *string
	)
	err := r.querier.QueryRow(ctx, query, key).Scan(
		&txn.ID,
		&txn.Type,
		&txn.Amount,
		&originID,
		&originNumber,
		&destinationID,
		&destinationNum,
		&storedKey,
		&txn.CorrelationID,
		&txn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}

	txn.Origin = toRef(originID, originNumber)
	txn.Destination = toRef(destinationID, destinationNum)
	if storedKey != nil {
		txn.IdempotencyKey = *storedKey
	}

	return &txn, nil
}

func refID(ref *transaction.AccountRef) *uuid.UUID {
	if ref == nil {
		return nil
	}
	id := ref.ID
	return &id
}

func toRef(id *uuid.UUID, number *int64) *transaction.AccountRef {
	if id == nil {
		return nil
	}
	ref := &transaction.AccountRef{ID: *id}
	if number != nil {
		ref.Number = *number
	}
	return ref
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
