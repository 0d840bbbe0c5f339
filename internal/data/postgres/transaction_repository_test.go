package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertTransactionQuery = `
		INSERT INTO transactions \(id, type, amount, origin_account_id, destination_account_id, idempotency_key, correlation_id, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)
	`

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	origin := &transaction.AccountRef{ID: uuid.New(), Number: 1}
	destination := &transaction.AccountRef{ID: uuid.New(), Number: 2}

	transfer := &transaction.Transaction{
		ID:             uuid.New(),
		Type:           shared.TransactionTypeTransfer,
		Amount:         25,
		Origin:         origin,
		Destination:    destination,
		IdempotencyKey: "transfer-25",
		CorrelationID:  "corr-1",
		CreatedAt:      time.Now(),
	}

	t.Run("transfer", func(t *testing.T) {
		key := "transfer-25"
		mock.ExpectExec(insertTransactionQuery).
			WithArgs(transfer.ID, shared.TransactionTypeTransfer, int64(25), &origin.ID, &destination.ID, &key, "corr-1", transfer.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, transfer))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deposit without key stores nulls", func(t *testing.T) {
		deposit := &transaction.Transaction{
			ID:          uuid.New(),
			Type:        shared.TransactionTypeDeposit,
			Amount:      100,
			Destination: destination,
			CreatedAt:   time.Now(),
		}
		mock.ExpectExec(insertTransactionQuery).
			WithArgs(deposit.ID, shared.TransactionTypeDeposit, int64(100), (*uuid.UUID)(nil), &destination.ID, (*string)(nil), "", deposit.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, deposit))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		mock.ExpectExec(insertTransactionQuery).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_idempotency_key_key"})

		err := repo.Create(ctx, transfer)
		var dupErr transaction.ErrDuplicateIdempotencyKey
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "transfer-25", dupErr.Key)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other unique violation is a plain failure", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "transactions_pkey"}
		mock.ExpectExec(insertTransactionQuery).WillReturnError(pgErr)

		err := repo.Create(ctx, transfer)
		assert.ErrorIs(t, err, pgErr)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	query := `
		SELECT t.id, t.type, t.amount,
			t.origin_account_id, o.number,
			t.destination_account_id, d.number,
			t.idempotency_key, t.correlation_id, t.created_at
		FROM transactions t
		LEFT JOIN accounts o ON o.id = t.origin_account_id
		LEFT JOIN accounts d ON d.id = t.destination_account_id
		WHERE t.idempotency_key = \$1
	`
	columns := []string{"id", "type", "amount", "origin_account_id", "number", "destination_account_id", "number", "idempotency_key", "correlation_id", "created_at"}

	t.Run("found withdraw", func(t *testing.T) {
		txID := uuid.New()
		originID := uuid.New()
		originNumber := int64(7)
		key := "withdraw-1"
		createdAt := time.Now()

		rows := pgxmock.NewRows(columns).AddRow(
			txID, shared.TransactionTypeWithdraw, int64(40),
			&originID, &originNumber,
			(*uuid.UUID)(nil), (*int64)(nil),
			&key, "corr-9", createdAt,
		)
		mock.ExpectQuery(query).WithArgs(key).WillReturnRows(rows)

		txn, err := repo.GetByIdempotencyKey(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, txID, txn.ID)
		assert.Equal(t, shared.TransactionTypeWithdraw, txn.Type)
		assert.Equal(t, int64(40), txn.Amount)
		assert.Equal(t, &transaction.AccountRef{ID: originID, Number: 7}, txn.Origin)
		assert.Nil(t, txn.Destination)
		assert.Equal(t, key, txn.IdempotencyKey)
		assert.Equal(t, "corr-9", txn.CorrelationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing key yields nil", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("unknown").WillReturnError(pgx.ErrNoRows)

		txn, err := repo.GetByIdempotencyKey(ctx, "unknown")
		assert.NoError(t, err)
		assert.Nil(t, txn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty key rejected", func(t *testing.T) {
		txn, err := repo.GetByIdempotencyKey(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, txn)
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("connection closed")
		mock.ExpectQuery(query).WithArgs("k").WillReturnError(dbErr)

		txn, err := repo.GetByIdempotencyKey(ctx, "k")
		assert.Nil(t, txn)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
