package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bank-ledger-core/internal/domain/outbox"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxColumns = []string{"id", "transaction_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `
		INSERT INTO transaction_outbox \(transaction_id, payload, status, attempts, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5\)
		RETURNING id
	`

	newMsg := func() *outbox.Message {
		return &outbox.Message{
			TransactionID: uuid.New(),
			Payload:       json.RawMessage(`{"type":"DEPOSIT"}`),
			Status:        shared.OutboxStatusPending,
			CreatedAt:     time.Now(),
		}
	}

	t.Run("assigns id", func(t *testing.T) {
		msg := newMsg()
		mock.ExpectQuery(query).
			WithArgs(msg.TransactionID, msg.Payload, shared.OutboxStatusPending, 0, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(17)))

		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(17), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate transaction", func(t *testing.T) {
		msg := newMsg()
		mock.ExpectQuery(query).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transaction_outbox_transaction_id_key"})

		err := repo.Create(ctx, msg)
		assert.Equal(t, outbox.ErrDuplicateMessage{TransactionID: msg.TransactionID}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("disk full")
		mock.ExpectQuery(query).WillReturnError(dbErr)

		err := repo.Create(ctx, newMsg())
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `
		SELECT id, transaction_id, payload, status, attempts, created_at, last_attempt_at
		FROM transaction_outbox
		WHERE status = \$1
		ORDER BY id ASC
		LIMIT \$2
	`

	t.Run("batch", func(t *testing.T) {
		now := time.Now()
		lastAttempt := now.Add(-time.Second)
		txA, txB := uuid.New(), uuid.New()
		rows := pgxmock.NewRows(outboxColumns).
			AddRow(int64(1), txA, json.RawMessage(`{}`), shared.OutboxStatusPending, 0, now, (*time.Time)(nil)).
			AddRow(int64(2), txB, json.RawMessage(`{}`), shared.OutboxStatusPending, 2, now, &lastAttempt)
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 50).WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 50)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, txA, messages[0].TransactionID)
		assert.Nil(t, messages[0].LastAttemptAt)
		assert.Equal(t, 2, messages[1].Attempts)
		require.NotNil(t, messages[1].LastAttemptAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		dbErr := errors.New("db down")
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 50).WillReturnError(dbErr)

		messages, err := repo.GetPending(ctx, 50)
		assert.Nil(t, messages)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `
		UPDATE transaction_outbox
		SET status = \$1, last_attempt_at = \$2
		WHERE id = \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 5, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(6)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 6, shared.OutboxStatusProcessed)
		assert.Equal(t, outbox.ErrMessageNotFound{ID: 6}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `
		UPDATE transaction_outbox
		SET attempts = attempts \+ 1, last_attempt_at = \$1
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(pgxmock.AnyArg(), int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.IncrementAttempts(ctx, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("deadlock detected")
		mock.ExpectExec(query).WithArgs(pgxmock.AnyArg(), int64(5)).WillReturnError(dbErr)

		err := repo.IncrementAttempts(ctx, 5)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetByTransactionID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `
		SELECT id, transaction_id, payload, status, attempts, created_at, last_attempt_at
		FROM transaction_outbox
		WHERE transaction_id = \$1
	`
	txID := uuid.New()

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows(outboxColumns).
			AddRow(int64(3), txID, json.RawMessage(`{}`), shared.OutboxStatusProcessed, 1, time.Now(), (*time.Time)(nil))
		mock.ExpectQuery(query).WithArgs(txID).WillReturnRows(rows)

		msg, err := repo.GetByTransactionID(ctx, txID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), msg.ID)
		assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(txID).WillReturnError(pgx.ErrNoRows)

		msg, err := repo.GetByTransactionID(ctx, txID)
		assert.Nil(t, msg)
		assert.ErrorAs(t, err, &outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_WithTx(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := &OutboxRepository{querier: mockPool, logger: newTestLogger()}

	mockPool.ExpectBegin()
	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := repo.WithTx(tx)
	assert.IsType(t, &OutboxRepository{}, txRepo)
	assert.Equal(t, tx, txRepo.(*OutboxRepository).querier)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
