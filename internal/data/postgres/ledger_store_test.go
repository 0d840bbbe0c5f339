package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerStore_Append(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &LedgerStore{querier: mock, logger: newTestLogger()}
	entry, err := ledger.NewDebit(uuid.New(), uuid.New(), 75)
	require.NoError(t, err)

	query := `
		INSERT INTO ledger_entries \(id, transaction_id, account_id, amount, kind, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.TransactionID, entry.AccountID, int64(-75), ledger.EntryKindWithdraw, entry.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, store.Append(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("check constraint violated")
		mock.ExpectExec(query).
			WithArgs(entry.ID, entry.TransactionID, entry.AccountID, int64(-75), ledger.EntryKindWithdraw, entry.CreatedAt).
			WillReturnError(dbErr)

		err := store.Append(ctx, entry)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to append ledger entry")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerStore_Balance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &LedgerStore{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	query := `
		SELECT COALESCE\(SUM\(amount\), 0\)::BIGINT
		FROM ledger_entries
		WHERE account_id = \$1
	`

	t.Run("no entries is zero", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0)))

		balance, err := store.Balance(ctx, accountID)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sum of entries", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accountID).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(75)))

		balance, err := store.Balance(ctx, accountID)
		assert.NoError(t, err)
		assert.Equal(t, int64(75), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("canceling statement due to user request")
		mock.ExpectQuery(query).WithArgs(accountID).WillReturnError(dbErr)

		_, err := store.Balance(ctx, accountID)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerStore_WithTx(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	store := &LedgerStore{querier: mockPool, logger: newTestLogger()}

	mockPool.ExpectBegin()
	tx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txStore := store.WithTx(tx)
	assert.Equal(t, tx, txStore.(*LedgerStore).querier)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
