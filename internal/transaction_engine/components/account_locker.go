package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/transaction_engine/service"
	"github.com/jackc/pgx/v5"
)

// AccountLockerImpl implements the AccountLocker interface
type AccountLockerImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountLocker creates a new AccountLockerImpl
func NewAccountLocker(accountRepo account.Repository, logger *slog.Logger) service.AccountLocker {
	return &AccountLockerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LockAccounts row-locks every distinct account in ascending number order. Two
// operations over the same pair of accounts therefore queue instead of deadlocking.
// The locks are held until tx ends.
func (l *AccountLockerImpl) LockAccounts(ctx context.Context, tx pgx.Tx, accounts ...*account.Account) ([]*account.Account, error) {
	accountRepoTx := l.accountRepo.WithTx(tx)

	ordered := account.LockOrder(accounts...)
	locked := make([]*account.Account, 0, len(ordered))
	for _, acc := range ordered {
		lockedAccount, err := accountRepoTx.LockForUpdate(ctx, acc.ID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				l.logger.Warn("Account not found for lock", "acc_id", acc.ID.String(), "number", acc.Number)
				return nil, account.ErrAccountNotFound{Number: acc.Number}
			}
			return nil, fmt.Errorf("failed to lock account %d: %w", acc.Number, err)
		}
		locked = append(locked, lockedAccount)
	}

	l.logger.Debug("Accounts locked", "count", len(locked))
	return locked, nil
}
