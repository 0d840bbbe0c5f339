package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AccountRegistryImpl implements the AccountRegistry interface
type AccountRegistryImpl struct {
	transactor  persistence.Transactor
	accountRepo account.Repository
	ledger      ledger.Store
	cache       account.Cache // optional
	logger      *slog.Logger
}

// NewAccountRegistry creates a new account registry. cache may be nil.
func NewAccountRegistry(
	logger *slog.Logger,
	transactor persistence.Transactor,
	accountRepo account.Repository,
	ledgerStore ledger.Store,
	cache account.Cache,
) *AccountRegistryImpl {
	return &AccountRegistryImpl{
		transactor:  transactor,
		accountRepo: accountRepo,
		ledger:      ledgerStore,
		cache:       cache,
		logger:      logger,
	}
}

// CreateAccount reads the latest number and inserts its successor under the
// numbering lock, so concurrent calls never hand out the same number
func (r *AccountRegistryImpl) CreateAccount(ctx context.Context) (*account.Account, error) {
	var created *account.Account
	err := r.transactor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := r.accountRepo.WithTx(tx)

		if err := repo.LockNumbering(ctx); err != nil {
			return err
		}
		latest, err := repo.LatestNumber(ctx)
		if err != nil {
			return err
		}

		acc, err := account.NewAccount(account.NextNumber(latest))
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, acc); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return nil, shared.NewError(shared.KindStorage, "account could not be created")
	}

	r.logger.Info("Account created", "acc_id", created.ID.String(), "number", created.Number)
	r.cacheSet(ctx, created)
	return created, nil
}

// GetAccount checks the cache before the database. Accounts never change, so a
// cached copy is always current.
func (r *AccountRegistryImpl) GetAccount(ctx context.Context, number int64) (*account.Account, error) {
	if number <= 0 {
		return nil, shared.NewError(shared.KindNotFound, "account %d not found", number)
	}

	if r.cache != nil {
		if acc, ok := r.cache.Get(ctx, number); ok {
			return acc, nil
		}
	}

	acc, err := r.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, shared.NewError(shared.KindNotFound, "account %d not found", number)
		}
		return nil, shared.NewError(shared.KindStorage, "storage unavailable, account %d could not be read", number)
	}

	r.cacheSet(ctx, acc)
	return acc, nil
}

func (r *AccountRegistryImpl) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	accounts, err := r.accountRepo.List(ctx)
	if err != nil {
		return nil, shared.NewError(shared.KindStorage, "storage unavailable, accounts could not be listed")
	}
	return accounts, nil
}

func (r *AccountRegistryImpl) GetBalance(ctx context.Context, number int64) (int64, error) {
	acc, err := r.GetAccount(ctx, number)
	if err != nil {
		return 0, err
	}

	balance, err := r.ledger.Balance(ctx, acc.ID)
	if err != nil {
		return 0, shared.NewError(shared.KindStorage, "storage unavailable, balance of account %d could not be read", number)
	}
	return balance, nil
}

func (r *AccountRegistryImpl) cacheSet(ctx context.Context, acc *account.Account) {
	if r.cache != nil {
		r.cache.Set(ctx, acc)
	}
}
