package service

import (
	"context"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/jackc/pgx/v5"
)

// Engine executes deposit, withdraw and transfer operations, each as one atomic scope.
// Every returned error is a *shared.Error.
type Engine interface {
	Submit(ctx context.Context, request *transaction.Request) (*transaction.Result, error)
}

// TransactionValidator checks the preconditions that need no storage access
type TransactionValidator interface {
	Validate(ctx context.Context, request *transaction.Request) error
}

// AccountLocker takes row locks on the accounts an operation debits
type AccountLocker interface {
	LockAccounts(ctx context.Context, tx pgx.Tx, accounts ...*account.Account) ([]*account.Account, error)
}

// OutboxManager writes the committed-transaction event inside the operation's scope
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) error
}

// FailureRecorder journals rejected operations. It is best-effort.
type FailureRecorder interface {
	RecordRejection(ctx context.Context, request *transaction.Request, cause *shared.Error) error
}
