package service

import (
	"context"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/google/uuid"
)

// AccountRegistry creates and looks up accounts. Every error it returns is a *shared.Error.
type AccountRegistry interface {
	// CreateAccount assigns the next free account number
	CreateAccount(ctx context.Context) (*account.Account, error)

	// GetAccount returns the account with the given number, or a NotFound error
	GetAccount(ctx context.Context, number int64) (*account.Account, error)

	// ListAccounts returns all accounts ordered by number
	ListAccounts(ctx context.Context) ([]*account.Account, error)

	// GetBalance derives the balance of an account from its ledger entries
	GetBalance(ctx context.Context, number int64) (int64, error)
}

// SubmitCommand is an operation as it arrives from a caller, with accounts
// still identified by number
type SubmitCommand struct {
	Type              shared.TransactionType
	Amount            int64
	OriginNumber      *int64
	DestinationNumber *int64
	IdempotencyKey    string
	CorrelationID     string
}

// TransactionService runs operations synchronously through the engine
type TransactionService interface {
	// Submit resolves the accounts and returns the committed result or a *shared.Error
	Submit(ctx context.Context, cmd *SubmitCommand) (*transaction.Result, error)

	// GetTransaction returns the journaled outcome of a transaction
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (*journal.Record, error)
}
