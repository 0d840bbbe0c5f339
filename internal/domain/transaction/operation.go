package transaction

import (
	"fmt"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/google/uuid"
)

// Operation is one of Deposit, Withdraw or Transfer. The set is closed: the
// unexported marker keeps other packages from adding variants.
type Operation interface {
	Type() shared.TransactionType
	isOperation()
}

// Deposit credits the destination account. Amounts are positive minor units.
type Deposit struct {
	Amount      int64
	Destination *account.Account
}

// Withdraw debits the origin account
type Withdraw struct {
	Amount int64
	Origin *account.Account
}

// Transfer debits origin and credits destination in one atomic unit
type Transfer struct {
	Amount      int64
	Origin      *account.Account
	Destination *account.Account
}

func (Deposit) Type() shared.TransactionType  { return shared.TransactionTypeDeposit }
func (Withdraw) Type() shared.TransactionType { return shared.TransactionTypeWithdraw }
func (Transfer) Type() shared.TransactionType { return shared.TransactionTypeTransfer }

func (Deposit) isOperation()  {}
func (Withdraw) isOperation() {}
func (Transfer) isOperation() {}

// Parts returns the amount and the accounts touched by op. Absent sides are nil.
func Parts(op Operation) (amount int64, origin, destination *account.Account) {
	switch o := op.(type) {
	case Deposit:
		return o.Amount, nil, o.Destination
	case Withdraw:
		return o.Amount, o.Origin, nil
	case Transfer:
		return o.Amount, o.Origin, o.Destination
	default:
		panic(fmt.Sprintf("transaction: unknown operation %T", op))
	}
}

// Request is an operation plus the metadata that travels with it
type Request struct {
	ID             uuid.UUID
	Operation      Operation
	IdempotencyKey string
	CorrelationID  string
}

// NewRequest assigns a fresh time-ordered transaction id
func NewRequest(op Operation, idempotencyKey, correlationID string) (*Request, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return &Request{
		ID:             id,
		Operation:      op,
		IdempotencyKey: idempotencyKey,
		CorrelationID:  correlationID,
	}, nil
}
