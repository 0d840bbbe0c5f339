package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryKind tags the operation side that produced an entry. It is informational
// only, the balance is computed from the signed amount alone.
type EntryKind string

const (
	EntryKindDeposit  EntryKind = "deposit"
	EntryKindWithdraw EntryKind = "withdraw"
)

var ErrZeroAmount = errors.New("ledger entry amount cannot be zero")

// Entry is one immutable signed movement against one account.
// Positive amounts are credits, negative amounts are debits.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"`
	Kind          EntryKind `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEntry builds an entry with the amount already signed by the caller
func NewEntry(transactionID, accountID uuid.UUID, amount int64, kind EntryKind) (*Entry, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate entry id: %w", err)
	}

	return &Entry{
		ID:            id,
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		Kind:          kind,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewCredit records +amount for a deposit or the receiving side of a transfer
func NewCredit(transactionID, accountID uuid.UUID, amount int64) (*Entry, error) {
	return NewEntry(transactionID, accountID, amount, EntryKindDeposit)
}

// NewDebit records -amount for a withdrawal or the sending side of a transfer
func NewDebit(transactionID, accountID uuid.UUID, amount int64) (*Entry, error) {
	return NewEntry(transactionID, accountID, -amount, EntryKindWithdraw)
}
