package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists journal records keyed by transaction id
type Repository interface {
	// Upsert writes the record, replacing any earlier copy for the same transaction
	Upsert(ctx context.Context, record *Record) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Record, error)
}

// ErrRecordNotFound indicates missing journal record
type ErrRecordNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "journal record not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	// An empty target TransactionID matches any ErrRecordNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
