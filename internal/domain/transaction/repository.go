package transaction

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists transaction headers
type Repository interface {
	// Create returns ErrDuplicateIdempotencyKey when the key was already committed
	Create(ctx context.Context, txn *Transaction) error
	// GetByIdempotencyKey returns nil, nil when no transaction carries the key
	GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateIdempotencyKey indicates a concurrent or earlier commit owns the key
type ErrDuplicateIdempotencyKey struct {
	Key string
}

func (e ErrDuplicateIdempotencyKey) Error() string {
	return "idempotency key already used: " + e.Key
}
