package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store is the append-only ledger. Neither method opens a transaction of its own;
// bind the store to the caller's scope with WithTx.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	// Balance sums every entry of the account and is 0 when there are none
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Store
}
