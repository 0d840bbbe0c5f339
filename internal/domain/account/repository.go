package account

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	// LockNumbering serializes number assignment until the surrounding transaction ends
	LockNumbering(ctx context.Context) error
	// LatestNumber returns the highest assigned number, 0 when there are no accounts
	LatestNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByNumber(ctx context.Context, number int64) (*Account, error)
	List(ctx context.Context) ([]*Account, error)

	// LockForUpdate acquires a row lock held until the surrounding transaction ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// Cache keeps immutable accounts by number. Implementations swallow their own
// failures, a miss is always safe.
type Cache interface {
	Get(ctx context.Context, number int64) (*Account, bool)
	Set(ctx context.Context, account *Account)
}

// ErrAccountNotFound indicates missing account. Either AccountID or Number identifies it.
type ErrAccountNotFound struct {
	AccountID uuid.UUID
	Number    int64
}

func (e ErrAccountNotFound) Error() string {
	if e.Number != 0 {
		return "account not found: number " + strconv.FormatInt(e.Number, 10)
	}
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no identifiers
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil && t.Number == 0 {
		return true
	}
	return e.AccountID == t.AccountID && e.Number == t.Number
}

// ErrDuplicateNumber indicates the account number uniqueness backstop fired
type ErrDuplicateNumber struct {
	Number int64
}

func (e ErrDuplicateNumber) Error() string {
	return "account number already assigned: " + strconv.FormatInt(e.Number, 10)
}
