package account

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidNumber = errors.New("account number must be positive")

// Account is an immutable ledger account. Balance is never stored here; it is
// always derived from ledger entries.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Number    int64     `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccount creates an account with a time-ordered id for the given number
func NewAccount(number int64) (*Account, error) {
	if number <= 0 {
		return nil, ErrInvalidNumber
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account id: %w", err)
	}

	return &Account{
		ID:        id,
		Number:    number,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NextNumber returns the number following the highest assigned one (0 when none exist)
func NextNumber(latest int64) int64 {
	if latest < 0 {
		latest = 0
	}
	return latest + 1
}

// LockOrder returns the distinct accounts sorted by ascending number. Row locks
// taken in this order cannot deadlock against each other.
func LockOrder(accounts ...*Account) []*Account {
	seen := make(map[uuid.UUID]struct{}, len(accounts))
	ordered := make([]*Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		if _, dup := seen[acc.ID]; dup {
			continue
		}
		seen[acc.ID] = struct{}{}
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})
	return ordered
}
