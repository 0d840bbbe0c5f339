package transaction

import (
	"time"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountRef identifies one side of a transaction
type AccountRef struct {
	ID     uuid.UUID `json:"id"`
	Number int64     `json:"number"`
}

func refOf(acc *account.Account) *AccountRef {
	if acc == nil {
		return nil
	}
	return &AccountRef{ID: acc.ID, Number: acc.Number}
}

// Transaction is the header row written once per committed operation. Its
// ledger entries reference it by ID.
type Transaction struct {
	ID             uuid.UUID              `json:"id"`
	Type           shared.TransactionType `json:"type"`
	Amount         int64                  `json:"amount"`
	Origin         *AccountRef            `json:"origin,omitempty"`
	Destination    *AccountRef            `json:"destination,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	CorrelationID  string                 `json:"correlation_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// FromRequest builds the header for a validated request
func FromRequest(req *Request) *Transaction {
	amount, origin, destination := Parts(req.Operation)
	return &Transaction{
		ID:             req.ID,
		Type:           req.Operation.Type(),
		Amount:         amount,
		Origin:         refOf(origin),
		Destination:    refOf(destination),
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  req.CorrelationID,
		CreatedAt:      time.Now().UTC(),
	}
}

// Matches reports whether op describes the same movement as the stored header.
// A reused idempotency key must carry an identical operation.
func (t *Transaction) Matches(op Operation) bool {
	amount, origin, destination := Parts(op)
	return t.Type == op.Type() &&
		t.Amount == amount &&
		sameRef(t.Origin, origin) &&
		sameRef(t.Destination, destination)
}

func sameRef(ref *AccountRef, acc *account.Account) bool {
	if ref == nil || acc == nil {
		return ref == nil && acc == nil
	}
	return ref.ID == acc.ID
}

// Event converts the committed header into its published form
func (t *Transaction) Event() *shared.TransactionEvent {
	event := &shared.TransactionEvent{
		TransactionID:  t.ID,
		Type:           t.Type,
		Amount:         t.Amount,
		IdempotencyKey: t.IdempotencyKey,
		CorrelationID:  t.CorrelationID,
		CommittedAt:    t.CreatedAt,
	}
	if t.Origin != nil {
		id, number := t.Origin.ID, t.Origin.Number
		event.OriginAccountID = &id
		event.OriginNumber = &number
	}
	if t.Destination != nil {
		id, number := t.Destination.ID, t.Destination.Number
		event.DestinationAccountID = &id
		event.DestinationNumber = &number
	}
	return event
}

// Result is what the engine returns for a committed operation
type Result struct {
	Transaction *Transaction
	State       shared.OperationState
	// Replayed is set when an earlier commit with the same idempotency key was returned
	Replayed bool
}
