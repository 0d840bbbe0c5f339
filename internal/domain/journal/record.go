package journal

import (
	"time"

	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/google/uuid"
)

// Record is the per-transaction outcome kept in the journal: committed
// transactions arrive from the event stream, rejected ones from the engine.
type Record struct {
	TransactionID     uuid.UUID                `json:"transaction_id" bson:"transaction_id"`
	Type              shared.TransactionType   `json:"type" bson:"type"`
	Amount            int64                    `json:"amount" bson:"amount"`
	OriginNumber      *int64                   `json:"origin_number,omitempty" bson:"origin_number,omitempty"`
	DestinationNumber *int64                   `json:"destination_number,omitempty" bson:"destination_number,omitempty"`
	Status            shared.TransactionStatus `json:"status" bson:"status"`
	FailureReason     string                   `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	IdempotencyKey    string                   `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CorrelationID     string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt         time.Time                `json:"created_at" bson:"created_at"`
	ProcessedAt       *time.Time               `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// FromEvent builds the COMMITTED record for a published transaction event
func FromEvent(event *shared.TransactionEvent, processedAt time.Time) *Record {
	return &Record{
		TransactionID:     event.TransactionID,
		Type:              event.Type,
		Amount:            event.Amount,
		OriginNumber:      event.OriginNumber,
		DestinationNumber: event.DestinationNumber,
		Status:            shared.TransactionStatusCommitted,
		IdempotencyKey:    event.IdempotencyKey,
		CorrelationID:     event.CorrelationID,
		CreatedAt:         event.CommittedAt,
		ProcessedAt:       &processedAt,
	}
}
