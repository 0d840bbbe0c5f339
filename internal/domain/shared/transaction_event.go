package shared

import (
	"time"

	"github.com/google/uuid"
)

// TransactionEvent is published to Kafka once per committed transaction
type TransactionEvent struct {
	TransactionID        uuid.UUID       `json:"transaction_id"`
	Type                 TransactionType `json:"type"`
	Amount               int64           `json:"amount"` // minor units, always positive
	OriginAccountID      *uuid.UUID      `json:"origin_account_id,omitempty"`
	OriginNumber         *int64          `json:"origin_number,omitempty"`
	DestinationAccountID *uuid.UUID      `json:"destination_account_id,omitempty"`
	DestinationNumber    *int64          `json:"destination_number,omitempty"`
	IdempotencyKey       string          `json:"idempotency_key,omitempty"`
	CorrelationID        string          `json:"correlation_id"`
	CommittedAt          time.Time       `json:"committed_at"`
}
