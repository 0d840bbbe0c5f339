// Package consumer projects the transaction event stream into the journal.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

var errMissingTransactionID = errors.New("event has no transaction_id")

// JournalEventHandler turns committed transaction events into journal records
type JournalEventHandler struct {
	journalRepo journal.Repository
	producer    producers.DeadLetterPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewJournalEventHandler creates a new handler. producer may be nil when no DLQ
// topic is configured.
func NewJournalEventHandler(
	logger *slog.Logger,
	journalRepo journal.Repository,
	producer producers.DeadLetterPublisher,
) *JournalEventHandler {
	return &JournalEventHandler{
		journalRepo: journalRepo,
		producer:    producer,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage processes Kafka messages. Returning nil commits the offset.
func (h *JournalEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		h.logger.Error("Failed to decode transaction event from Kafka message",
			"error", err,
			"message_key", string(key),
		)

		if h.producer == nil {
			h.logger.Warn("No DLQ configured, dropping undecodable message", "message_key", string(key))
			return nil
		}

		reason := fmt.Sprintf("undecodable transaction event: %s", err.Error())
		dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason)
		switch {
		case dlqErr == nil:
			h.logger.Info("Published undecodable message to DLQ", "message_key", string(key))
			return nil
		case errors.Is(dlqErr, producers.ErrDLQDisabled):
			// Redelivery cannot fix the payload, so skip it rather than stall the partition.
			return nil
		default:
			h.logger.Error("Failed to publish message to DLQ after decode error",
				"dlq_error", dlqErr,
				"original_error", err,
				"message_key", string(key),
			)
			return fmt.Errorf("failed to decode message value: %w", err)
		}
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	record := journal.FromEvent(event, h.now())
	if err := h.journalRepo.Upsert(ctx, record); err != nil {
		logger.Error("Failed to write journal record",
			"transaction_id", event.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("journaling transaction %s failed: %w", event.TransactionID.String(), err)
	}

	logger.Info("Journaled committed transaction",
		"transaction_id", event.TransactionID.String(),
		"type", event.Type,
		"amount", event.Amount,
	)
	return nil
}

func decodeEvent(value []byte) (*shared.TransactionEvent, error) {
	var event shared.TransactionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	if event.TransactionID == uuid.Nil {
		return nil, errMissingTransactionID
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q", event.Type)
	}
	return &event, nil
}
