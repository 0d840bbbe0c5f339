package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/outbox"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/platform/messaging/producers"
)

const correlationIDHeader = "correlation_id"

// EventPublisher relays one outbox message to the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher on top of a Kafka producer
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes the message payload keyed by transaction id and marks
// the outbox row PROCESSED. A payload that cannot be decoded is never going to
// publish, so it goes straight to FAILED_TO_PUBLISH.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to decode transaction event from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	headers := map[string]string{}
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
		headers[correlationIDHeader] = event.CorrelationID
	}

	if err := p.producer.Publish(ctx, message.TransactionID.String(), message.Payload, headers); err != nil {
		return fmt.Errorf("failed to publish event for transaction %s: %w", message.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		// The event is out already; the next poll republishes it and consumers dedupe by transaction id.
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Debug("Outbox message published", "outbox_id", message.ID, "transaction_id", message.TransactionID, "type", event.Type)
	return nil
}
