package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/transaction_engine/service"
)

const recordTimeout = 2 * time.Second

type FailureRecorderImpl struct {
	journalRepo journal.Repository
	logger      *slog.Logger
}

func NewFailureRecorder(journalRepo journal.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// RecordRejection journals a REJECTED outcome for the request. It runs detached
// from the caller's cancellation but bounded by its own timeout.
func (r *FailureRecorderImpl) RecordRejection(ctx context.Context, request *transaction.Request, cause *shared.Error) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	now := time.Now().UTC()
	record := &journal.Record{
		TransactionID:  request.ID,
		Status:         shared.TransactionStatusRejected,
		FailureReason:  cause.Error(),
		IdempotencyKey: request.IdempotencyKey,
		CorrelationID:  request.CorrelationID,
		CreatedAt:      now,
		ProcessedAt:    &now,
	}
	if request.Operation != nil {
		amount, origin, destination := transaction.Parts(request.Operation)
		record.Type = request.Operation.Type()
		record.Amount = amount
		if origin != nil {
			number := origin.Number
			record.OriginNumber = &number
		}
		if destination != nil {
			number := destination.Number
			record.DestinationNumber = &number
		}
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.journalRepo.Upsert(recordCtx, record); err != nil {
		logger.Error("Failed to record rejected transaction", "transaction_id", request.ID.String(), "error", err)
		return err
	}

	logger.Info("Recorded rejected transaction",
		"transaction_id", request.ID.String(),
		"kind", cause.Kind.String(),
	)
	return nil
}
