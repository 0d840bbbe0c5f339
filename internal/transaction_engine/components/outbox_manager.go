package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/outbox"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/transaction_engine/service"
	"github.com/jackc/pgx/v5"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stores the transaction event in tx, so it exists exactly when the
// transaction commits
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) error {
	logger := m.logger
	if txn.CorrelationID != "" {
		logger = m.logger.With("correlation_id", txn.CorrelationID)
	}

	outboxMessage, err := outbox.NewMessage(txn.Event())
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"req_id", txn.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", txn.ID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"req_id", txn.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for tx %s: %w", txn.ID.String(), err)
	}

	logger.Debug("Outbox message created",
		"req_id", txn.ID.String(),
		"outbox_id", outboxMessage.ID,
	)
	return nil
}
