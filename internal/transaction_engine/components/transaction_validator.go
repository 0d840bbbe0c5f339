package components

import (
	"context"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/transaction_engine/service"
)

const maxIdempotencyKeyLength = 255

type TransactionValidatorImpl struct {
	logger *slog.Logger
}

func NewTransactionValidator(logger *slog.Logger) service.TransactionValidator {
	return &TransactionValidatorImpl{
		logger: logger,
	}
}

// Validate checks the storage-free preconditions of a request. Every failure is
// a *shared.Error of kind InvalidAmount or InvalidOperation.
func (v *TransactionValidatorImpl) Validate(ctx context.Context, request *transaction.Request) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if request.Operation == nil {
		logger.Warn("Request carries no operation", "req_id", request.ID.String())
		return shared.NewError(shared.KindInvalidOperation, "operation is required")
	}

	if len(request.IdempotencyKey) > maxIdempotencyKeyLength {
		return shared.NewError(shared.KindInvalidOperation, "idempotency key must not exceed %d characters", maxIdempotencyKeyLength)
	}

	amount, origin, destination := transaction.Parts(request.Operation)
	if amount <= 0 {
		logger.Warn("Invalid amount", "req_id", request.ID.String(), "amount", amount)
		return shared.NewError(shared.KindInvalidAmount, "amount must be positive, got %d", amount)
	}

	switch request.Operation.(type) {
	case transaction.Deposit:
		if destination == nil {
			return shared.NewError(shared.KindInvalidOperation, "deposit requires a destination account")
		}
	case transaction.Withdraw:
		if origin == nil {
			return shared.NewError(shared.KindInvalidOperation, "withdraw requires an origin account")
		}
	case transaction.Transfer:
		if origin == nil || destination == nil {
			return shared.NewError(shared.KindInvalidOperation, "transfer requires origin and destination accounts")
		}
		if origin.ID == destination.ID {
			logger.Warn("Self-transfer rejected", "req_id", request.ID.String(), "number", origin.Number)
			return shared.NewError(shared.KindInvalidOperation, "cannot transfer from account %d to itself", origin.Number)
		}
	}

	return nil
}
