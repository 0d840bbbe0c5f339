package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	engine "github.com/bank-ledger-core/internal/transaction_engine/service"
	"github.com/google/uuid"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	registry    AccountRegistry
	engine      engine.Engine
	journalRepo journal.Repository // optional
	logger      *slog.Logger
}

// NewTransactionService creates a new transaction service. journalRepo may be nil,
// in which case lookups report the journal as unavailable.
func NewTransactionService(logger *slog.Logger, registry AccountRegistry, txEngine engine.Engine, journalRepo journal.Repository) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		registry:    registry,
		engine:      txEngine,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// Submit turns account numbers into accounts and hands the operation to the engine
func (s *TransactionServiceImpl) Submit(ctx context.Context, cmd *SubmitCommand) (*transaction.Result, error) {
	logger := s.logger
	if cmd.CorrelationID != "" {
		logger = s.logger.With("correlation_id", cmd.CorrelationID)
	}

	op, err := s.operation(ctx, cmd)
	if err != nil {
		logger.Info("Operation could not be built", "type", string(cmd.Type), "error", err)
		return nil, err
	}

	request, err := transaction.NewRequest(op, cmd.IdempotencyKey, cmd.CorrelationID)
	if err != nil {
		logger.Error("Failed to create transaction request", "error", err)
		return nil, shared.NewError(shared.KindStorage, "transaction id could not be generated")
	}

	return s.engine.Submit(ctx, request)
}

func (s *TransactionServiceImpl) operation(ctx context.Context, cmd *SubmitCommand) (transaction.Operation, error) {
	switch cmd.Type {
	case shared.TransactionTypeDeposit:
		destination, err := s.resolve(ctx, "destination", cmd.DestinationNumber)
		if err != nil {
			return nil, err
		}
		return transaction.Deposit{Amount: cmd.Amount, Destination: destination}, nil

	case shared.TransactionTypeWithdraw:
		origin, err := s.resolve(ctx, "origin", cmd.OriginNumber)
		if err != nil {
			return nil, err
		}
		return transaction.Withdraw{Amount: cmd.Amount, Origin: origin}, nil

	case shared.TransactionTypeTransfer:
		origin, err := s.resolve(ctx, "origin", cmd.OriginNumber)
		if err != nil {
			return nil, err
		}
		destination, err := s.resolve(ctx, "destination", cmd.DestinationNumber)
		if err != nil {
			return nil, err
		}
		return transaction.Transfer{Amount: cmd.Amount, Origin: origin, Destination: destination}, nil

	default:
		return nil, shared.NewError(shared.KindInvalidOperation, "unsupported transaction type %q", cmd.Type)
	}
}

func (s *TransactionServiceImpl) resolve(ctx context.Context, side string, number *int64) (*account.Account, error) {
	if number == nil {
		return nil, shared.NewError(shared.KindInvalidOperation, "%s account number is required", side)
	}
	return s.registry.GetAccount(ctx, *number)
}

// GetTransaction reads the outcome journal
func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, transactionID uuid.UUID) (*journal.Record, error) {
	if s.journalRepo == nil {
		return nil, shared.NewError(shared.KindStorage, "transaction journal unavailable")
	}

	record, err := s.journalRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, journal.ErrRecordNotFound{}) {
			s.logger.Info("Transaction not found", "transaction_id", transactionID.String())
			return nil, shared.NewError(shared.KindNotFound, "transaction %s not found", transactionID)
		}
		s.logger.Error("Failed to get transaction by ID", "transaction_id", transactionID.String(), "error", err)
		return nil, shared.NewError(shared.KindStorage, "storage unavailable, transaction %s could not be read", transactionID)
	}
	return record, nil
}
