package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EngineImpl struct {
	transactor      persistence.Transactor
	transactions    transaction.Repository
	ledger          ledger.Store
	validator       TransactionValidator
	accountLocker   AccountLocker
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	timeout         time.Duration
	logger          *slog.Logger
}

func NewEngine(
	transactor persistence.Transactor,
	transactions transaction.Repository,
	ledgerStore ledger.Store,
	validator TransactionValidator,
	accountLocker AccountLocker,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	timeout time.Duration,
	logger *slog.Logger,
) *EngineImpl {
	return &EngineImpl{
		transactor:      transactor,
		transactions:    transactions,
		ledger:          ledgerStore,
		validator:       validator,
		accountLocker:   accountLocker,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		timeout:         timeout,
		logger:          logger,
	}
}

// Submit validates the request and runs it in one atomic scope. A request whose
// idempotency key was already committed returns the earlier result unchanged.
func (e *EngineImpl) Submit(ctx context.Context, request *transaction.Request) (*transaction.Result, error) {
	if request == nil {
		return nil, shared.NewError(shared.KindInvalidOperation, "request is required")
	}

	logger := e.logger.With("transaction_id", request.ID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}
	transition(logger, shared.OperationStateStarted)

	if err := e.validator.Validate(ctx, request); err != nil {
		ledgerErr := e.classify(request, err)
		transition(logger, shared.OperationStateRejected, "reason", ledgerErr.Error())
		e.recordRejection(ctx, logger, request, ledgerErr)
		return nil, ledgerErr
	}
	transition(logger, shared.OperationStateValidated, "type", string(request.Operation.Type()))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var result *transaction.Result
	err := e.transactor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var applyErr error
		result, applyErr = e.apply(ctx, logger, tx, request)
		return applyErr
	})
	if err != nil {
		var duplicate transaction.ErrDuplicateIdempotencyKey
		if errors.As(err, &duplicate) {
			// A concurrent request committed the key first
			return e.replay(context.WithoutCancel(ctx), logger, request)
		}

		ledgerErr := e.classify(request, err)
		if ledgerErr.Kind.Rejection() {
			transition(logger, shared.OperationStateRejected, "reason", ledgerErr.Error())
			e.recordRejection(ctx, logger, request, ledgerErr)
		} else {
			logger.Error("Operation aborted", "error", err)
			transition(logger, shared.OperationStateAborted, "reason", ledgerErr.Error())
		}
		return nil, ledgerErr
	}

	result.State = shared.OperationStateCommitted
	if result.Replayed {
		logger.Info("Returned committed result for repeated idempotency key", "idempotency_key", request.IdempotencyKey)
		return result, nil
	}

	transition(logger, shared.OperationStateCommitted)
	logger.Info("Transaction committed",
		"type", string(result.Transaction.Type),
		"amount", result.Transaction.Amount,
	)
	return result, nil
}

// apply runs inside the scope: header, entries and outbox row commit or roll back together.
// Row locks and the balance check come before any insert. The foreign keys on the
// header and entry rows take KEY SHARE on the accounts, and a FOR UPDATE requested
// after that would deadlock against a concurrent operation holding the same share.
func (e *EngineImpl) apply(ctx context.Context, logger *slog.Logger, tx pgx.Tx, request *transaction.Request) (*transaction.Result, error) {
	txnRepo := e.transactions.WithTx(tx)

	if request.IdempotencyKey != "" {
		existing, err := txnRepo.GetByIdempotencyKey(ctx, request.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return replayed(existing, request)
		}
	}

	header := transaction.FromRequest(request)
	store := e.ledger.WithTx(tx)

	entries, err := e.plan(ctx, tx, store, header.ID, request.Operation)
	if err != nil {
		return nil, err
	}

	if err := txnRepo.Create(ctx, header); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := store.Append(ctx, entry); err != nil {
			return nil, err
		}
	}
	transition(logger, shared.OperationStateApplied)

	if err := e.outboxManager.CreateOutboxEntry(ctx, tx, header); err != nil {
		return nil, err
	}

	return &transaction.Result{Transaction: header}, nil
}

// plan takes the row locks the operation needs and returns its entries. Nothing
// is written yet.
func (e *EngineImpl) plan(ctx context.Context, tx pgx.Tx, store ledger.Store, transactionID uuid.UUID, op transaction.Operation) ([]*ledger.Entry, error) {
	switch op := op.(type) {
	case transaction.Deposit:
		credit, err := ledger.NewCredit(transactionID, op.Destination.ID, op.Amount)
		if err != nil {
			return nil, err
		}
		return []*ledger.Entry{credit}, nil

	case transaction.Withdraw:
		if _, err := e.accountLocker.LockAccounts(ctx, tx, op.Origin); err != nil {
			return nil, err
		}
		debit, err := coveredDebit(ctx, store, transactionID, op.Origin, op.Amount)
		if err != nil {
			return nil, err
		}
		return []*ledger.Entry{debit}, nil

	case transaction.Transfer:
		if _, err := e.accountLocker.LockAccounts(ctx, tx, op.Origin, op.Destination); err != nil {
			return nil, err
		}
		debit, err := coveredDebit(ctx, store, transactionID, op.Origin, op.Amount)
		if err != nil {
			return nil, err
		}
		credit, err := ledger.NewCredit(transactionID, op.Destination.ID, op.Amount)
		if err != nil {
			return nil, err
		}
		return []*ledger.Entry{debit, credit}, nil

	default:
		return nil, shared.NewError(shared.KindInvalidOperation, "unsupported operation %T", op)
	}
}

// coveredDebit must run while the origin row lock is held
func coveredDebit(ctx context.Context, store ledger.Store, transactionID uuid.UUID, origin *account.Account, amount int64) (*ledger.Entry, error) {
	balance, err := store.Balance(ctx, origin.ID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return nil, shared.NewError(shared.KindInsufficientFunds,
			"insufficient funds in account %d: balance %d, requested %d", origin.Number, balance, amount)
	}
	return ledger.NewDebit(transactionID, origin.ID, amount)
}

// replayed turns a stored header into a result, provided the repeated request
// describes the same operation
func replayed(existing *transaction.Transaction, request *transaction.Request) (*transaction.Result, error) {
	if !existing.Matches(request.Operation) {
		return nil, shared.NewError(shared.KindInvalidOperation,
			"idempotency key %q was already used for a different operation", request.IdempotencyKey)
	}
	return &transaction.Result{Transaction: existing, Replayed: true}, nil
}

// replay resolves a lost race on the idempotency key by reading the winner's header
func (e *EngineImpl) replay(ctx context.Context, logger *slog.Logger, request *transaction.Request) (*transaction.Result, error) {
	existing, err := e.transactions.GetByIdempotencyKey(ctx, request.IdempotencyKey)
	if err != nil {
		logger.Error("Failed to read committed transaction for idempotency key", "error", err)
		return nil, e.classify(request, err)
	}
	if existing == nil {
		return nil, e.classify(request, fmt.Errorf("idempotency key %q conflicted but no transaction holds it", request.IdempotencyKey))
	}

	result, err := replayed(existing, request)
	if err != nil {
		ledgerErr := e.classify(request, err)
		transition(logger, shared.OperationStateRejected, "reason", ledgerErr.Error())
		e.recordRejection(ctx, logger, request, ledgerErr)
		return nil, ledgerErr
	}
	result.State = shared.OperationStateCommitted
	logger.Info("Returned committed result for concurrent idempotency key", "idempotency_key", request.IdempotencyKey)
	return result, nil
}

// classify maps any failure into the ledger error taxonomy. Backend errors are
// logged by the layer that saw them and never cross this boundary.
func (e *EngineImpl) classify(request *transaction.Request, err error) *shared.Error {
	if ledgerErr, ok := shared.AsError(err); ok {
		return ledgerErr
	}

	var notFound account.ErrAccountNotFound
	if errors.As(err, &notFound) {
		return shared.NewError(shared.KindNotFound, "%s", notFound.Error())
	}

	kind := shared.KindStorage
	if request.Operation != nil && request.Operation.Type() == shared.TransactionTypeTransfer {
		kind = shared.KindTransactionFailed
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return shared.NewError(kind, "operation timed out and was rolled back")
	case errors.Is(err, context.Canceled):
		return shared.NewError(kind, "operation canceled and was rolled back")
	case kind == shared.KindTransactionFailed:
		return shared.NewError(kind, "transfer could not be completed and was rolled back")
	default:
		return shared.NewError(kind, "storage unavailable, operation rolled back")
	}
}

func (e *EngineImpl) recordRejection(ctx context.Context, logger *slog.Logger, request *transaction.Request, cause *shared.Error) {
	if e.failureRecorder == nil {
		return
	}
	if err := e.failureRecorder.RecordRejection(ctx, request, cause); err != nil {
		logger.Warn("Failed to journal rejected operation", "error", err)
	}
}

func transition(logger *slog.Logger, state shared.OperationState, attrs ...any) {
	logger.Debug("Operation state changed", append([]any{"state", string(state)}, attrs...)...)
}
