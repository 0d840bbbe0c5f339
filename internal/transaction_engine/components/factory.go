package components

import (
	"log/slog"

	"github.com/bank-ledger-core/internal/config"
	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/domain/outbox"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/bank-ledger-core/internal/transaction_engine/service"
)

// Dependencies groups the stores the engine is built from
type Dependencies struct {
	Transactor   persistence.Transactor
	Accounts     account.Repository
	Transactions transaction.Repository
	Ledger       ledger.Store
	Outbox       outbox.Repository
	Journal      journal.Repository // optional, rejections are not journaled without it
}

// CreateEngine creates the transaction engine with all its collaborators, wrapped
// in a worker pool when one can be started.
func CreateEngine(deps Dependencies, logger *slog.Logger, cfg *config.Config) service.Engine {
	var failureRecorder service.FailureRecorder
	if deps.Journal != nil {
		failureRecorder = NewFailureRecorder(deps.Journal, logger)
	}

	baseEngine := service.NewEngine(
		deps.Transactor,
		deps.Transactions,
		deps.Ledger,
		NewTransactionValidator(logger),
		NewAccountLocker(deps.Accounts, logger),
		NewOutboxManager(deps.Outbox, logger),
		failureRecorder,
		cfg.Engine.OperationTimeout,
		logger,
	)

	workerPoolEngine, err := service.NewWorkerPoolEngine(
		baseEngine,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool engine, falling back to base engine", "error", err)
		return baseEngine
	}

	logger.Info("Created worker pool transaction engine", "pool_size", cfg.WorkerPool.Size)
	return workerPoolEngine
}
