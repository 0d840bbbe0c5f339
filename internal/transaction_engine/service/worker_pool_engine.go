package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolEngine bounds how many operations hold a connection and row locks at once
type WorkerPoolEngine struct {
	baseEngine Engine
	pool       *ants.Pool
	logger     *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type submitOutcome struct {
	result *transaction.Result
	err    error
}

func NewWorkerPoolEngine(baseEngine Engine, config WorkerPoolConfig, logger *slog.Logger) (*WorkerPoolEngine, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolEngine{
		baseEngine: baseEngine,
		pool:       pool,
		logger:     logger,
	}, nil
}

// Submit runs the operation on a pool worker and waits for its outcome. The wait
// is not cut short by ctx: the base engine already honours it, and returning
// early could hide a commit that is in flight.
func (s *WorkerPoolEngine) Submit(ctx context.Context, request *transaction.Request) (*transaction.Result, error) {
	logger := s.logger
	if request != nil && request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	outcome := make(chan submitOutcome, 1)
	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Panic while executing operation", "panic", fmt.Sprint(p))
				outcome <- submitOutcome{err: shared.NewError(shared.KindStorage, "operation failed unexpectedly and was rolled back")}
			}
		}()
		result, err := s.baseEngine.Submit(ctx, request)
		outcome <- submitOutcome{result: result, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit operation to worker pool", "error", err)
		return nil, shared.NewError(shared.KindStorage, "engine is not accepting operations")
	}

	res := <-outcome
	return res.result, res.err
}

// Shutdown releases the pool, waiting up to timeout for in-flight operations
func (s *WorkerPoolEngine) Shutdown(timeout time.Duration) {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		s.logger.Warn("Worker pool did not drain before timeout", "error", err)
	}
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolEngine) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolEngine) Capacity() int {
	return s.pool.Cap()
}
