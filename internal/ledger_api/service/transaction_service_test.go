package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountRegistry struct {
	mock.Mock
}

func (m *MockAccountRegistry) CreateAccount(ctx context.Context) (*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRegistry) GetAccount(ctx context.Context, number int64) (*account.Account, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRegistry) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRegistry) GetBalance(ctx context.Context, number int64) (int64, error) {
	args := m.Called(ctx, number)
	return args.Get(0).(int64), args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Submit(ctx context.Context, request *transaction.Request) (*transaction.Result, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Result), args.Error(1)
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Upsert(ctx context.Context, record *journal.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockJournalRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*journal.Record, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Record), args.Error(1)
}

func number(n int64) *int64 { return &n }

func TestTransactionService_Submit(t *testing.T) {
	ctx := context.Background()
	a := &account.Account{ID: uuid.New(), Number: 1}
	b := &account.Account{ID: uuid.New(), Number: 2}
	committed := &transaction.Result{State: shared.OperationStateCommitted}

	t.Run("transfer resolves both sides", func(t *testing.T) {
		registry, engine := &MockAccountRegistry{}, &MockEngine{}
		svc := NewTransactionService(testLogger(), registry, engine, nil)

		registry.On("GetAccount", ctx, int64(1)).Return(a, nil).Once()
		registry.On("GetAccount", ctx, int64(2)).Return(b, nil).Once()
		engine.On("Submit", ctx, mock.MatchedBy(func(req *transaction.Request) bool {
			op, ok := req.Operation.(transaction.Transfer)
			return ok && op.Amount == 25 && op.Origin == a && op.Destination == b &&
				req.IdempotencyKey == "t-1" && req.CorrelationID == "corr"
		})).Return(committed, nil).Once()

		result, err := svc.Submit(ctx, &SubmitCommand{
			Type:              shared.TransactionTypeTransfer,
			Amount:            25,
			OriginNumber:      number(1),
			DestinationNumber: number(2),
			IdempotencyKey:    "t-1",
			CorrelationID:     "corr",
		})
		require.NoError(t, err)
		assert.Same(t, committed, result)
		registry.AssertExpectations(t)
		engine.AssertExpectations(t)
	})

	t.Run("deposit ignores the origin", func(t *testing.T) {
		registry, engine := &MockAccountRegistry{}, &MockEngine{}
		svc := NewTransactionService(testLogger(), registry, engine, nil)

		registry.On("GetAccount", ctx, int64(2)).Return(b, nil).Once()
		engine.On("Submit", ctx, mock.MatchedBy(func(req *transaction.Request) bool {
			op, ok := req.Operation.(transaction.Deposit)
			return ok && op.Destination == b
		})).Return(committed, nil).Once()

		_, err := svc.Submit(ctx, &SubmitCommand{
			Type:              shared.TransactionTypeDeposit,
			Amount:            10,
			OriginNumber:      number(1),
			DestinationNumber: number(2),
		})
		require.NoError(t, err)
		registry.AssertNotCalled(t, "GetAccount", ctx, int64(1))
	})

	t.Run("missing side", func(t *testing.T) {
		registry, engine := &MockAccountRegistry{}, &MockEngine{}
		svc := NewTransactionService(testLogger(), registry, engine, nil)

		_, err := svc.Submit(ctx, &SubmitCommand{Type: shared.TransactionTypeWithdraw, Amount: 10})
		assert.ErrorIs(t, err, shared.ErrInvalidOperation)
		assert.EqualError(t, err, "origin account number is required")
		engine.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("unknown account", func(t *testing.T) {
		registry, engine := &MockAccountRegistry{}, &MockEngine{}
		svc := NewTransactionService(testLogger(), registry, engine, nil)

		registry.On("GetAccount", ctx, int64(9)).
			Return(nil, shared.NewError(shared.KindNotFound, "account 9 not found")).Once()

		_, err := svc.Submit(ctx, &SubmitCommand{Type: shared.TransactionTypeWithdraw, Amount: 10, OriginNumber: number(9)})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		engine.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("unsupported type", func(t *testing.T) {
		svc := NewTransactionService(testLogger(), &MockAccountRegistry{}, &MockEngine{}, nil)

		_, err := svc.Submit(ctx, &SubmitCommand{Type: "REFUND", Amount: 10})
		assert.ErrorIs(t, err, shared.ErrInvalidOperation)
	})

	t.Run("engine rejection passes through", func(t *testing.T) {
		registry, engine := &MockAccountRegistry{}, &MockEngine{}
		svc := NewTransactionService(testLogger(), registry, engine, nil)
		rejection := shared.NewError(shared.KindInsufficientFunds, "insufficient funds")

		registry.On("GetAccount", ctx, int64(1)).Return(a, nil).Once()
		engine.On("Submit", ctx, mock.Anything).Return(nil, rejection).Once()

		_, err := svc.Submit(ctx, &SubmitCommand{Type: shared.TransactionTypeWithdraw, Amount: 500, OriginNumber: number(1)})
		assert.Same(t, rejection, err)
	})
}

func TestTransactionService_GetTransaction(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		repo := &MockJournalRepository{}
		svc := NewTransactionService(testLogger(), &MockAccountRegistry{}, &MockEngine{}, repo)
		record := &journal.Record{TransactionID: id, Status: shared.TransactionStatusCommitted, CreatedAt: time.Now()}
		repo.On("GetByTransactionID", ctx, id).Return(record, nil).Once()

		got, err := svc.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Same(t, record, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &MockJournalRepository{}
		svc := NewTransactionService(testLogger(), &MockAccountRegistry{}, &MockEngine{}, repo)
		repo.On("GetByTransactionID", ctx, id).Return(nil, journal.ErrRecordNotFound{TransactionID: id}).Once()

		_, err := svc.GetTransaction(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := &MockJournalRepository{}
		svc := NewTransactionService(testLogger(), &MockAccountRegistry{}, &MockEngine{}, repo)
		repo.On("GetByTransactionID", ctx, id).Return(nil, errors.New("server selection error")).Once()

		_, err := svc.GetTransaction(ctx, id)
		assert.ErrorIs(t, err, shared.ErrStorage)
		assert.NotContains(t, err.Error(), "server selection")
	})

	t.Run("journal not configured", func(t *testing.T) {
		svc := NewTransactionService(testLogger(), &MockAccountRegistry{}, &MockEngine{}, nil)

		_, err := svc.GetTransaction(ctx, id)
		assert.ErrorIs(t, err, shared.ErrStorage)
	})
}
