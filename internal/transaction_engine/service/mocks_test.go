package service

import (
	"context"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// stubTransactor runs fn without a real transaction and records the outcome
type stubTransactor struct {
	commitErr  error
	commits    int
	rollbacks  int
	executions int
}

func (s *stubTransactor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	s.executions++
	if err := fn(nil); err != nil {
		s.rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		s.rollbacks++
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	return nil
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerStore) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerStore) WithTx(tx pgx.Tx) ledger.Store {
	return m
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, request *transaction.Request) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockAccountLocker struct {
	mock.Mock
}

func (m *MockAccountLocker) LockAccounts(ctx context.Context, tx pgx.Tx, accounts ...*account.Account) ([]*account.Account, error) {
	args := m.Called(ctx, accounts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, txn *transaction.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordRejection(ctx context.Context, request *transaction.Request, cause *shared.Error) error {
	args := m.Called(ctx, request, cause)
	return args.Error(0)
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
