package ledger_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bank-ledger-core/internal/config"
	"github.com/bank-ledger-core/internal/ledger_api/service"
	"github.com/bank-ledger-core/internal/ledgertest"
	"github.com/bank-ledger-core/internal/transaction_engine/components"
	engine "github.com/bank-ledger-core/internal/transaction_engine/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server: config.ServerConfig{
			Port:         8080,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		WorkerPool: config.WorkerPoolConfig{Size: 4},
		Engine:     config.EngineConfig{OperationTimeout: 2 * time.Second},
	}
}

func newTestServer(t *testing.T, health HealthChecker) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	db := ledgertest.NewDB()

	txEngine := components.CreateEngine(components.Dependencies{
		Transactor:   db,
		Accounts:     db.Accounts(),
		Transactions: db.Transactions(),
		Ledger:       db.Ledger(),
		Outbox:       db.OutboxRepo(),
	}, logger, cfg)
	t.Cleanup(func() {
		if wp, ok := txEngine.(*engine.WorkerPoolEngine); ok {
			wp.Shutdown(time.Second)
		}
	})

	registry := service.NewAccountRegistry(logger, db, db.Accounts(), db.Ledger(), nil)
	transactionService := service.NewTransactionService(logger, registry, txEngine, nil)
	return NewServer(logger, cfg, registry, transactionService, health)
}

func do(t *testing.T, s *Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestServer_LedgerFlow(t *testing.T) {
	s := newTestServer(t, nil)

	for want := int64(1); want <= 2; want++ {
		code, env := do(t, s, http.MethodPost, "/api/v1/accounts", nil)
		require.Equal(t, http.StatusCreated, code)
		var acc struct {
			Number int64 `json:"number"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &acc))
		assert.Equal(t, want, acc.Number)
		assert.NotEmpty(t, env.CorrelationID)
	}

	code, _ := do(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"type": "DEPOSIT", "amount": 100, "destination": 1,
	})
	require.Equal(t, http.StatusCreated, code)

	transfer := map[string]any{
		"type": "TRANSFER", "amount": 75, "origin": 1, "destination": 2, "idempotency_key": "transfer-1",
	}
	code, env := do(t, s, http.MethodPost, "/api/v1/transactions", transfer)
	require.Equal(t, http.StatusCreated, code)
	var first struct {
		TransactionID string `json:"transaction_id"`
		State         string `json:"state"`
		Replayed      bool   `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, "COMMITTED", first.State)
	assert.False(t, first.Replayed)

	// Same key replays the committed transfer without moving money again
	code, env = do(t, s, http.MethodPost, "/api/v1/transactions", transfer)
	require.Equal(t, http.StatusOK, code)
	var replay struct {
		TransactionID string `json:"transaction_id"`
		Replayed      bool   `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.TransactionID, replay.TransactionID)

	code, env = do(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"type": "WITHDRAW", "amount": 50, "origin": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_FUNDS", env.Error.Code)

	balances := map[int64]int64{1: 25, 2: 75}
	for number, want := range balances {
		code, env = do(t, s, http.MethodGet, "/api/v1/accounts/"+strconv.FormatInt(number, 10)+"/balance", nil)
		require.Equal(t, http.StatusOK, code)
		var balance struct {
			Balance int64 `json:"balance"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &balance))
		assert.Equal(t, want, balance.Balance, "account %d", number)
	}

	code, env = do(t, s, http.MethodGet, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}

func TestServer_ErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)

	code, env := do(t, s, http.MethodGet, "/api/v1/accounts/9", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, _ = do(t, s, http.MethodGet, "/api/v1/accounts/abc/balance", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, s, http.MethodPost, "/api/v1/transactions", map[string]any{
		"type": "DEPOSIT", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_OPERATION", env.Error.Code)

	// No journal is configured in this server
	code, env = do(t, s, http.MethodGet, "/api/v1/transactions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "STORAGE_UNAVAILABLE", env.Error.Code)
}

func TestServer_Health(t *testing.T) {
	t.Run("no checker", func(t *testing.T) {
		code, _ := do(t, newTestServer(t, nil), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("database down", func(t *testing.T) {
		down := pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })
		code, _ := do(t, newTestServer(t, down), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
