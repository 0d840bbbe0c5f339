package handler

import (
	"log/slog"
	"time"

	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/bank-ledger-core/internal/ledger_api/middleware"
	"github.com/bank-ledger-core/internal/ledger_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Create runs a deposit, withdrawal or transfer and answers with the committed
// result. A replayed idempotency key answers 200 instead of 201.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.transactionService.Submit(c.Request.Context(), &service.SubmitCommand{
		Type:              shared.TransactionType(req.Type),
		Amount:            req.Amount,
		OriginNumber:      req.Origin,
		DestinationNumber: req.Destination,
		IdempotencyKey:    req.IdempotencyKey,
		CorrelationID:     middleware.GetCorrelationID(c),
	})
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	response := mapResultToResponse(result)
	if result.Replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID retrieves the journaled outcome of a transaction, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	record, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

func mapResultToResponse(result *transaction.Result) TransactionResponse {
	txn := result.Transaction
	response := TransactionResponse{
		TransactionID:  txn.ID.String(),
		Type:           string(txn.Type),
		Amount:         txn.Amount,
		State:          string(result.State),
		IdempotencyKey: txn.IdempotencyKey,
		Replayed:       result.Replayed,
		CreatedAt:      txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.Origin != nil {
		n := txn.Origin.Number
		response.Origin = &n
	}
	if txn.Destination != nil {
		n := txn.Destination.Number
		response.Destination = &n
	}
	return response
}

// mapRecordToResponse maps a journal record to a response DTO
func mapRecordToResponse(record *journal.Record) JournalRecordResponse {
	response := JournalRecordResponse{
		TransactionID:  record.TransactionID.String(),
		Type:           string(record.Type),
		Amount:         record.Amount,
		Origin:         record.OriginNumber,
		Destination:    record.DestinationNumber,
		Status:         string(record.Status),
		FailureReason:  record.FailureReason,
		IdempotencyKey: record.IdempotencyKey,
		CreatedAt:      record.CreatedAt.Format(time.RFC3339),
	}

	if record.ProcessedAt != nil {
		response.ProcessedAt = record.ProcessedAt.Format(time.RFC3339)
	}

	return response
}
