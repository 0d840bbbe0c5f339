package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/ledger_api/service"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	registry service.AccountRegistry
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, registry service.AccountRegistry) *AccountHandler {
	return &AccountHandler{
		registry: registry,
		logger:   logger,
	}
}

// Create opens a new account with the next free number. The request body is ignored.
func (h *AccountHandler) Create(c *gin.Context) {
	acc, err := h.registry.CreateAccount(c.Request.Context())
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns every account ordered by number
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.registry.ListAccounts(c.Request.Context())
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapAccountToResponse(acc))
	}
	RespondOK(c, response)
}

// GetByNumber retrieves an account by its number, returning 404 if not found
func (h *AccountHandler) GetByNumber(c *gin.Context) {
	number, ok := h.numberParam(c)
	if !ok {
		return
	}

	acc, err := h.registry.GetAccount(c.Request.Context(), number)
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// GetBalance returns the balance derived from the account's ledger entries
func (h *AccountHandler) GetBalance(c *gin.Context) {
	number, ok := h.numberParam(c)
	if !ok {
		return
	}

	balance, err := h.registry.GetBalance(c.Request.Context(), number)
	if err != nil {
		RespondWithLedgerError(c, err)
		return
	}

	RespondOK(c, BalanceResponse{AccountNumber: number, Balance: balance})
}

func (h *AccountHandler) numberParam(c *gin.Context) (int64, bool) {
	raw := c.Param("number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number <= 0 {
		h.logger.Warn("Invalid account number", "number", raw)
		RespondBadRequest(c, "Invalid account number")
		return 0, false
	}
	return number, true
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Number:    acc.Number,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
	}
}
