package handler

import (
	"net/http"

	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/ledger_api/middleware"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithLedgerError maps a ledger error kind onto its HTTP status. Anything
// that is not a *shared.Error is treated as an internal failure.
func RespondWithLedgerError(c *gin.Context, err error) {
	ledgerErr, ok := shared.AsError(err)
	if !ok {
		RespondInternalError(c)
		return
	}

	switch ledgerErr.Kind {
	case shared.KindNotFound:
		RespondWithError(c, http.StatusNotFound, "NOT_FOUND", ledgerErr.Error())
	case shared.KindInvalidAmount:
		RespondWithError(c, http.StatusBadRequest, "INVALID_AMOUNT", ledgerErr.Error())
	case shared.KindInvalidOperation:
		RespondWithError(c, http.StatusBadRequest, "INVALID_OPERATION", ledgerErr.Error())
	case shared.KindInsufficientFunds:
		RespondWithError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", ledgerErr.Error())
	case shared.KindStorage:
		RespondWithError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", ledgerErr.Error())
	case shared.KindTransactionFailed:
		RespondWithError(c, http.StatusServiceUnavailable, "TRANSACTION_FAILED", ledgerErr.Error())
	default:
		RespondInternalError(c)
	}
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
