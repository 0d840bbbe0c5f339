package handler

// CreateTransactionRequest represents a request to run a ledger operation.
// Amount validity is checked by the engine, so a zero or negative amount still
// reaches it and comes back as INVALID_AMOUNT.
type CreateTransactionRequest struct {
	Type           string `json:"type" binding:"required,oneof=DEPOSIT WITHDRAW TRANSFER"`
	Amount         int64  `json:"amount"`
	Origin         *int64 `json:"origin,omitempty"`
	Destination    *int64 `json:"destination,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Number    int64  `json:"number"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse represents the derived balance of an account
type BalanceResponse struct {
	AccountNumber int64 `json:"account_number"`
	Balance       int64 `json:"balance"`
}

// TransactionResponse represents a committed operation
type TransactionResponse struct {
	TransactionID  string `json:"transaction_id"`
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	Origin         *int64 `json:"origin,omitempty"`
	Destination    *int64 `json:"destination,omitempty"`
	State          string `json:"state"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Replayed       bool   `json:"replayed"`
	CreatedAt      string `json:"created_at"`
}

// JournalRecordResponse represents a journaled transaction outcome
type JournalRecordResponse struct {
	TransactionID  string `json:"transaction_id"`
	Type           string `json:"type,omitempty"`
	Amount         int64  `json:"amount"`
	Origin         *int64 `json:"origin,omitempty"`
	Destination    *int64 `json:"destination,omitempty"`
	Status         string `json:"status"`
	FailureReason  string `json:"failure_reason,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	CreatedAt      string `json:"created_at"`
	ProcessedAt    string `json:"processed_at,omitempty"`
}
