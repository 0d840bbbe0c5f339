package shared

// TransactionType identifies the operation variant of a transaction
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is one of the three supported operations
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the outcome recorded in the transaction journal
type TransactionStatus string

const (
	TransactionStatusCommitted TransactionStatus = "COMMITTED"
	TransactionStatusRejected  TransactionStatus = "REJECTED"
)

// OperationState tracks an operation through the engine.
// STARTED -> VALIDATED -> APPLIED -> COMMITTED, or STARTED -> REJECTED / ABORTED.
type OperationState string

const (
	OperationStateStarted   OperationState = "STARTED"
	OperationStateValidated OperationState = "VALIDATED"
	OperationStateApplied   OperationState = "APPLIED"
	OperationStateCommitted OperationState = "COMMITTED"
	OperationStateRejected  OperationState = "REJECTED"
	OperationStateAborted   OperationState = "ABORTED"
)

// Terminal reports whether no further transition can follow s
func (s OperationState) Terminal() bool {
	return s == OperationStateCommitted || s == OperationStateRejected || s == OperationStateAborted
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
