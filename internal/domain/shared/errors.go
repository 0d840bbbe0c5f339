package shared

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures the ledger core reports
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidAmount
	KindInvalidOperation
	KindInsufficientFunds
	KindStorage
	KindTransactionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidAmount:
		return "INVALID_AMOUNT"
	case KindInvalidOperation:
		return "INVALID_OPERATION"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindStorage:
		return "STORAGE_ERROR"
	case KindTransactionFailed:
		return "TRANSACTION_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN_KIND_%d", int(k))
	}
}

// Rejection reports whether the kind is a caller or business-rule failure rather
// than a backend fault.
func (k ErrorKind) Rejection() bool {
	switch k {
	case KindNotFound, KindInvalidAmount, KindInvalidOperation, KindInsufficientFunds:
		return true
	}
	return false
}

// Error is the only error type that leaves the ledger core. It has no Unwrap,
// so backend errors are never reachable from callers.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches any *Error of the same kind. A target with a message must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Sentinels for errors.Is checks
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrStorage           = &Error{Kind: KindStorage}
	ErrTransactionFailed = &Error{Kind: KindTransactionFailed}
)

// NewError builds a ledger error with a formatted message
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the ledger error from err, if there is one
func AsError(err error) (*Error, bool) {
	var ledgerErr *Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr, true
	}
	return nil, false
}

// KindOf returns the kind of a ledger error, or 0 for anything else
func KindOf(err error) ErrorKind {
	if ledgerErr, ok := AsError(err); ok {
		return ledgerErr.Kind
	}
	return 0
}
