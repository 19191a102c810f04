package errors

import "net/http"

var (
	ErrTransactionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Status:  http.StatusNotFound,
	}
	ErrUserNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "USER_NOT_FOUND",
		Message: "no user registered for that phone number",
		Status:  http.StatusNotFound,
	}
	ErrTransferInProgress = &DomainError{
		Kind:    KindConflict,
		Code:    "TRANSFER_IN_PROGRESS",
		Message: "a transfer with this idempotency key is still being processed",
		Status:  http.StatusConflict,
	}
	ErrAlreadyReversed = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "ALREADY_REVERSED",
		Message: "transaction was already reversed",
		Status:  http.StatusBadRequest,
	}
	ErrNotReversible = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "NOT_REVERSIBLE",
		Message: "only completed internal transfers can be reversed",
		Status:  http.StatusBadRequest,
	}
	ErrLedgerUnavailable = &DomainError{
		Kind:    KindDependencyFailure,
		Code:    "LEDGER_UNAVAILABLE",
		Message: "ledger service unavailable",
		Status:  http.StatusServiceUnavailable,
	}
	ErrClearingFailed = &DomainError{
		Kind:    KindDependencyFailure,
		Code:    "CLEARING_FAILED",
		Message: "interbank clearing rejected the transfer",
		Status:  http.StatusBadGateway,
	}
	ErrIdentityUnavailable = &DomainError{
		Kind:    KindDependencyFailure,
		Code:    "IDENTITY_UNAVAILABLE",
		Message: "user service unavailable",
		Status:  http.StatusServiceUnavailable,
	}
)
