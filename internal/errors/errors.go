// Package errors defines the domain error taxonomy shared by the ledger engine
// and the transfer orchestrator. Every failure that crosses a service boundary
// is a *DomainError carrying a stable code, so callers can match on
// errors.Is(err, ErrInsufficientFunds) no matter which side produced it.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the categories clients are expected to handle.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindBusinessRule      Kind = "BUSINESS_RULE"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
	KindInconsistentState Kind = "INCONSISTENT_STATE"
)

// DomainError is a typed failure with a machine-readable code.
type DomainError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the code only, so copies made by WithMessage still match
// their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *DomainError) WithMessage(msg string) *DomainError {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithStatus returns a copy of e answering with a different HTTP status.
func (e *DomainError) WithStatus(status int) *DomainError {
	cp := *e
	cp.Status = status
	return &cp
}

// HTTPStatus is the status code the error maps to on the wire.
func (e *DomainError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New builds a DomainError.
func New(kind Kind, code, message string, status int) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, Status: status}
}

// As extracts the DomainError from err's chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrValidation = &DomainError{
		Kind:    KindValidation,
		Code:    "VALIDATION_FAILED",
		Message: "invalid request",
		Status:  http.StatusBadRequest,
	}
	ErrStorage = &DomainError{
		Kind:    KindDependencyFailure,
		Code:    "STORAGE_FAILURE",
		Message: "storage is unavailable",
		Status:  http.StatusInternalServerError,
	}
	ErrInconsistentState = &DomainError{
		Kind:    KindInconsistentState,
		Code:    "INCONSISTENT_STATE",
		Message: "transfer left in an inconsistent state, operator intervention required",
		Status:  http.StatusInternalServerError,
	}
)
