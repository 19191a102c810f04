package errors

import "net/http"

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindValidation,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be positive with at most two decimals",
		Status:  http.StatusBadRequest,
	}
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
		Status:  http.StatusNotFound,
	}
	ErrLedgerEntryNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "LEDGER_ENTRY_NOT_FOUND",
		Message: "original ledger entry not found",
		Status:  http.StatusNotFound,
	}
	ErrDuplicateWallet = &DomainError{
		Kind:    KindConflict,
		Code:    "DUPLICATE_WALLET",
		Message: "user already has a wallet",
		Status:  http.StatusConflict,
	}
	ErrAlreadyCompensated = &DomainError{
		Kind:    KindConflict,
		Code:    "ALREADY_COMPENSATED",
		Message: "transaction was already compensated",
		Status:  http.StatusConflict,
	}
	ErrExternalIDReused = &DomainError{
		Kind:    KindConflict,
		Code:    "EXTERNAL_ID_REUSED",
		Message: "external transaction id is already bound to a different operation",
		Status:  http.StatusConflict,
	}
	ErrWalletInactive = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "WALLET_INACTIVE",
		Message: "wallet is not active",
		Status:  http.StatusConflict,
	}
	ErrCurrencyMismatch = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "CURRENCY_MISMATCH",
		Message: "currency does not match the wallet currency",
		Status:  http.StatusBadRequest,
	}
	ErrNotCompensable = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "NOT_COMPENSABLE",
		Message: "compensation entries cannot be compensated",
		Status:  http.StatusBadRequest,
	}
	ErrInsufficientFunds = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
		Status:  http.StatusPaymentRequired,
	}
	ErrInsufficientFundsForCompensation = &DomainError{
		Kind:    KindBusinessRule,
		Code:    "INSUFFICIENT_FUNDS_FOR_COMPENSATION",
		Message: "insufficient funds to reverse the credit",
		Status:  http.StatusPaymentRequired,
	}
)
