package ledger

import (
	"time"

	"walletsaga/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds ledger settings.
type Config struct {
	DefaultCurrency string
}

type CreateWalletRequest struct {
	UserID   uint   `json:"userId" validate:"required"`
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// OperationRequest describes a credit or a debit. An empty Currency skips
// the currency check.
type OperationRequest struct {
	WalletID              uint            `json:"walletId" validate:"required"`
	Amount                decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency              string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExternalTransactionID string          `json:"externalTransactionId" validate:"required,max=191"`
	CounterpartyID        string          `json:"counterpartyId,omitempty" validate:"max=191"`
}

type CompensationRequest struct {
	OriginalExternalTransactionID string `json:"originalExternalTransactionId" validate:"required,max=191"`
	CompensationTransactionID     string `json:"compensationTransactionId" validate:"required,max=191"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CounterpartyDetails is the display information attached to an entry.
type CounterpartyDetails struct {
	FullName string `json:"fullname"`
	Phone    string `json:"phone"`
}

// UnknownCounterparty is shown when the counterparty cannot be resolved.
var UnknownCounterparty = CounterpartyDetails{
	FullName: "unknown counterparty",
	Phone:    "---",
}

type EnrichedEntry struct {
	models.LedgerEntry
	CounterpartyDetails CounterpartyDetails `json:"counterpartyDetails"`
}

// Operation names used in logs and metrics
const (
	OpCreate     = "create"
	OpCredit     = "credit"
	OpDebit      = "debit"
	OpCompensate = "compensate"
)

// Operation results used in metrics
const (
	ResultApplied  = "applied"
	ResultReplayed = "replayed"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

const DefaultCurrency = "SOL"

// DefaultTimeout bounds a remote ledger call.
const DefaultTimeout = 5 * time.Second
