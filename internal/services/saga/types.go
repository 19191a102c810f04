package saga

import (
	"time"

	apperrors "walletsaga/internal/errors"

	"github.com/shopspring/decimal"
)

// Saga kinds used in logs and metrics
const (
	KindTransfer  = "transfer"
	KindInterbank = "interbank"
	KindReverse   = "reverse"
)

// Counterparty recorded for interbank transfers when clearing names nobody.
const ExternalCounterparty = "EXTERNAL"

type TransferRequest struct {
	IdempotencyKey string          `json:"idempotencyKey" validate:"required,max=150,idempotency_key"`
	SenderWallet   uint            `json:"sender_wallet" validate:"required"`
	ReceiverWallet uint            `json:"receiver_wallet" validate:"required,nefield=SenderWallet"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency       string          `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type InterbankRequest struct {
	IdempotencyKey string          `json:"idempotencyKey" validate:"required,max=150,idempotency_key"`
	SenderWallet   uint            `json:"sender_wallet" validate:"required"`
	MyPhone        string          `json:"my_phone" validate:"required,max=32"`
	TargetPhone    string          `json:"target_phone" validate:"required,max=32"`
	TargetApp      string          `json:"target_app" validate:"required,max=64"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Currency       string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	AuthToken      string          `json:"-"`
}

// ClearingRequest is the payload sent to the central clearing house.
type ClearingRequest struct {
	From   string          `json:"fromIdentifier"`
	To     string          `json:"toIdentifier"`
	App    string          `json:"toAppName"`
	Amount decimal.Decimal `json:"amount"`
}

// ClearingReceipt names the party the clearing house credited.
type ClearingReceipt struct {
	UserName string `json:"userName"`
	AppName  string `json:"toAppName"`
}

// TransferResult is the client-facing view of a completed transfer.
type TransferResult struct {
	TransactionID  uint            `json:"transaction_id"`
	Status         string          `json:"status"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	SenderWallet   uint            `json:"sender_wallet"`
	ReceiverWallet uint            `json:"receiver_wallet"`
	Counterparty   string          `json:"counterparty,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Outcome is what Transfer and Interbank return on success.
type Outcome struct {
	Result   *TransferResult
	Replayed bool
	State    State
}

type ReverseResult struct {
	Message          string `json:"message"`
	NewTransactionID uint   `json:"new_transaction_id"`
}

// receipt is the terminal answer cached for an idempotency key. Exactly one
// of Result or Error is set.
type receipt struct {
	Result *TransferResult         `json:"result,omitempty"`
	Error  *apperrors.DomainError `json:"error,omitempty"`
}
