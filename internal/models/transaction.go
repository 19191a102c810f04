package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusReversed  = "reversed"
	TransactionStatusFailed    = "failed"
)

// Transaction types
const (
	TransactionTypeInternal = "INTERNAL"
	TransactionTypeExternal = "EXTERNAL"
)

// Local ledger row directions
const (
	LedgerRowDebit  = "debit"
	LedgerRowCredit = "credit"
)

// Transaction is the orchestrator's record of a transfer. IdempotencyKey is
// unique, which makes the record the durable admission check for a key.
// ReceiverWallet is 0 for interbank transfers.
type Transaction struct {
	ID             uint                `gorm:"primarykey" json:"transaction_id"`
	IdempotencyKey string              `gorm:"size:191;uniqueIndex;not null" json:"idempotency_key"`
	SenderWallet   uint                `gorm:"index;not null" json:"sender_wallet"`
	ReceiverWallet uint                `gorm:"index;not null" json:"receiver_wallet"`
	Amount         decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency       string              `gorm:"size:3;not null" json:"currency"`
	Status         string              `gorm:"size:16;not null;index" json:"status"`
	Type           string              `gorm:"size:16;not null;default:'INTERNAL'" json:"type"`
	SagaState      string              `gorm:"size:32" json:"saga_state,omitempty"`
	Counterparty   string              `gorm:"size:191" json:"counterparty,omitempty"`
	ReversalOf     *uint               `gorm:"index" json:"reversal_of,omitempty"`
	FailureKind    string              `gorm:"size:32" json:"-"`
	FailureCode    string              `gorm:"size:64" json:"failure_code,omitempty"`
	FailureMessage string              `gorm:"size:255" json:"failure_message,omitempty"`
	FailureStatus  int                 `json:"-"`
	LedgerEntries  []TransactionLedger `gorm:"foreignKey:TransactionID" json:"ledger_entries,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TransactionLedger is the orchestrator's per-wallet bookkeeping row of a
// transaction. It mirrors the ledger engine's entries and is never the
// source of truth for balances.
type TransactionLedger struct {
	ID             uint            `gorm:"primarykey" json:"ledger_id"`
	TransactionID  uint            `gorm:"index;not null" json:"transaction_id"`
	WalletID       uint            `gorm:"index;not null" json:"wallet_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Type           string          `gorm:"size:8;not null" json:"type"`
	CounterpartyID string          `gorm:"size:191" json:"counterparty_id,omitempty"`
	Description    string          `gorm:"size:255" json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (TransactionLedger) TableName() string {
	return "transaction_ledger"
}
