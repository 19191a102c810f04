package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger entry types
const (
	EntryTypeCredit       = "CREDIT"
	EntryTypeDebit        = "DEBIT"
	EntryTypeCompensation = "COMPENSATION"
)

const EntryStatusCompleted = "COMPLETED"

var ErrImmutableEntry = errors.New("ledger entries are append-only")

// LedgerEntry records one balance movement of a wallet. ExternalTransactionID
// is the caller supplied idempotency key: at most one entry exists per key.
// OriginalTxID is only set on COMPENSATION entries and is unique as well, so an
// entry can be compensated once.
type LedgerEntry struct {
	ID                    uint            `gorm:"primarykey" json:"ledgerId"`
	WalletID              uint            `gorm:"index;not null" json:"walletId"`
	CounterpartyID        string          `gorm:"size:191" json:"counterpartyId,omitempty"`
	ExternalTransactionID string          `gorm:"size:191;uniqueIndex;not null" json:"externalTransactionId"`
	OriginalTxID          *string         `gorm:"size:191;uniqueIndex" json:"originalTxId,omitempty"`
	Type                  string          `gorm:"size:16;not null" json:"type"`
	Amount                decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	BalanceBefore         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balanceBefore"`
	BalanceAfter          decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"balanceAfter"`
	Status                string          `gorm:"size:16;not null" json:"status"`
	Description           string          `gorm:"size:255" json:"description,omitempty"`
	CreatedAt             time.Time       `gorm:"index" json:"createdAt"`
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableEntry
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableEntry
}
