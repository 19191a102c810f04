package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WalletStatusActive    = "active"
	WalletStatusSuspended = "suspended"
	WalletStatusClosed    = "closed"
)

// Amounts travel as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type Wallet struct {
	ID        uint            `gorm:"primarykey" json:"walletId"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"userId"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	Currency  string          `gorm:"size:3;not null;default:'SOL'" json:"currency"`
	Status    string          `gorm:"size:16;not null;default:'active'" json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Ensure balance starts at 0
	w.Balance = decimal.Zero
	if w.Status == "" {
		w.Status = WalletStatusActive
	}
	return nil
}

// IsActive reports whether the wallet accepts credits and debits.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}
