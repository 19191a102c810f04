package repositories

import (
	"context"

	"walletsaga/internal/models"
)

// WalletRepository defines the interface for wallet and ledger entry persistence.
type WalletRepository interface {
	// Core wallet operations
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByID(ctx context.Context, id uint) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error)

	// LockByID loads the wallet holding an exclusive row lock until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, id uint) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, wallet *models.Wallet) error
	UpdateStatus(ctx context.Context, walletID uint, status string) error

	// Ledger entries
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindEntryByExternalID(ctx context.Context, externalID string) (*models.LedgerEntry, error)
	FindCompensation(ctx context.Context, originalTxID string) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, walletID uint) ([]models.LedgerEntry, error)

	ExecuteInTransaction(ctx context.Context, fn func(WalletRepository) error) error
}
