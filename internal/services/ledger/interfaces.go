package ledger

import (
	"context"
	"time"

	"walletsaga/internal/models"
)

// Service defines the ledger engine operations.
type Service interface {
	Create(ctx context.Context, req CreateWalletRequest) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	UpdateStatus(ctx context.Context, walletID uint, status string) (*models.Wallet, error)

	Credit(ctx context.Context, req OperationRequest) (*models.Wallet, error)
	Debit(ctx context.Context, req OperationRequest) (*models.Wallet, error)
	Compensate(ctx context.Context, req CompensationRequest) (*models.LedgerEntry, error)

	GetLedger(ctx context.Context, walletID uint) ([]models.LedgerEntry, error)
	GetLedgerWithDetails(ctx context.Context, walletID uint) ([]EnrichedEntry, error)
}

// Directory resolves account holders for ledger enrichment.
type Directory interface {
	BatchInfo(ctx context.Context, userIDs []uint) ([]models.UserProfile, error)
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
}
