package repositories

import (
	"context"

	"walletsaga/internal/models"
)

// TransactionRepository persists the orchestrator's transfer records and
// their local ledger rows.
type TransactionRepository interface {
	// Create inserts the record together with its LedgerEntries in one
	// transaction. A second record for the same idempotency key fails with
	// ErrDuplicateTransaction.
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]models.Transaction, int64, error)
	LockByID(ctx context.Context, id uint) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	ExecuteInTransaction(ctx context.Context, fn func(TransactionRepository) error) error
}
