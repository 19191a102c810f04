package transfer

import (
	"context"

	"walletsaga/internal/models"
	"walletsaga/internal/services/ledger"
)

// LedgerClient is the part of the ledger engine an inbound deposit uses.
type LedgerClient interface {
	GetBalance(ctx context.Context, userID uint) (*models.Wallet, error)
	Credit(ctx context.Context, req ledger.OperationRequest) (*models.Wallet, error)
}

// PhoneResolver maps a phone number to the user registered with it.
type PhoneResolver interface {
	ResolvePhone(ctx context.Context, phone string) (uint, error)
}
