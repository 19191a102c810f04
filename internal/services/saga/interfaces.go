package saga

import (
	"context"
	"time"

	"walletsaga/internal/models"
	"walletsaga/internal/services/ledger"
)

// LedgerClient is the part of the ledger engine a saga drives. Both the
// in-process ledger.Service and ledger.HTTPClient satisfy it.
type LedgerClient interface {
	Credit(ctx context.Context, req ledger.OperationRequest) (*models.Wallet, error)
	Debit(ctx context.Context, req ledger.OperationRequest) (*models.Wallet, error)
	Compensate(ctx context.Context, req ledger.CompensationRequest) (*models.LedgerEntry, error)
}

// Clearing forwards an interbank transfer to the central clearing house.
type Clearing interface {
	SendTransfer(ctx context.Context, req ClearingRequest, authToken string) (*ClearingReceipt, error)
}

// Notifier publishes history events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, transactionID uint, status string)
}

// MetricsCollector defines the interface for collecting saga metrics
type MetricsCollector interface {
	RecordSagaOutcome(kind, state string)
	RecordStepDuration(step string, duration time.Duration)
}

// NoopMetricsCollector is a metrics collector that does nothing
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordSagaOutcome(kind, state string) {}

func (n *NoopMetricsCollector) RecordStepDuration(step string, duration time.Duration) {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, uint, string) {}
