package transfer

import (
	"context"
	"fmt"

	"walletsaga/internal/services/ledger"
	"walletsaga/internal/utils/background"
	"walletsaga/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CounterpartyExternal marks ledger entries funded from another bank.
const CounterpartyExternal = "EXTERNAL_TRANSFER"

type DepositRequest struct {
	DestinationPhone      string          `json:"destination_phone_number" validate:"required,max=32"`
	Amount                decimal.Decimal `json:"amount" validate:"required,gt=0"`
	ExternalTransactionID string          `json:"external_transaction_id" validate:"required,max=183"`
}

// DepositProcessor credits inbound interbank deposits. Accept only checks
// the request; the credit itself runs in the background and failures are
// logged. The ledger id is the partner's external id under the deposit
// prefix, so a redelivered deposit is applied once.
type DepositProcessor struct {
	ledger   LedgerClient
	phones   PhoneResolver
	runner   *background.Runner
	currency string
	logger   *zap.Logger
}

func NewDepositProcessor(
	ledgerClient LedgerClient,
	phones PhoneResolver,
	runner *background.Runner,
	currency string,
	logger *zap.Logger,
) *DepositProcessor {
	if ledgerClient == nil {
		panic("ledger client is required")
	}
	if phones == nil {
		panic("phone resolver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = background.NewRunner(0, logger)
	}
	if currency == "" {
		currency = ledger.DefaultCurrency
	}
	return &DepositProcessor{
		ledger:   ledgerClient,
		phones:   phones,
		runner:   runner,
		currency: currency,
		logger:   logger,
	}
}

// DepositLedgerID is the ledger id of the deposit the partner calls
// externalID.
func DepositLedgerID(externalID string) string {
	return "deposit" + validation.KeySeparator + externalID
}

// Accept validates req and schedules it.
func (p *DepositProcessor) Accept(req DepositRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := validation.Amount(req.Amount); err != nil {
		return err
	}
	p.runner.Go("external_deposit", func(ctx context.Context) error {
		return p.Process(ctx, req)
	}, zap.String("external_transaction_id", req.ExternalTransactionID))
	return nil
}

// Process resolves the destination wallet and credits it.
func (p *DepositProcessor) Process(ctx context.Context, req DepositRequest) error {
	userID, err := p.phones.ResolvePhone(ctx, req.DestinationPhone)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", req.DestinationPhone, err)
	}
	wallet, err := p.ledger.GetBalance(ctx, userID)
	if err != nil {
		return fmt.Errorf("wallet of user %d: %w", userID, err)
	}
	credited, err := p.ledger.Credit(ctx, ledger.OperationRequest{
		WalletID:              wallet.ID,
		Amount:                req.Amount,
		Currency:              p.currency,
		ExternalTransactionID: DepositLedgerID(req.ExternalTransactionID),
		CounterpartyID:        CounterpartyExternal,
	})
	if err != nil {
		return fmt.Errorf("credit wallet %d: %w", wallet.ID, err)
	}
	p.logger.Info("external deposit credited",
		zap.String("external_transaction_id", req.ExternalTransactionID),
		zap.Uint("wallet_id", credited.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("balance", credited.Balance.String()))
	return nil
}

// Wait blocks until scheduled deposits finished or ctx is done.
func (p *DepositProcessor) Wait(ctx context.Context) error {
	return p.runner.Wait(ctx)
}
