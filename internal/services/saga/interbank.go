package saga

import (
	"context"
	"fmt"
	"net/http"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/services/ledger"
	"walletsaga/internal/validation"
)

// Interbank sends funds to a wallet held at another app through the central
// clearing house. The clearing call takes the place of the credit leg; once
// it settled it cannot be undone from here.
func (s *service) Interbank(ctx context.Context, req InterbankRequest) (*Outcome, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validation.Amount(req.Amount); err != nil {
		return nil, err
	}
	if s.clearing == nil {
		return nil, apperrors.ErrClearingFailed.
			WithMessage("interbank clearing is not configured").
			WithStatus(http.StatusServiceUnavailable)
	}

	key := derivedID("ext", req.IdempotencyKey)
	currency := s.currency(req.Currency)

	p := plan{
		kind:      KindInterbank,
		key:       req.IdempotencyKey,
		recordKey: key,
		cacheKey:  "interbank:" + req.IdempotencyKey,
		debit: ledger.OperationRequest{
			WalletID:              req.SenderWallet,
			Amount:                req.Amount,
			Currency:              currency,
			ExternalTransactionID: key,
			CounterpartyID:        req.TargetPhone,
		},
		credit: func(ctx context.Context) (string, error) {
			rc, err := s.clearing.SendTransfer(ctx, ClearingRequest{
				From:   req.MyPhone,
				To:     req.TargetPhone,
				App:    req.TargetApp,
				Amount: req.Amount,
			}, req.AuthToken)
			if err != nil {
				return "", err
			}
			return counterpartyName(rc, req.TargetApp), nil
		},
		onCreditFailure: []ledger.CompensationRequest{
			{OriginalExternalTransactionID: key, CompensationTransactionID: derivedID("rollback", key)},
		},
		record: func(counterparty string) *models.Transaction {
			return &models.Transaction{
				IdempotencyKey: key,
				SenderWallet:   req.SenderWallet,
				Amount:         req.Amount,
				Currency:       currency,
				Status:         models.TransactionStatusCompleted,
				Type:           models.TransactionTypeExternal,
				LedgerEntries: []models.TransactionLedger{
					{
						WalletID:       req.SenderWallet,
						Amount:         req.Amount,
						Type:           models.LedgerRowDebit,
						CounterpartyID: req.TargetPhone,
						Description:    fmt.Sprintf("interbank transfer to %s via %s", req.TargetPhone, req.TargetApp),
					},
				},
			}
		},
	}
	return s.execute(ctx, p)
}

func counterpartyName(rc *ClearingReceipt, targetApp string) string {
	if rc == nil || rc.UserName == "" {
		return ExternalCounterparty
	}
	app := rc.AppName
	if app == "" {
		app = targetApp
	}
	return fmt.Sprintf("%s (%s)", rc.UserName, app)
}
