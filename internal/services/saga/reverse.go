package saga

import (
	"context"
	"errors"
	"fmt"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/repositories"
	"walletsaga/internal/services/ledger"

	"go.uber.org/zap"
)

// Reverse unwinds a completed internal transfer: both ledger legs are
// compensated, then a mirror record is written and the original marked
// reversed in one local transaction.
func (s *service) Reverse(ctx context.Context, transactionID uint) (*ReverseResult, error) {
	orig, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, s.recordError(transactionID, err)
	}
	if err := reversible(orig); err != nil {
		return nil, err
	}

	key := orig.IdempotencyKey
	logger := s.logger.With(zap.String("kind", KindReverse), zap.Uint("transaction_id", transactionID))

	if _, err := s.repo.GetByIdempotencyKey(ctx, reversalKey(key)); err == nil {
		return nil, apperrors.ErrAlreadyReversed
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return nil, s.recordError(transactionID, err)
	}

	// credit leg first: the receiver must still hold the funds
	legs := []ledger.CompensationRequest{
		{OriginalExternalTransactionID: key + "-credit", CompensationTransactionID: derivedID("reverse", key, "credit")},
		{OriginalExternalTransactionID: key + "-debit", CompensationTransactionID: derivedID("reverse", key, "debit")},
	}
	err = s.step(KindReverse+"_compensate", func() error {
		_, err := s.ledger.Compensate(ctx, legs[0])
		return err
	})
	if err != nil {
		logger.Info("reverse rejected by ledger", zap.Error(err))
		s.metrics.RecordSagaOutcome(KindReverse, string(StateFailed))
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	err = s.step(KindReverse+"_compensate", func() error {
		_, err := s.ledger.Compensate(ctx, legs[1])
		return err
	})
	if err != nil {
		logger.Error("reverse compensated the credit leg only, transfer needs manual reconciliation",
			zap.String("original", legs[1].OriginalExternalTransactionID), zap.Error(err))
		s.metrics.RecordSagaOutcome(KindReverse, string(StateCompensationFailed))
		return nil, apperrors.ErrInconsistentState
	}

	var reversal *models.Transaction
	err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.TransactionRepository) error {
		locked, err := tx.LockByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := reversible(locked); err != nil {
			return err
		}
		reversal = mirror(locked)
		if err := tx.Create(ctx, reversal); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, transactionID, models.TransactionStatusReversed)
	})
	if errors.Is(err, repositories.ErrDuplicateTransaction) {
		logger.Error("ledger reversed but a reversal record already exists, transfer needs manual reconciliation",
			zap.String("reversal_key", reversalKey(key)), zap.Error(err))
		s.metrics.RecordSagaOutcome(KindReverse, string(StateCompensated))
		return nil, apperrors.ErrInconsistentState
	}
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			logger.Error("ledger reversed but local bookkeeping failed", zap.Error(err))
		}
		s.metrics.RecordSagaOutcome(KindReverse, string(StateCompensated))
		return nil, s.recordError(transactionID, err)
	}

	s.notifier.Notify(ctx, transactionID, models.TransactionStatusReversed)
	s.notifier.Notify(ctx, reversal.ID, reversal.Status)

	orig.Status = models.TransactionStatusReversed
	s.guard.Complete(ctx, "transfer:"+key, receipt{Result: resultOf(orig)})

	s.metrics.RecordSagaOutcome(KindReverse, string(StateNotified))
	logger.Info("transfer reversed", zap.Uint("reversal_id", reversal.ID))
	return &ReverseResult{
		Message:          "transaction reversed",
		NewTransactionID: reversal.ID,
	}, nil
}

func reversible(tx *models.Transaction) error {
	switch {
	case tx.Status == models.TransactionStatusReversed:
		return apperrors.ErrAlreadyReversed
	case tx.Status != models.TransactionStatusCompleted:
		return apperrors.ErrNotReversible.WithMessage(
			fmt.Sprintf("transaction %d is %s", tx.ID, tx.Status))
	case tx.Type == models.TransactionTypeExternal:
		return apperrors.ErrNotReversible.WithMessage("interbank transfers cannot be reversed")
	case tx.ReversalOf != nil:
		return apperrors.ErrNotReversible.WithMessage("a reversal cannot itself be reversed")
	}
	return nil
}

func reversalKey(key string) string {
	return derivedID("reverse", key)
}

// mirror builds the record of orig's reversal: wallets swapped.
func mirror(orig *models.Transaction) *models.Transaction {
	id := orig.ID
	return &models.Transaction{
		IdempotencyKey: reversalKey(orig.IdempotencyKey),
		SenderWallet:   orig.ReceiverWallet,
		ReceiverWallet: orig.SenderWallet,
		Amount:         orig.Amount,
		Currency:       orig.Currency,
		Status:         models.TransactionStatusCompleted,
		Type:           models.TransactionTypeInternal,
		ReversalOf:     &id,
		LedgerEntries: []models.TransactionLedger{
			{
				WalletID:       orig.ReceiverWallet,
				Amount:         orig.Amount,
				Type:           models.LedgerRowDebit,
				CounterpartyID: walletRef(orig.SenderWallet),
				Description:    fmt.Sprintf("reversal of transaction %d", orig.ID),
			},
			{
				WalletID:       orig.SenderWallet,
				Amount:         orig.Amount,
				Type:           models.LedgerRowCredit,
				CounterpartyID: walletRef(orig.ReceiverWallet),
				Description:    fmt.Sprintf("reversal of transaction %d", orig.ID),
			},
		},
	}
}
