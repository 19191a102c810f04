package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/repositories"
	"walletsaga/internal/validation"

	"go.uber.org/zap"
)

// errReplay aborts a unit of work whose external id is already recorded.
var errReplay = errors.New("external transaction already applied")

type service struct {
	repo      repositories.WalletRepository
	directory Directory
	config    Config
	metrics   MetricsCollector
	logger    *zap.Logger
}

// NewService creates a new ledger service. directory may be nil, in which
// case ledger details fall back to UnknownCounterparty.
func NewService(
	repo repositories.WalletRepository,
	directory Directory,
	config Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		repo:      repo,
		directory: directory,
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *service) Create(ctx context.Context, req CreateWalletRequest) (*models.Wallet, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(OpCreate, time.Since(start)) }()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.config.DefaultCurrency
	}
	wallet := &models.Wallet{
		UserID:   req.UserID,
		Currency: currency,
		Status:   models.WalletStatusActive,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return nil, apperrors.ErrDuplicateWallet.WithMessage(
				fmt.Sprintf("user %d already has a wallet", req.UserID))
		}
		return nil, s.storageError(OpCreate, err)
	}

	s.logger.Info("wallet created",
		zap.Uint("wallet_id", wallet.ID),
		zap.Uint("user_id", wallet.UserID),
		zap.String("currency", wallet.Currency))
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound.WithMessage(
				fmt.Sprintf("no wallet for user %d", userID))
		}
		return nil, s.storageError("get_balance", err)
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetByID(ctx, walletID)
	if err != nil {
		return nil, s.walletError("get_wallet", walletID, err)
	}
	return wallet, nil
}

func (s *service) UpdateStatus(ctx context.Context, walletID uint, status string) (*models.Wallet, error) {
	if err := validation.WalletStatus(status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, walletID, status); err != nil {
		return nil, s.walletError("update_status", walletID, err)
	}
	s.logger.Info("wallet status changed", zap.Uint("wallet_id", walletID), zap.String("status", status))
	return s.GetWallet(ctx, walletID)
}

func (s *service) Credit(ctx context.Context, req OperationRequest) (*models.Wallet, error) {
	return s.apply(ctx, OpCredit, req)
}

func (s *service) Debit(ctx context.Context, req OperationRequest) (*models.Wallet, error) {
	return s.apply(ctx, OpDebit, req)
}

// apply runs one credit or debit as a single unit of work: replay check,
// wallet lock, rule checks, balance write and entry append.
func (s *service) apply(ctx context.Context, op string, req OperationRequest) (*models.Wallet, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(op, time.Since(start)) }()

	if err := s.validateOperation(req); err != nil {
		s.metrics.RecordOperationResult(op, ResultRejected)
		return nil, err
	}

	var updated *models.Wallet
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
		if existing, err := tx.FindEntryByExternalID(ctx, req.ExternalTransactionID); err == nil {
			if !sameOperation(existing, op, req) {
				return reusedID(req.ExternalTransactionID, existing)
			}
			return errReplay
		} else if !errors.Is(err, repositories.ErrEntryNotFound) {
			return err
		}

		wallet, err := tx.LockByID(ctx, req.WalletID)
		if err != nil {
			return err
		}
		if !wallet.IsActive() {
			return apperrors.ErrWalletInactive.WithMessage(
				fmt.Sprintf("wallet %d is %s", wallet.ID, wallet.Status))
		}
		if req.Currency != "" && !strings.EqualFold(req.Currency, wallet.Currency) {
			return apperrors.ErrCurrencyMismatch.WithMessage(
				fmt.Sprintf("wallet %d holds %s, request is in %s", wallet.ID, wallet.Currency, strings.ToUpper(req.Currency)))
		}

		before := wallet.Balance
		after := before.Add(req.Amount)
		entryType := models.EntryTypeCredit
		if op == OpDebit {
			if before.LessThan(req.Amount) {
				return apperrors.ErrInsufficientFunds.WithMessage(
					fmt.Sprintf("wallet %d balance %s is below %s", wallet.ID, before.StringFixed(2), req.Amount.StringFixed(2)))
			}
			after = before.Sub(req.Amount)
			entryType = models.EntryTypeDebit
		}

		wallet.Balance = after
		if err := tx.UpdateBalance(ctx, wallet); err != nil {
			return err
		}
		entry := &models.LedgerEntry{
			WalletID:              wallet.ID,
			CounterpartyID:        req.CounterpartyID,
			ExternalTransactionID: req.ExternalTransactionID,
			Type:                  entryType,
			Amount:                req.Amount,
			BalanceBefore:         before,
			BalanceAfter:          after,
			Status:                models.EntryStatusCompleted,
			Description:           describe(entryType, req.CounterpartyID),
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		updated = wallet
		return nil
	})

	switch {
	case err == nil:
		s.metrics.RecordOperationResult(op, ResultApplied)
		s.logger.Info("ledger entry applied",
			zap.String("operation", op),
			zap.Uint("wallet_id", updated.ID),
			zap.String("external_transaction_id", req.ExternalTransactionID),
			zap.String("amount", req.Amount.String()),
			zap.String("balance", updated.Balance.String()))
		return updated, nil
	case errors.Is(err, repositories.ErrDuplicateEntry):
		// a concurrent request won the insert
		existing, ferr := s.repo.FindEntryByExternalID(ctx, req.ExternalTransactionID)
		if ferr != nil {
			s.metrics.RecordOperationResult(op, ResultFailed)
			return nil, s.storageError(op, ferr)
		}
		if !sameOperation(existing, op, req) {
			s.metrics.RecordOperationResult(op, ResultRejected)
			return nil, reusedID(req.ExternalTransactionID, existing)
		}
		fallthrough
	case errors.Is(err, errReplay):
		s.metrics.RecordOperationResult(op, ResultReplayed)
		s.logger.Info("idempotent replay",
			zap.String("operation", op),
			zap.String("external_transaction_id", req.ExternalTransactionID))
		return s.GetWallet(ctx, req.WalletID)
	default:
		s.metrics.RecordOperationResult(op, resultOf(err))
		return nil, s.walletError(op, req.WalletID, err)
	}
}

// sameOperation reports whether entry records the credit or debit described
// by req. A replay is only a replay when wallet, type and amount all match.
func sameOperation(entry *models.LedgerEntry, op string, req OperationRequest) bool {
	want := models.EntryTypeCredit
	if op == OpDebit {
		want = models.EntryTypeDebit
	}
	return entry.WalletID == req.WalletID && entry.Type == want && entry.Amount.Equal(req.Amount)
}

func sameCompensation(entry *models.LedgerEntry, req CompensationRequest) bool {
	return entry.Type == models.EntryTypeCompensation &&
		entry.OriginalTxID != nil && *entry.OriginalTxID == req.OriginalExternalTransactionID
}

func reusedID(id string, existing *models.LedgerEntry) error {
	return apperrors.ErrExternalIDReused.WithMessage(
		fmt.Sprintf("%s is already recorded as a %s of %s on wallet %d",
			id, existing.Type, existing.Amount.StringFixed(2), existing.WalletID))
}

// Compensate appends the inverse of the entry recorded under
// OriginalExternalTransactionID. It is idempotent on
// CompensationTransactionID, and an entry can be compensated only once.
func (s *service) Compensate(ctx context.Context, req CompensationRequest) (*models.LedgerEntry, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(OpCompensate, time.Since(start)) }()

	if err := validation.Struct(req); err != nil {
		s.metrics.RecordOperationResult(OpCompensate, ResultRejected)
		return nil, err
	}

	var result *models.LedgerEntry
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.WalletRepository) error {
		if existing, err := tx.FindEntryByExternalID(ctx, req.CompensationTransactionID); err == nil {
			if !sameCompensation(existing, req) {
				return reusedID(req.CompensationTransactionID, existing)
			}
			result = existing
			return errReplay
		} else if !errors.Is(err, repositories.ErrEntryNotFound) {
			return err
		}

		original, err := tx.FindEntryByExternalID(ctx, req.OriginalExternalTransactionID)
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return apperrors.ErrLedgerEntryNotFound.WithMessage(
				fmt.Sprintf("no ledger entry for %s", req.OriginalExternalTransactionID))
		}
		if err != nil {
			return err
		}
		if original.Type == models.EntryTypeCompensation {
			return apperrors.ErrNotCompensable
		}

		wallet, err := tx.LockByID(ctx, original.WalletID)
		if err != nil {
			return err
		}

		if _, err := tx.FindCompensation(ctx, original.ExternalTransactionID); err == nil {
			return apperrors.ErrAlreadyCompensated.WithMessage(
				fmt.Sprintf("%s was already compensated", original.ExternalTransactionID))
		} else if !errors.Is(err, repositories.ErrEntryNotFound) {
			return err
		}

		before := wallet.Balance
		after := before.Add(original.Amount)
		if original.Type == models.EntryTypeCredit {
			if before.LessThan(original.Amount) {
				return apperrors.ErrInsufficientFundsForCompensation.WithMessage(
					fmt.Sprintf("wallet %d balance %s cannot cover reversal of %s",
						wallet.ID, before.StringFixed(2), original.Amount.StringFixed(2)))
			}
			after = before.Sub(original.Amount)
		}

		wallet.Balance = after
		if err := tx.UpdateBalance(ctx, wallet); err != nil {
			return err
		}
		originalID := original.ExternalTransactionID
		entry := &models.LedgerEntry{
			WalletID:              wallet.ID,
			CounterpartyID:        original.CounterpartyID,
			ExternalTransactionID: req.CompensationTransactionID,
			OriginalTxID:          &originalID,
			Type:                  models.EntryTypeCompensation,
			Amount:                original.Amount,
			BalanceBefore:         before,
			BalanceAfter:          after,
			Status:                models.EntryStatusCompleted,
			Description:           fmt.Sprintf("Compensation of %s (TX: %s)", original.Type, original.ExternalTransactionID),
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return err
		}
		result = entry
		return nil
	})

	switch {
	case err == nil:
		s.metrics.RecordOperationResult(OpCompensate, ResultApplied)
		s.logger.Info("compensation applied",
			zap.String("original_transaction_id", req.OriginalExternalTransactionID),
			zap.String("compensation_transaction_id", req.CompensationTransactionID),
			zap.Uint("wallet_id", result.WalletID),
			zap.String("balance", result.BalanceAfter.String()))
		return result, nil
	case errors.Is(err, errReplay):
		s.metrics.RecordOperationResult(OpCompensate, ResultReplayed)
		return result, nil
	case errors.Is(err, repositories.ErrDuplicateEntry):
		// a concurrent request won the insert
		if existing, ferr := s.repo.FindEntryByExternalID(ctx, req.CompensationTransactionID); ferr == nil {
			if !sameCompensation(existing, req) {
				s.metrics.RecordOperationResult(OpCompensate, ResultRejected)
				return nil, reusedID(req.CompensationTransactionID, existing)
			}
			s.metrics.RecordOperationResult(OpCompensate, ResultReplayed)
			return existing, nil
		}
		s.metrics.RecordOperationResult(OpCompensate, ResultRejected)
		return nil, apperrors.ErrAlreadyCompensated.WithMessage(
			fmt.Sprintf("%s was already compensated", req.OriginalExternalTransactionID))
	default:
		s.metrics.RecordOperationResult(OpCompensate, resultOf(err))
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, s.storageError(OpCompensate, err)
	}
}

func (s *service) GetLedger(ctx context.Context, walletID uint) ([]models.LedgerEntry, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, walletID)
	if err != nil {
		return nil, s.storageError("get_ledger", err)
	}
	return entries, nil
}

func (s *service) validateOperation(req OperationRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	return validation.Amount(req.Amount)
}

// walletError maps repository failures to domain errors.
func (s *service) walletError(op string, walletID uint, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return apperrors.ErrWalletNotFound.WithMessage(fmt.Sprintf("wallet %d not found", walletID))
	}
	return s.storageError(op, err)
}

func (s *service) storageError(op string, err error) error {
	s.logger.Error("ledger storage failure", zap.String("operation", op), zap.Error(err))
	return apperrors.ErrStorage
}

func resultOf(err error) string {
	if de, ok := apperrors.As(err); ok && de.Kind != apperrors.KindDependencyFailure {
		return ResultRejected
	}
	return ResultFailed
}

func describe(entryType, counterparty string) string {
	if counterparty == "" {
		return entryType
	}
	if entryType == models.EntryTypeDebit {
		return "Transfer to " + counterparty
	}
	return "Transfer from " + counterparty
}

