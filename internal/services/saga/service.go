package saga

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/repositories"
	"walletsaga/internal/services/idempotency"
	"walletsaga/internal/services/ledger"
	"walletsaga/internal/validation"

	"go.uber.org/zap"
)

// Service orchestrates transfers across the ledger engine.
type Service interface {
	Transfer(ctx context.Context, req TransferRequest) (*Outcome, error)
	Interbank(ctx context.Context, req InterbankRequest) (*Outcome, error)
	Reverse(ctx context.Context, transactionID uint) (*ReverseResult, error)
	GetTransfer(ctx context.Context, transactionID uint) (*models.Transaction, error)
	ListTransfers(ctx context.Context, limit, offset int) ([]models.Transaction, int64, error)
}

type Config struct {
	Ledger          LedgerClient
	Clearing        Clearing
	Repo            repositories.TransactionRepository
	Guard           *idempotency.Guard
	Notifier        Notifier
	Metrics         MetricsCollector
	Logger          *zap.Logger
	DefaultCurrency string
}

type service struct {
	ledger          LedgerClient
	clearing        Clearing
	repo            repositories.TransactionRepository
	guard           *idempotency.Guard
	notifier        Notifier
	metrics         MetricsCollector
	logger          *zap.Logger
	defaultCurrency string
}

// NewService creates a new saga orchestrator. A nil Guard disables the
// idempotency cache; the durable records still deduplicate requests.
func NewService(config Config) Service {
	if config.Ledger == nil {
		panic("ledger client is required")
	}
	if config.Repo == nil {
		panic("transaction repository is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Guard == nil {
		config.Guard = idempotency.NewGuard(nil, idempotency.Config{}, config.Logger)
	}
	if config.Notifier == nil {
		config.Notifier = noopNotifier{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetricsCollector{}
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = ledger.DefaultCurrency
	}

	return &service{
		ledger:          config.Ledger,
		clearing:        config.Clearing,
		repo:            config.Repo,
		guard:           config.Guard,
		notifier:        config.Notifier,
		metrics:         config.Metrics,
		logger:          config.Logger,
		defaultCurrency: strings.ToUpper(config.DefaultCurrency),
	}
}

// plan is one saga instance: a debit leg, a counterpart leg and the
// compensations that undo them.
type plan struct {
	kind      string
	key       string
	recordKey string
	cacheKey  string

	debit ledger.OperationRequest
	// credit runs the counterpart leg and returns the counterparty to record.
	credit func(ctx context.Context) (string, error)

	onCreditFailure []ledger.CompensationRequest
	// onPersistFailure undoes both legs. Nil means the counterpart leg
	// cannot be undone.
	onPersistFailure []ledger.CompensationRequest

	record func(counterparty string) *models.Transaction
}

type run struct {
	kind   string
	state  State
	trail  []State
	logger *zap.Logger
}

func (r *run) fire(ev Event) {
	next, err := Transition(r.state, ev)
	if err != nil {
		r.logger.Error("saga transition rejected", zap.Error(err))
		return
	}
	r.logger.Debug("saga step",
		zap.String("from", string(r.state)),
		zap.String("event", string(ev)),
		zap.String("to", string(next)))
	r.state = next
	r.trail = append(r.trail, next)
}

func (r *run) path() string {
	parts := make([]string, len(r.trail))
	for i, st := range r.trail {
		parts[i] = string(st)
	}
	return strings.Join(parts, ">")
}

var errIrreversible = errors.New("counterpart leg already settled and cannot be undone")

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*Outcome, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validation.Amount(req.Amount); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	currency := s.currency(req.Currency)
	sender := walletRef(req.SenderWallet)
	receiver := walletRef(req.ReceiverWallet)

	p := plan{
		kind:      KindTransfer,
		key:       key,
		recordKey: key,
		cacheKey:  "transfer:" + key,
		debit: ledger.OperationRequest{
			WalletID:              req.SenderWallet,
			Amount:                req.Amount,
			Currency:              currency,
			ExternalTransactionID: key + "-debit",
			CounterpartyID:        receiver,
		},
		credit: func(ctx context.Context) (string, error) {
			_, err := s.ledger.Credit(ctx, ledger.OperationRequest{
				WalletID:              req.ReceiverWallet,
				Amount:                req.Amount,
				Currency:              currency,
				ExternalTransactionID: key + "-credit",
				CounterpartyID:        sender,
			})
			return "", err
		},
		onCreditFailure: []ledger.CompensationRequest{
			{OriginalExternalTransactionID: key + "-debit", CompensationTransactionID: "rollback-" + key},
		},
		onPersistFailure: []ledger.CompensationRequest{
			{OriginalExternalTransactionID: key + "-credit", CompensationTransactionID: derivedID("rollback", key, "credit")},
			{OriginalExternalTransactionID: key + "-debit", CompensationTransactionID: "rollback-" + key},
		},
		record: func(string) *models.Transaction {
			return &models.Transaction{
				IdempotencyKey: key,
				SenderWallet:   req.SenderWallet,
				ReceiverWallet: req.ReceiverWallet,
				Amount:         req.Amount,
				Currency:       currency,
				Status:         models.TransactionStatusCompleted,
				Type:           models.TransactionTypeInternal,
				LedgerEntries: []models.TransactionLedger{
					{
						WalletID:       req.SenderWallet,
						Amount:         req.Amount,
						Type:           models.LedgerRowDebit,
						CounterpartyID: receiver,
						Description:    fmt.Sprintf("transfer to wallet %d", req.ReceiverWallet),
					},
					{
						WalletID:       req.ReceiverWallet,
						Amount:         req.Amount,
						Type:           models.LedgerRowCredit,
						CounterpartyID: sender,
						Description:    fmt.Sprintf("transfer from wallet %d", req.SenderWallet),
					},
				},
			}
		},
	}
	return s.execute(ctx, p)
}

// execute drives p through the state machine.
func (s *service) execute(ctx context.Context, p plan) (*Outcome, error) {
	var cached receipt
	switch s.guard.Claim(ctx, p.cacheKey, &cached) {
	case idempotency.Completed:
		s.logger.Info("idempotent replay from cache", zap.String("kind", p.kind), zap.String("key", p.key))
		return replay(cached)
	case idempotency.InProgress:
		return nil, apperrors.ErrTransferInProgress
	}

	existing, err := s.repo.GetByIdempotencyKey(ctx, p.recordKey)
	switch {
	case err == nil:
		s.logger.Info("idempotent replay from record", zap.String("kind", p.kind), zap.String("key", p.key))
		rc := receiptOf(existing)
		s.guard.Complete(ctx, p.cacheKey, rc)
		return replay(rc)
	case !errors.Is(err, repositories.ErrTransactionNotFound):
		s.guard.Release(ctx, p.cacheKey)
		s.logger.Error("failed to check transfer record", zap.String("key", p.key), zap.Error(err))
		return nil, apperrors.ErrStorage
	}

	r := &run{
		kind:   p.kind,
		state:  StateStarted,
		trail:  []State{StateStarted},
		logger: s.logger.With(zap.String("kind", p.kind), zap.String("key", p.key)),
	}

	err = s.step(p.kind+"_debit", func() error {
		_, err := s.ledger.Debit(ctx, p.debit)
		return err
	})
	if err != nil && uncertain(err) {
		r.logger.Warn("debit outcome unknown, reconciling", zap.Error(err))
		return nil, s.reconcileDebit(ctx, r, p, err)
	}
	if err != nil {
		r.fire(EventDebitFailed)
		r.logger.Info("debit leg rejected", zap.Error(err))
		s.guard.Release(ctx, p.cacheKey)
		s.finish(r)
		return nil, err
	}
	r.fire(EventDebitSucceeded)

	var counterparty string
	err = s.step(p.kind+"_credit", func() error {
		var err error
		counterparty, err = p.credit(ctx)
		return err
	})
	if err != nil {
		r.fire(EventCreditFailed)
		r.logger.Warn("credit leg failed, compensating debit", zap.Error(err))
		return nil, s.unwind(ctx, r, p, p.onCreditFailure, err)
	}
	r.fire(EventCreditSucceeded)

	tx := p.record(counterparty)
	tx.Counterparty = counterparty
	tx.SagaState = string(StatePersisted)
	err = s.step(p.kind+"_persist", func() error {
		return s.repo.Create(ctx, tx)
	})
	if errors.Is(err, repositories.ErrDuplicateTransaction) {
		// a concurrent request for the same key committed first
		existing, lerr := s.repo.GetByIdempotencyKey(ctx, p.recordKey)
		if lerr == nil {
			rc := receiptOf(existing)
			s.guard.Complete(ctx, p.cacheKey, rc)
			return replay(rc)
		}
		err = lerr
	}
	if err != nil {
		r.fire(EventPersistFailed)
		r.logger.Error("failed to persist transfer record, compensating", zap.Error(err))
		return nil, s.unwind(ctx, r, p, p.onPersistFailure,
			apperrors.ErrStorage.WithMessage("failed to record transfer"))
	}
	r.fire(EventPersisted)

	s.notifier.Notify(ctx, tx.ID, tx.Status)
	r.fire(EventNotified)

	result := resultOf(tx)
	s.guard.Complete(ctx, p.cacheKey, receipt{Result: result})
	s.finish(r)
	r.logger.Info("transfer completed",
		zap.Uint("transaction_id", tx.ID),
		zap.String("amount", tx.Amount.String()),
		zap.String("currency", tx.Currency))
	return &Outcome{Result: result, State: r.state}, nil
}

// unwind runs the compensations after a failed leg and records the
// terminal outcome. It returns the error the caller sees.
func (s *service) unwind(ctx context.Context, r *run, p plan, comps []ledger.CompensationRequest, cause error) error {
	// compensation must run even if the client went away
	ctx = context.WithoutCancel(ctx)

	final := domainError(cause)
	if err := s.compensate(ctx, r, comps); err != nil {
		r.fire(EventCompensationFailed)
		final = apperrors.ErrInconsistentState
		r.logger.Error("compensation failed, transfer needs manual reconciliation",
			zap.NamedError("cause", cause),
			zap.Error(err),
			zap.String("trail", r.path()),
			zap.Uint("sender_wallet", p.debit.WalletID),
			zap.String("amount", p.debit.Amount.String()))
	} else {
		r.fire(EventCompensated)
		r.logger.Info("transfer compensated", zap.String("trail", r.path()))
	}
	return s.conclude(ctx, r, p, final)
}

// reconcileDebit settles a debit whose outcome is unknown by undoing it
// once. When the ledger never saw the debit the key is released so the
// client can retry.
func (s *service) reconcileDebit(ctx context.Context, r *run, p plan, cause error) error {
	ctx = context.WithoutCancel(ctx)
	r.fire(EventDebitUnconfirmed)

	undo := p.onCreditFailure[0]
	err := s.step(r.kind+"_compensate", func() error {
		_, err := s.ledger.Compensate(ctx, undo)
		return err
	})
	switch {
	case errors.Is(err, apperrors.ErrLedgerEntryNotFound):
		r.fire(EventCompensated)
		r.logger.Info("debit never reached the ledger", zap.String("original", undo.OriginalExternalTransactionID))
		s.guard.Release(ctx, p.cacheKey)
		s.finish(r)
		return cause
	case err == nil, errors.Is(err, apperrors.ErrAlreadyCompensated):
		r.fire(EventCompensated)
		r.logger.Info("unconfirmed debit compensated", zap.String("trail", r.path()))
		return s.conclude(ctx, r, p, domainError(cause))
	default:
		r.fire(EventCompensationFailed)
		r.logger.Error("unconfirmed debit could not be compensated, transfer needs manual reconciliation",
			zap.NamedError("cause", cause),
			zap.Error(err),
			zap.String("trail", r.path()),
			zap.Uint("sender_wallet", p.debit.WalletID),
			zap.String("amount", p.debit.Amount.String()))
		return s.conclude(ctx, r, p, apperrors.ErrInconsistentState)
	}
}

// conclude records a failed saga and caches its answer for replays.
func (s *service) conclude(ctx context.Context, r *run, p plan, final *apperrors.DomainError) error {
	s.recordFailure(ctx, r, p, final)
	s.guard.Complete(ctx, p.cacheKey, receipt{Error: final})
	s.finish(r)
	return final
}

func (s *service) compensate(ctx context.Context, r *run, comps []ledger.CompensationRequest) error {
	if comps == nil {
		return errIrreversible
	}
	for _, c := range comps {
		err := s.step(r.kind+"_compensate", func() error {
			_, err := s.ledger.Compensate(ctx, c)
			return err
		})
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrLedgerEntryNotFound):
			// the leg never reached the ledger
			r.logger.Info("nothing to compensate", zap.String("original", c.OriginalExternalTransactionID))
		case errors.Is(err, apperrors.ErrAlreadyCompensated):
		default:
			return fmt.Errorf("compensate %s: %w", c.OriginalExternalTransactionID, err)
		}
	}
	return nil
}

// recordFailure persists the failed transfer so replays without the cache
// still answer with the same error.
func (s *service) recordFailure(ctx context.Context, r *run, p plan, derr *apperrors.DomainError) {
	tx := p.record("")
	tx.LedgerEntries = nil
	tx.Status = models.TransactionStatusFailed
	tx.SagaState = string(r.state)
	tx.FailureKind = string(derr.Kind)
	tx.FailureCode = derr.Code
	tx.FailureMessage = truncate(derr.Message, 255)
	tx.FailureStatus = derr.HTTPStatus()
	if err := s.repo.Create(ctx, tx); err != nil {
		r.logger.Error("failed to record failed transfer", zap.Error(err))
	}
}

func (s *service) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.RecordStepDuration(name, time.Since(start))
	return err
}

func (s *service) finish(r *run) {
	s.metrics.RecordSagaOutcome(r.kind, string(r.state))
	fields := []zap.Field{zap.String("state", string(r.state)), zap.String("trail", r.path())}
	if r.state.Succeeded() {
		r.logger.Info("saga finished", fields...)
		return
	}
	r.logger.Warn("saga finished without transfer", fields...)
}

func (s *service) GetTransfer(ctx context.Context, transactionID uint) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, s.recordError(transactionID, err)
	}
	return tx, nil
}

func (s *service) ListTransfers(ctx context.Context, limit, offset int) ([]models.Transaction, int64, error) {
	txs, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list transfers", zap.Error(err))
		return nil, 0, apperrors.ErrStorage
	}
	return txs, total, nil
}

func (s *service) recordError(transactionID uint, err error) error {
	if errors.Is(err, repositories.ErrTransactionNotFound) {
		return apperrors.ErrTransactionNotFound.WithMessage(
			fmt.Sprintf("transaction %d not found", transactionID))
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	s.logger.Error("transaction storage failure", zap.Uint("transaction_id", transactionID), zap.Error(err))
	return apperrors.ErrStorage
}

func (s *service) currency(requested string) string {
	if requested == "" {
		return s.defaultCurrency
	}
	return strings.ToUpper(requested)
}

func receiptOf(tx *models.Transaction) receipt {
	if tx.Status == models.TransactionStatusFailed {
		return receipt{Error: apperrors.New(
			apperrors.Kind(tx.FailureKind), tx.FailureCode, tx.FailureMessage, tx.FailureStatus)}
	}
	return receipt{Result: resultOf(tx)}
}

func replay(rc receipt) (*Outcome, error) {
	if rc.Error != nil {
		return nil, rc.Error
	}
	if rc.Result == nil {
		return nil, apperrors.ErrTransferInProgress
	}
	return &Outcome{Result: rc.Result, Replayed: true, State: StateNotified}, nil
}

func resultOf(tx *models.Transaction) *TransferResult {
	return &TransferResult{
		TransactionID:  tx.ID,
		Status:         tx.Status,
		Type:           tx.Type,
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		SenderWallet:   tx.SenderWallet,
		ReceiverWallet: tx.ReceiverWallet,
		Counterparty:   tx.Counterparty,
		CreatedAt:      tx.CreatedAt,
	}
}

// domainError keeps domain errors as they are; anything else is reported
// as an unavailable ledger.
func domainError(err error) *apperrors.DomainError {
	if de, ok := apperrors.As(err); ok {
		return de
	}
	return apperrors.ErrLedgerUnavailable.WithMessage(err.Error())
}

// uncertain reports whether err leaves a ledger call's outcome unknown.
func uncertain(err error) bool {
	de, ok := apperrors.As(err)
	return !ok || de.Kind == apperrors.KindDependencyFailure
}

// derivedID builds a ledger or record id owned by the orchestrator. Client
// keys cannot contain the separator, so these ids never clash with them.
func derivedID(parts ...string) string {
	return strings.Join(parts, validation.KeySeparator)
}

func walletRef(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
