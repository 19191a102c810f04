package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"

	apperrors "walletsaga/internal/errors"
	"walletsaga/internal/models"
	"walletsaga/internal/repositories"
	"walletsaga/internal/services/ledger"
	"walletsaga/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeDirectory struct {
	profiles []models.UserProfile
	err      error
	calls    int
}

func (d *fakeDirectory) BatchInfo(_ context.Context, userIDs []uint) ([]models.UserProfile, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	var out []models.UserProfile
	for _, p := range d.profiles {
		for _, id := range userIDs {
			if p.UserID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func newService(t *testing.T, directory ledger.Directory) (ledger.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := ledger.NewService(
		repositories.NewWalletRepository(db),
		directory,
		ledger.Config{DefaultCurrency: "SOL"},
		nil,
		zaptest.NewLogger(t),
	)
	return svc, db
}

// seedWallet opens a wallet for userID and funds it with amount.
func seedWallet(t *testing.T, svc ledger.Service, userID uint, amount string) *models.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := svc.Create(ctx, ledger.CreateWalletRequest{UserID: userID})
	require.NoError(t, err)
	if amount == "0" {
		return w
	}
	w, err = svc.Credit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount(amount),
		ExternalTransactionID: fmt.Sprintf("SEED-%d", userID),
	})
	require.NoError(t, err)
	return w
}

func countEntries(t *testing.T, db *gorm.DB, walletID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Where("wallet_id = ?", walletID).Count(&n).Error)
	return n
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	w, err := svc.Create(ctx, ledger.CreateWalletRequest{UserID: 1})
	require.NoError(t, err)
	assert.NotZero(t, w.ID)
	assert.Equal(t, uint(1), w.UserID)
	assert.Equal(t, "SOL", w.Currency)
	assert.Equal(t, models.WalletStatusActive, w.Status)
	testutil.AssertAmount(t, "0", w.Balance)

	_, err = svc.Create(ctx, ledger.CreateWalletRequest{UserID: 1})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateWallet)

	_, err = svc.Create(ctx, ledger.CreateWalletRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	seedWallet(t, svc, 7, "25.50")

	w, err := svc.GetBalance(ctx, 7)
	require.NoError(t, err)
	testutil.AssertAmount(t, "25.50", w.Balance)

	_, err = svc.GetBalance(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestCredit(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")

	updated, err := svc.Credit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount("50"),
		Currency:              "SOL",
		ExternalTransactionID: "e1",
		CounterpartyID:        "2",
	})
	require.NoError(t, err)
	testutil.AssertAmount(t, "50", updated.Balance)

	entries, err := svc.GetLedger(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.EntryTypeCredit, e.Type)
	assert.Equal(t, "e1", e.ExternalTransactionID)
	assert.Equal(t, "2", e.CounterpartyID)
	assert.Equal(t, models.EntryStatusCompleted, e.Status)
	testutil.AssertAmount(t, "0", e.BalanceBefore)
	testutil.AssertAmount(t, "50", e.BalanceAfter)
	assert.Equal(t, int64(1), countEntries(t, db, w.ID))
}

func TestCredit_ReplayIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")
	req := ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("50"), ExternalTransactionID: "e1"}

	_, err := svc.Credit(ctx, req)
	require.NoError(t, err)
	again, err := svc.Credit(ctx, req)
	require.NoError(t, err)

	testutil.AssertAmount(t, "50", again.Balance)
	assert.Equal(t, int64(1), countEntries(t, db, w.ID))
}

func TestOperation_ExternalIDBoundToAnotherOperation(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	a := seedWallet(t, svc, 1, "0")
	b := seedWallet(t, svc, 2, "100")

	_, err := svc.Credit(ctx, ledger.OperationRequest{
		WalletID: a.ID, Amount: testutil.Amount("10"), ExternalTransactionID: "K1-credit",
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		apply func(context.Context, ledger.OperationRequest) (*models.Wallet, error)
		req   ledger.OperationRequest
	}{
		{
			name:  "credit on another wallet",
			apply: svc.Credit,
			req:   ledger.OperationRequest{WalletID: b.ID, Amount: testutil.Amount("40"), ExternalTransactionID: "K1-credit"},
		},
		{
			name:  "debit on another wallet",
			apply: svc.Debit,
			req:   ledger.OperationRequest{WalletID: b.ID, Amount: testutil.Amount("40"), ExternalTransactionID: "K1-credit"},
		},
		{
			name:  "debit on the same wallet",
			apply: svc.Debit,
			req:   ledger.OperationRequest{WalletID: a.ID, Amount: testutil.Amount("10"), ExternalTransactionID: "K1-credit"},
		},
		{
			name:  "different amount",
			apply: svc.Credit,
			req:   ledger.OperationRequest{WalletID: a.ID, Amount: testutil.Amount("11"), ExternalTransactionID: "K1-credit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.apply(ctx, tt.req)
			assert.ErrorIs(t, err, apperrors.ErrExternalIDReused)
			de, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindConflict, de.Kind)
		})
	}

	gotA, err := svc.GetWallet(ctx, a.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "10", gotA.Balance)
	gotB, err := svc.GetWallet(ctx, b.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "100", gotB.Balance)
	assert.Equal(t, int64(1), countEntries(t, db, a.ID))
	assert.Equal(t, int64(1), countEntries(t, db, b.ID))
}

func TestCredit_ConcurrentSameExternalID(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, ledger.OperationRequest{
				WalletID:              w.ID,
				Amount:                testutil.Amount("10"),
				ExternalTransactionID: "same",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "10", got.Balance)
	assert.Equal(t, int64(1), countEntries(t, db, w.ID))
}

func TestCredit_CurrencyMismatch(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")

	_, err := svc.Credit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount("5"),
		Currency:              "USD",
		ExternalTransactionID: "e1",
	})
	assert.ErrorIs(t, err, apperrors.ErrCurrencyMismatch)
	assert.Equal(t, int64(0), countEntries(t, db, w.ID))
}

func TestCredit_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")

	tests := []struct {
		name    string
		req     ledger.OperationRequest
		wantErr *apperrors.DomainError
	}{
		{
			name:    "zero amount",
			req:     ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("0"), ExternalTransactionID: "e1"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "negative amount",
			req:     ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("-3"), ExternalTransactionID: "e1"},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "missing external id",
			req:     ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("3")},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "three decimals",
			req:     ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("1.005"), ExternalTransactionID: "e1"},
			wantErr: apperrors.ErrInvalidAmount,
		},
		{
			name:    "unknown wallet",
			req:     ledger.OperationRequest{WalletID: 404, Amount: testutil.Amount("3"), ExternalTransactionID: "e1"},
			wantErr: apperrors.ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Credit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDebit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "100")

	_, err := svc.Debit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount("150"),
		ExternalTransactionID: "d1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 402, de.HTTPStatus())

	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "100", got.Balance)
	assert.Equal(t, int64(1), countEntries(t, db, w.ID))

	// a rejected id can be used again once funds allow
	_, err = svc.Debit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount("100"),
		ExternalTransactionID: "d1",
	})
	require.NoError(t, err)
}

func TestDebit_ConcurrentNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	w := seedWallet(t, svc, 1, "100")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Debit(ctx, ledger.OperationRequest{
				WalletID:              w.ID,
				Amount:                testutil.Amount("15"),
				ExternalTransactionID: fmt.Sprintf("d-%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 4, rejected)
	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "10", got.Balance)
}

func TestSuspendedWallet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	w := seedWallet(t, svc, 1, "100")

	_, err := svc.Debit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("30"), ExternalTransactionID: "d1"})
	require.NoError(t, err)

	suspended, err := svc.UpdateStatus(ctx, w.ID, models.WalletStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.WalletStatusSuspended, suspended.Status)

	_, err = svc.Credit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("1"), ExternalTransactionID: "c1"})
	assert.ErrorIs(t, err, apperrors.ErrWalletInactive)
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindBusinessRule, de.Kind)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus())

	// compensations still settle on a suspended wallet
	_, err = svc.Compensate(ctx, ledger.CompensationRequest{
		OriginalExternalTransactionID: "d1",
		CompensationTransactionID:     "rollback-d1",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, w.ID, "frozen")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.UpdateStatus(ctx, 999, models.WalletStatusActive)
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestCompensate(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "100")

	_, err := svc.Debit(ctx, ledger.OperationRequest{
		WalletID:              w.ID,
		Amount:                testutil.Amount("30"),
		ExternalTransactionID: "d1",
		CounterpartyID:        "2",
	})
	require.NoError(t, err)

	entry, err := svc.Compensate(ctx, ledger.CompensationRequest{
		OriginalExternalTransactionID: "d1",
		CompensationTransactionID:     "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeCompensation, entry.Type)
	require.NotNil(t, entry.OriginalTxID)
	assert.Equal(t, "d1", *entry.OriginalTxID)
	assert.Equal(t, "2", entry.CounterpartyID)
	assert.Equal(t, "Compensation of DEBIT (TX: d1)", entry.Description)
	testutil.AssertAmount(t, "70", entry.BalanceBefore)
	testutil.AssertAmount(t, "100", entry.BalanceAfter)

	t.Run("replay returns the same entry", func(t *testing.T) {
		again, err := svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "d1",
			CompensationTransactionID:     "c1",
		})
		require.NoError(t, err)
		assert.Equal(t, entry.ID, again.ID)
	})

	t.Run("second compensation is rejected", func(t *testing.T) {
		_, err := svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "d1",
			CompensationTransactionID:     "c2",
		})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyCompensated)
	})

	t.Run("compensation of a compensation", func(t *testing.T) {
		_, err := svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "c1",
			CompensationTransactionID:     "c3",
		})
		assert.ErrorIs(t, err, apperrors.ErrNotCompensable)
	})

	t.Run("compensation id bound to another entry", func(t *testing.T) {
		_, err := svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "SEED-1",
			CompensationTransactionID:     "c1",
		})
		assert.ErrorIs(t, err, apperrors.ErrExternalIDReused)

		_, err = svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "SEED-1",
			CompensationTransactionID:     "d1",
		})
		assert.ErrorIs(t, err, apperrors.ErrExternalIDReused)
	})

	t.Run("unknown original", func(t *testing.T) {
		_, err := svc.Compensate(ctx, ledger.CompensationRequest{
			OriginalExternalTransactionID: "missing",
			CompensationTransactionID:     "c4",
		})
		assert.ErrorIs(t, err, apperrors.ErrLedgerEntryNotFound)
	})

	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "100", got.Balance)
	assert.Equal(t, int64(3), countEntries(t, db, w.ID))
}

func TestCompensate_CreditNeedsFunds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	w := seedWallet(t, svc, 1, "0")

	_, err := svc.Credit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("50"), ExternalTransactionID: "cr1"})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount("40"), ExternalTransactionID: "d1"})
	require.NoError(t, err)

	_, err = svc.Compensate(ctx, ledger.CompensationRequest{
		OriginalExternalTransactionID: "cr1",
		CompensationTransactionID:     "rev-cr1",
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFundsForCompensation)

	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "10", got.Balance)
}

func TestGetLedger_NewestFirstAndChained(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	w := seedWallet(t, svc, 1, "100")

	ops := []struct {
		debit bool
		id    string
		amt   string
	}{
		{true, "d1", "20"},
		{false, "c1", "5.25"},
		{true, "d2", "60"},
		{false, "c2", "0.75"},
	}
	for _, op := range ops {
		req := ledger.OperationRequest{WalletID: w.ID, Amount: testutil.Amount(op.amt), ExternalTransactionID: op.id}
		var err error
		if op.debit {
			_, err = svc.Debit(ctx, req)
		} else {
			_, err = svc.Credit(ctx, req)
		}
		require.NoError(t, err)
	}
	_, err := svc.Compensate(ctx, ledger.CompensationRequest{OriginalExternalTransactionID: "d2", CompensationTransactionID: "x-d2"})
	require.NoError(t, err)

	entries, err := svc.GetLedger(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "x-d2", entries[0].ExternalTransactionID)
	assert.Equal(t, "SEED-1", entries[5].ExternalTransactionID)

	chron := append([]models.LedgerEntry(nil), entries...)
	sort.Slice(chron, func(i, j int) bool { return chron[i].ID < chron[j].ID })
	for i := 1; i < len(chron); i++ {
		testutil.AssertAmount(t, chron[i-1].BalanceAfter.String(), chron[i].BalanceBefore, "entry %d", chron[i].ID)
	}

	got, err := svc.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	testutil.AssertAmount(t, "86", got.Balance)
	testutil.AssertAmount(t, got.Balance.String(), chron[len(chron)-1].BalanceAfter)

	_, err = svc.GetLedger(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestGetLedgerWithDetails(t *testing.T) {
	ctx := context.Background()
	directory := &fakeDirectory{profiles: []models.UserProfile{
		{UserID: 2, FullName: "Ana Lopez", Phone: "+51999000111"},
	}}
	svc, _ := newService(t, directory)
	w1 := seedWallet(t, svc, 1, "100")
	w2 := seedWallet(t, svc, 2, "0")

	_, err := svc.Debit(ctx, ledger.OperationRequest{
		WalletID:              w1.ID,
		Amount:                testutil.Amount("10"),
		ExternalTransactionID: "d1",
		CounterpartyID:        fmt.Sprint(w2.ID),
	})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, ledger.OperationRequest{
		WalletID:              w1.ID,
		Amount:                testutil.Amount("5"),
		ExternalTransactionID: "ext-1",
		CounterpartyID:        "EXTERNAL_TRANSFER",
	})
	require.NoError(t, err)

	entries, err := svc.GetLedgerWithDetails(ctx, w1.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := map[string]ledger.CounterpartyDetails{}
	for _, e := range entries {
		byID[e.ExternalTransactionID] = e.CounterpartyDetails
	}
	assert.Equal(t, "Ana Lopez", byID["d1"].FullName)
	assert.Equal(t, "+51999000111", byID["d1"].Phone)
	assert.Equal(t, ledger.UnknownCounterparty, byID["ext-1"])
	assert.Equal(t, ledger.UnknownCounterparty, byID["SEED-1"])
	assert.Equal(t, 1, directory.calls)
}

func TestGetLedgerWithDetails_DirectoryDown(t *testing.T) {
	ctx := context.Background()
	directory := &fakeDirectory{err: errors.New("connection refused")}
	svc, _ := newService(t, directory)
	w1 := seedWallet(t, svc, 1, "100")
	w2 := seedWallet(t, svc, 2, "0")

	_, err := svc.Debit(ctx, ledger.OperationRequest{
		WalletID:              w1.ID,
		Amount:                testutil.Amount("10"),
		ExternalTransactionID: "d1",
		CounterpartyID:        fmt.Sprint(w2.ID),
	})
	require.NoError(t, err)

	entries, err := svc.GetLedgerWithDetails(ctx, w1.ID)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ledger.UnknownCounterparty, e.CounterpartyDetails)
	}
}

func TestLedgerEntriesAreImmutable(t *testing.T) {
	svc, db := newService(t, nil)
	w := seedWallet(t, svc, 1, "10")

	var entry models.LedgerEntry
	require.NoError(t, db.Where("wallet_id = ?", w.ID).First(&entry).Error)

	err := db.Delete(&entry).Error
	assert.ErrorIs(t, err, models.ErrImmutableEntry)
	assert.Equal(t, int64(1), countEntries(t, db, w.ID))
}
