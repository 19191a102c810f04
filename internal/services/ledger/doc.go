/*
Package ledger implements the wallet ledger engine: the sole authority over
wallet balances.

Every balance movement is applied inside one database transaction that locks
the wallet row, writes the new balance and appends an immutable LedgerEntry
recording the balance before and after. Each movement carries a caller
supplied external transaction id; a second request with an id already in the
ledger changes nothing and returns the wallet's current state.

Usage:

	// Create the service over a repository
	svc := ledger.NewService(repositories.NewWalletRepository(db), directory, ledger.Config{}, metrics, logger)

	// Open a wallet
	w, err := svc.Create(ctx, ledger.CreateWalletRequest{UserID: 1})

	// Move funds
	w, err = svc.Credit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: amount, ExternalTransactionID: "dep-1"})
	w, err = svc.Debit(ctx, ledger.OperationRequest{WalletID: w.ID, Amount: amount, ExternalTransactionID: "pay-1"})

	// Undo a movement exactly once
	entry, err := svc.Compensate(ctx, ledger.CompensationRequest{
	    OriginalExternalTransactionID: "pay-1",
	    CompensationTransactionID:     "rollback-pay-1",
	})

Remote callers use HTTPClient, which speaks the JSON API served by the ledger
handlers and returns the same domain errors.

Error Handling:

All failures are *errors.DomainError values:
- INSUFFICIENT_FUNDS: a debit exceeds the balance
- CURRENCY_MISMATCH: the request names another currency than the wallet
- ALREADY_COMPENSATED: the original entry already has a compensation
- NOT_COMPENSABLE: the original entry is itself a compensation
- INSUFFICIENT_FUNDS_FOR_COMPENSATION: reversing a credit would overdraw
*/
package ledger
