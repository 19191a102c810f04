package ledger

import (
	"context"
	"strconv"

	"walletsaga/internal/models"

	"go.uber.org/zap"
)

// GetLedgerWithDetails returns the wallet's entries with the counterparty's
// name and phone attached. Resolution is best effort: any counterparty that
// is not a known wallet, or any directory failure, yields UnknownCounterparty.
func (s *service) GetLedgerWithDetails(ctx context.Context, walletID uint) ([]EnrichedEntry, error) {
	entries, err := s.GetLedger(ctx, walletID)
	if err != nil {
		return nil, err
	}

	details := s.resolveCounterparties(ctx, entries)
	enriched := make([]EnrichedEntry, len(entries))
	for i, entry := range entries {
		d, ok := details[entry.CounterpartyID]
		if !ok {
			d = UnknownCounterparty
		}
		enriched[i] = EnrichedEntry{LedgerEntry: entry, CounterpartyDetails: d}
	}
	return enriched, nil
}

// resolveCounterparties maps counterparty ids (wallet ids) to holder details.
func (s *service) resolveCounterparties(ctx context.Context, entries []models.LedgerEntry) map[string]CounterpartyDetails {
	resolved := make(map[string]CounterpartyDetails)
	if s.directory == nil {
		return resolved
	}

	seen := make(map[uint]bool)
	var walletIDs []uint
	for _, entry := range entries {
		id, err := strconv.ParseUint(entry.CounterpartyID, 10, 64)
		if err != nil || id == 0 || seen[uint(id)] {
			continue
		}
		seen[uint(id)] = true
		walletIDs = append(walletIDs, uint(id))
	}
	if len(walletIDs) == 0 {
		return resolved
	}

	wallets, err := s.repo.GetByIDs(ctx, walletIDs)
	if err != nil {
		s.logger.Warn("failed to load counterparty wallets", zap.Error(err))
		return resolved
	}
	walletsByUser := make(map[uint][]uint, len(wallets))
	userIDs := make([]uint, 0, len(wallets))
	for _, w := range wallets {
		if _, ok := walletsByUser[w.UserID]; !ok {
			userIDs = append(userIDs, w.UserID)
		}
		walletsByUser[w.UserID] = append(walletsByUser[w.UserID], w.ID)
	}

	profiles, err := s.directory.BatchInfo(ctx, userIDs)
	if err != nil {
		s.logger.Warn("counterparty lookup failed, using placeholders",
			zap.Int("users", len(userIDs)), zap.Error(err))
		return resolved
	}
	for _, p := range profiles {
		for _, walletID := range walletsByUser[p.UserID] {
			resolved[strconv.FormatUint(uint64(walletID), 10)] = CounterpartyDetails{
				FullName: p.FullName,
				Phone:    p.Phone,
			}
		}
	}
	return resolved
}
