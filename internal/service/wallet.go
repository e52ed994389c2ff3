package service

import (
	"context"
	"fmt"
	"log"

	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/wallet"
)

// WalletStore is the slice of the store the wallet service needs.
type WalletStore interface {
	LedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error)
	UserCounters(ctx context.Context, userID string) (earned, usedInApp int64, unlocked bool, err error)
	SaveWalletSummary(ctx context.Context, userID string, w models.WalletSummary) error
}

// WalletService recomputes wallet summaries on read. The persisted
// summary is only a cache of wallet.Recompute's output; the ledger stays
// the source of truth.
type WalletService struct {
	store WalletStore
}

func NewWalletService(s WalletStore) *WalletService {
	return &WalletService{store: s}
}

// Summary recomputes the user's wallet from the full ledger and persists
// the result as a cache. A cache-write failure does not fail the read.
func (s *WalletService) Summary(ctx context.Context, userID string) (models.WalletSummary, error) {
	earned, used, unlocked, err := s.store.UserCounters(ctx, userID)
	if err != nil {
		return models.WalletSummary{}, err
	}
	entries, err := s.store.LedgerEntries(ctx, userID)
	if err != nil {
		return models.WalletSummary{}, err
	}

	summary, err := wallet.Recompute(entries, earned, used, unlocked)
	if err != nil {
		return models.WalletSummary{}, fmt.Errorf("%w: user %s: %w", ErrDataIntegrity, userID, err)
	}

	if err := s.store.SaveWalletSummary(ctx, userID, summary); err != nil {
		log.Printf("wallet cache write failed for user %s: %v", userID, err)
	}
	return summary, nil
}

// Ledger returns the user's full ledger, oldest first.
func (s *WalletService) Ledger(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	if _, _, _, err := s.store.UserCounters(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.LedgerEntries(ctx, userID)
}
