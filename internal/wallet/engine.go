// Package wallet derives a user's externally visible wallet summary from
// the append-only ledger. Recompute is pure: the same ledger snapshot and
// counters always produce the same summary, so concurrent invocations for
// one user converge once all writes are visible.
package wallet

import (
	"errors"

	"github.com/punchamoorthee/paycore/internal/models"
)

// ErrNegativeBalance signals a data-integrity violation: the ledger sums
// to a negative available balance. Never clamped, always surfaced.
var ErrNegativeBalance = errors.New("derived balance is negative")

// partial is one accounting rule's contribution to the summary. The final
// summary is the sum of the base movements and both rule partials.
type partial struct {
	balance       int64
	hold          int64
	referralTotal int64
	invested      int64
	required      int64
}

// Recompute derives the wallet summary for one user from their full
// ledger, the two scalar commission counters, and whether the usage
// threshold was already met at an earlier recomputation. Legacy referral
// commissions flow through Rule A, split commissions through Rule B; the
// two rules never read each other's entries.
func Recompute(entries []models.LedgerEntry, commissionEarned, commissionUsedInApp int64, unlockedBefore bool) (models.WalletSummary, error) {
	base := baseMovements(entries)
	a := legacyRule(entries)
	b, unlocked := currentRule(entries, commissionEarned, commissionUsedInApp, unlockedBefore)

	s := models.WalletSummary{
		Balance:             base.balance + a.balance + b.balance,
		HoldBalance:         base.hold + a.hold + b.hold,
		ReferralBonusTotal:  a.referralTotal + b.referralTotal,
		InvestedAmount:      a.invested,
		RequiredInvestment:  a.required,
		CommissionEarned:    commissionEarned,
		CommissionUsedInApp: commissionUsedInApp,
		CommissionUnlocked:  unlocked,
	}
	if s.Balance < 0 {
		return models.WalletSummary{}, ErrNegativeBalance
	}
	return s, nil
}

// baseMovements covers the plain credits and debits no accounting rule
// touches: deposits, refunds, bonuses, seller earnings, platform
// commissions and withdrawals. Pending deposits sit in hold until they
// complete.
func baseMovements(entries []models.LedgerEntry) partial {
	var p partial
	for _, e := range entries {
		switch e.Kind {
		case models.KindDeposit:
			switch e.Status {
			case models.EntryCompleted:
				p.balance += e.Amount
			case models.EntryPending:
				p.hold += e.Amount
			}
		case models.KindRefund, models.KindBonus, models.KindSellerEarning, models.KindPlatformCommission:
			if e.Status == models.EntryCompleted {
				p.balance += e.Amount
			}
		case models.KindWithdrawal:
			if e.Status == models.EntryCompleted {
				p.balance -= e.Amount
			}
		}
	}
	return p
}
