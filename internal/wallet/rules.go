package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/models"
)

var (
	half  = decimal.NewFromInt(1).Div(decimal.NewFromInt(2))
	tenth = decimal.NewFromInt(1).Div(decimal.NewFromInt(10))
)

// legacyRule is the frozen historical accounting: referral commissions
// were credited whole but locked at 50%, and the locked half becomes
// withdrawable only once the user's own investment spending covers it.
func legacyRule(entries []models.LedgerEntry) partial {
	var total, invested int64
	for _, e := range entries {
		if e.Status != models.EntryCompleted {
			continue
		}
		switch e.Kind {
		case models.KindReferralCommissionLegacy:
			total += e.Amount
		case models.KindInvestment:
			invested += e.Amount
		}
	}

	locked := decimal.NewFromInt(total).Mul(half).Round(0).IntPart()
	required := locked - invested
	if required < 0 {
		required = 0
	}
	withdrawable := total - required

	return partial{
		balance:       withdrawable - invested,
		hold:          required,
		referralTotal: total,
		invested:      invested,
		required:      required,
	}
}

// currentRule is the split accounting: each commission event arrives as a
// 90% immediately-available entry plus a 10% locked entry. The locked
// entries unlock platform-wide once in-app commission usage reaches 10%
// of lifetime commission earned. New earnings raise that threshold, so a
// bare counter comparison could re-lock a wallet that already unlocked;
// unlocking stays one-way through unlockedBefore, the persisted fact that
// the threshold was met at an earlier recomputation. A user who has
// earned nothing has nothing to unlock, so the zero-over-zero comparison
// is not taken at face value.
func currentRule(entries []models.LedgerEntry, commissionEarned, commissionUsedInApp int64, unlockedBefore bool) (partial, bool) {
	var available, locked int64
	for _, e := range entries {
		if e.Status != models.EntryCompleted {
			continue
		}
		switch e.Kind {
		case models.KindReferralBonus:
			available += e.Amount
		case models.KindCommissionLocked:
			locked += e.Amount
		}
	}

	threshold := decimal.NewFromInt(commissionEarned).Mul(tenth)
	unlocked := unlockedBefore ||
		(commissionEarned > 0 && decimal.NewFromInt(commissionUsedInApp).GreaterThanOrEqual(threshold))

	p := partial{
		balance:       available,
		referralTotal: available + locked,
	}
	if unlocked {
		p.balance += locked
	} else {
		p.hold = locked
	}
	return p, unlocked
}
