package wallet

import (
	"testing"

	"github.com/punchamoorthee/paycore/internal/models"
)

func entry(kind models.EntryKind, amount int64, status models.EntryStatus) models.LedgerEntry {
	return models.LedgerEntry{Kind: kind, Amount: amount, Status: status}
}

func completed(kind models.EntryKind, amount int64) models.LedgerEntry {
	return entry(kind, amount, models.EntryCompleted)
}

func TestBaseMovements(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindDeposit, 1000),
		entry(models.KindDeposit, 500, models.EntryPending),
		entry(models.KindDeposit, 200, models.EntryFailed),
		completed(models.KindRefund, 300),
		completed(models.KindBonus, 50),
		completed(models.KindWithdrawal, 400),
		entry(models.KindWithdrawal, 999, models.EntryPending),
	}

	s, err := Recompute(entries, 0, 0, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.Balance != 1000+300+50-400 {
		t.Errorf("balance: got %d, want %d", s.Balance, 950)
	}
	if s.HoldBalance != 500 {
		t.Errorf("hold: got %d, want 500", s.HoldBalance)
	}
}

func TestLegacyRuleLocksHalfUntilInvested(t *testing.T) {
	cases := []struct {
		name                    string
		commission, invested    int64
		wantBalance, wantHold   int64
		wantRequired, wantTotal int64
	}{
		{"nothing invested", 1000, 0, 500, 500, 500, 1000},
		{"partially invested", 1000, 300, 500, 200, 200, 1000},
		{"exactly covered", 1000, 500, 500, 0, 0, 1000},
		{"over-invested", 1000, 700, 300, 0, 0, 1000},
		{"odd amount rounds half", 999, 0, 499, 500, 500, 999},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries := []models.LedgerEntry{
				completed(models.KindReferralCommissionLegacy, tc.commission),
			}
			if tc.invested > 0 {
				entries = append(entries, completed(models.KindInvestment, tc.invested))
			}

			s, err := Recompute(entries, 0, 0, false)
			if err != nil {
				t.Fatalf("Recompute: %v", err)
			}
			if s.Balance != tc.wantBalance {
				t.Errorf("balance: got %d, want %d", s.Balance, tc.wantBalance)
			}
			if s.HoldBalance != tc.wantHold {
				t.Errorf("hold: got %d, want %d", s.HoldBalance, tc.wantHold)
			}
			if s.RequiredInvestment != tc.wantRequired {
				t.Errorf("required: got %d, want %d", s.RequiredInvestment, tc.wantRequired)
			}
			if s.InvestedAmount != tc.invested {
				t.Errorf("invested: got %d, want %d", s.InvestedAmount, tc.invested)
			}
			if s.ReferralBonusTotal != tc.wantTotal {
				t.Errorf("referral total: got %d, want %d", s.ReferralBonusTotal, tc.wantTotal)
			}
		})
	}
}

func TestCurrentRuleSplitUnlock(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindReferralBonus, 180),
		completed(models.KindCommissionLocked, 20),
	}

	// Below the 10% usage threshold the locked slice stays in hold.
	s, err := Recompute(entries, 200, 0, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.Balance != 180 || s.HoldBalance != 20 {
		t.Errorf("locked: got balance=%d hold=%d, want 180/20", s.Balance, s.HoldBalance)
	}

	// At the threshold everything unlocks, platform-wide.
	s, err = Recompute(entries, 200, 20, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.Balance != 200 || s.HoldBalance != 0 {
		t.Errorf("unlocked: got balance=%d hold=%d, want 200/0", s.Balance, s.HoldBalance)
	}
}

func TestCurrentRuleUnlockIsMonotonic(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindReferralBonus, 900),
		completed(models.KindCommissionLocked, 100),
	}

	// Once usage crosses 10% of earned, every larger usage value keeps
	// the locked entries available.
	for used := int64(100); used <= 1000; used += 100 {
		s, err := Recompute(entries, 1000, used, false)
		if err != nil {
			t.Fatalf("Recompute(used=%d): %v", used, err)
		}
		if s.HoldBalance != 0 {
			t.Errorf("used=%d: hold=%d, want 0 (unlock must not revert)", used, s.HoldBalance)
		}
		if s.Balance != 1000 {
			t.Errorf("used=%d: balance=%d, want 1000", used, s.Balance)
		}
		if !s.CommissionUnlocked {
			t.Errorf("used=%d: unlocked flag not reported", used)
		}
	}
}

func TestUnlockSurvivesNewEarnings(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindReferralBonus, 900),
		completed(models.KindCommissionLocked, 100),
	}

	// Usage 20 satisfies the threshold while earned is 200.
	s, err := Recompute(entries, 200, 20, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.HoldBalance != 0 || !s.CommissionUnlocked {
		t.Fatalf("threshold met: got hold=%d unlocked=%v, want 0/true", s.HoldBalance, s.CommissionUnlocked)
	}

	// Later earnings push the raw threshold above usage. A wallet that
	// already unlocked stays unlocked.
	s, err = Recompute(entries, 1000, 20, true)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.Balance != 1000 || s.HoldBalance != 0 {
		t.Errorf("after growth: got balance=%d hold=%d, want 1000/0", s.Balance, s.HoldBalance)
	}
	if !s.CommissionUnlocked {
		t.Error("after growth: unlocked flag lost")
	}

	// Without the recorded unlock the same counters do hold the slice,
	// which is what a wallet that never crossed the threshold sees.
	s, err = Recompute(entries, 1000, 20, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.HoldBalance != 100 || s.CommissionUnlocked {
		t.Errorf("never unlocked: got hold=%d unlocked=%v, want 100/false", s.HoldBalance, s.CommissionUnlocked)
	}
}

func TestZeroEarnedHoldsLockedSlice(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindReferralBonus, 180),
		completed(models.KindCommissionLocked, 20),
	}

	// Counters at zero must not read as a satisfied threshold.
	s, err := Recompute(entries, 0, 0, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s.Balance != 180 || s.HoldBalance != 20 {
		t.Errorf("got balance=%d hold=%d, want 180/20", s.Balance, s.HoldBalance)
	}
	if s.CommissionUnlocked {
		t.Error("zero counters must not unlock")
	}
}

func TestRulesCoexistIndependently(t *testing.T) {
	// A user with history under both rules: each rule consumes only its
	// own entries and the partials sum.
	entries := []models.LedgerEntry{
		completed(models.KindDeposit, 10000),
		completed(models.KindReferralCommissionLegacy, 1000), // Rule A: 500 withdrawable, 500 held
		completed(models.KindReferralBonus, 450),             // Rule B
		completed(models.KindCommissionLocked, 50),           // Rule B, locked (used below threshold)
	}

	s, err := Recompute(entries, 500, 0, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	wantBalance := int64(10000 + 500 + 450)
	wantHold := int64(500 + 50)
	if s.Balance != wantBalance {
		t.Errorf("balance: got %d, want %d", s.Balance, wantBalance)
	}
	if s.HoldBalance != wantHold {
		t.Errorf("hold: got %d, want %d", s.HoldBalance, wantHold)
	}
	if s.ReferralBonusTotal != 1000+450+50 {
		t.Errorf("referral total: got %d, want 1500", s.ReferralBonusTotal)
	}
}

func TestRecomputeIsDeterministic(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindDeposit, 12345),
		entry(models.KindDeposit, 678, models.EntryPending),
		completed(models.KindReferralCommissionLegacy, 999),
		completed(models.KindInvestment, 250),
		completed(models.KindReferralBonus, 90),
		completed(models.KindCommissionLocked, 10),
		completed(models.KindWithdrawal, 400),
		completed(models.KindSellerEarning, 8500),
	}

	first, err := Recompute(entries, 100, 5, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := Recompute(entries, 100, 5, false)
		if err != nil {
			t.Fatalf("Recompute #%d: %v", i, err)
		}
		if again != first {
			t.Fatalf("recompute diverged on run %d: %+v != %+v", i, again, first)
		}
	}
}

func TestNegativeBalanceIsRejected(t *testing.T) {
	entries := []models.LedgerEntry{
		completed(models.KindDeposit, 100),
		completed(models.KindWithdrawal, 500),
	}
	if _, err := Recompute(entries, 0, 0, false); err != ErrNegativeBalance {
		t.Fatalf("got %v, want ErrNegativeBalance", err)
	}
}

func TestEmptyLedger(t *testing.T) {
	s, err := Recompute(nil, 0, 0, false)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if s != (models.WalletSummary{}) {
		t.Errorf("empty ledger should yield a zero summary, got %+v", s)
	}
}
