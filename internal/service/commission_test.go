package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/store"
)

func testRates() Rates {
	return Rates{
		Referral:      decimal.NewFromInt(20),
		Platform:      decimal.NewFromInt(10),
		SellerDefault: decimal.NewFromInt(15),
	}
}

type fakeCommissionStore struct {
	order      models.Order
	orderErr   error
	sellerPct  decimal.Decimal
	sellerOK   bool
	catPct     decimal.Decimal
	catOK      bool
	creditErr  error
	credited   []models.LedgerEntry
	creditedTo []string
}

func (f *fakeCommissionStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	if f.orderErr != nil {
		return models.Order{}, f.orderErr
	}
	return f.order, nil
}

func (f *fakeCommissionStore) CreditSellerEarning(ctx context.Context, orderID string, entry models.LedgerEntry) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credited = append(f.credited, entry)
	f.creditedTo = append(f.creditedTo, orderID)
	return nil
}

func (f *fakeCommissionStore) SellerRate(ctx context.Context, sellerID string) (decimal.Decimal, bool, error) {
	return f.sellerPct, f.sellerOK, nil
}

func (f *fakeCommissionStore) CategoryRate(ctx context.Context, category string) (decimal.Decimal, bool, error) {
	return f.catPct, f.catOK, nil
}

func sumByKind(entries []models.LedgerEntry) map[models.EntryKind]int64 {
	sums := map[models.EntryKind]int64{}
	for _, e := range entries {
		sums[e.Kind] += e.Amount
	}
	return sums
}

func TestDistributeWithReferrer(t *testing.T) {
	d := NewDistributor(&fakeCommissionStore{}, testRates(), "platform")
	p := models.PaymentAttempt{
		ID:         "pay-1",
		UserID:     "buyer",
		ReferrerID: "referrer",
		Amount:     1000,
	}

	dist := d.Distribute(p)
	entries := dist.Entries
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if dist.ReferrerID != "referrer" || dist.Commission != 200 {
		t.Errorf("got referrer=%q commission=%d, want referrer/200", dist.ReferrerID, dist.Commission)
	}

	sums := sumByKind(entries)
	// Referral commission 20% of 1000 = 200, split 90/10 at source.
	if sums[models.KindReferralBonus] != 180 {
		t.Errorf("referral bonus: got %d, want 180", sums[models.KindReferralBonus])
	}
	if sums[models.KindCommissionLocked] != 20 {
		t.Errorf("locked slice: got %d, want 20", sums[models.KindCommissionLocked])
	}
	if sums[models.KindPlatformCommission] != 100 {
		t.Errorf("platform: got %d, want 100", sums[models.KindPlatformCommission])
	}

	for _, e := range entries {
		if e.Status != models.EntryCompleted {
			t.Errorf("entry %s: status %s, want completed", e.Kind, e.Status)
		}
		if e.Meta["payment_id"] != "pay-1" {
			t.Errorf("entry %s: missing payment_id meta", e.Kind)
		}
		want := "referrer"
		if e.Kind == models.KindPlatformCommission {
			want = "platform"
		}
		if e.UserID != want {
			t.Errorf("entry %s credited to %s, want %s", e.Kind, e.UserID, want)
		}
	}
}

func TestDistributeWithoutReferrer(t *testing.T) {
	d := NewDistributor(&fakeCommissionStore{}, testRates(), "platform")
	dist := d.Distribute(models.PaymentAttempt{ID: "pay-2", UserID: "buyer", Amount: 1000})

	entries := dist.Entries
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want only the platform commission", len(entries))
	}
	if entries[0].Kind != models.KindPlatformCommission || entries[0].Amount != 100 {
		t.Errorf("got %s/%d, want platform_commission/100", entries[0].Kind, entries[0].Amount)
	}
	if dist.ReferrerID != "" || dist.Commission != 0 {
		t.Errorf("got referrer=%q commission=%d, want none", dist.ReferrerID, dist.Commission)
	}
}

func TestDistributeConservation(t *testing.T) {
	d := NewDistributor(&fakeCommissionStore{}, testRates(), "platform")

	// Per-entry rounding must still conserve the referral commission:
	// bonus + locked == round(A * r1 / 100) for any amount.
	for _, amount := range []int64{1, 7, 99, 999, 1000, 12345, 999999} {
		dist := d.Distribute(models.PaymentAttempt{ID: "p", ReferrerID: "r", Amount: amount})
		sums := sumByKind(dist.Entries)
		referral := sums[models.KindReferralBonus] + sums[models.KindCommissionLocked]
		want := decimal.NewFromInt(amount).Mul(decimal.NewFromInt(20)).Div(decimal.NewFromInt(100)).Round(0).IntPart()
		if referral != want {
			t.Errorf("amount %d: referral total %d, want %d", amount, referral, want)
		}
		if dist.Commission != want {
			t.Errorf("amount %d: reported commission %d, want %d", amount, dist.Commission, want)
		}
	}
}

func TestCreditDeliveryRateResolution(t *testing.T) {
	order := models.Order{
		ID:                "ord-1",
		SellerID:          "seller-1",
		Category:          "books",
		GrossAmount:       100000,
		FulfillmentStatus: models.FulfillmentPlaced,
	}

	cases := []struct {
		name  string
		store *fakeCommissionStore
		want  int64
	}{
		{
			"seller override wins",
			&fakeCommissionStore{order: order, sellerPct: decimal.NewFromInt(10), sellerOK: true, catPct: decimal.NewFromInt(30), catOK: true},
			90000,
		},
		{
			"category default next",
			&fakeCommissionStore{order: order, catPct: decimal.RequireFromString("12.5"), catOK: true},
			87500,
		},
		{
			"platform default last",
			&fakeCommissionStore{order: order},
			85000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDistributor(tc.store, testRates(), "platform")
			entry, credited, err := d.CreditDelivery(context.Background(), "ord-1")
			if err != nil {
				t.Fatalf("CreditDelivery: %v", err)
			}
			if !credited {
				t.Fatal("expected a credit")
			}
			if entry.Amount != tc.want {
				t.Errorf("earning: got %d, want %d", entry.Amount, tc.want)
			}
			if entry.UserID != "seller-1" || entry.Kind != models.KindSellerEarning {
				t.Errorf("entry: got %s for %s", entry.Kind, entry.UserID)
			}
		})
	}
}

func TestCreditDeliveryIdempotent(t *testing.T) {
	delivered := models.Order{
		ID: "ord-2", SellerID: "seller-1", GrossAmount: 1000,
		FulfillmentStatus: models.FulfillmentDelivered,
	}
	fs := &fakeCommissionStore{order: delivered}
	d := NewDistributor(fs, testRates(), "platform")

	_, credited, err := d.CreditDelivery(context.Background(), "ord-2")
	if err != nil {
		t.Fatalf("CreditDelivery: %v", err)
	}
	if credited {
		t.Error("delivered order must not be credited again")
	}
	if len(fs.credited) != 0 {
		t.Errorf("store received %d credits, want 0", len(fs.credited))
	}
}

func TestCreditDeliveryLostRace(t *testing.T) {
	// Another process flipped the flag between the read and the credit.
	fs := &fakeCommissionStore{
		order: models.Order{
			ID: "ord-3", SellerID: "seller-1", GrossAmount: 1000,
			FulfillmentStatus: models.FulfillmentShipped,
		},
		creditErr: store.ErrAlreadyDelivered,
	}
	d := NewDistributor(fs, testRates(), "platform")

	_, credited, err := d.CreditDelivery(context.Background(), "ord-3")
	if err != nil {
		t.Fatalf("CreditDelivery: %v", err)
	}
	if credited {
		t.Error("lost race must report credited=false")
	}
}
