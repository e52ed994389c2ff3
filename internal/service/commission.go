package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Rates are the commission percentages applied by the distributor.
type Rates struct {
	Referral      decimal.Decimal
	Platform      decimal.Decimal
	SellerDefault decimal.Decimal
}

// CommissionStore is the slice of the store the distributor needs for
// delivery-confirmation credits.
type CommissionStore interface {
	GetOrder(ctx context.Context, id string) (models.Order, error)
	CreditSellerEarning(ctx context.Context, orderID string, entry models.LedgerEntry) error
	SellerRate(ctx context.Context, sellerID string) (decimal.Decimal, bool, error)
	CategoryRate(ctx context.Context, category string) (decimal.Decimal, bool, error)
}

// Distributor computes commission ledger entries for completed payments
// and seller earnings for delivered orders.
type Distributor struct {
	store          CommissionStore
	rates          Rates
	platformUserID string
	now            func() time.Time
}

func NewDistributor(s CommissionStore, rates Rates, platformUserID string) *Distributor {
	return &Distributor{store: s, rates: rates, platformUserID: platformUserID, now: time.Now}
}

// pct rounds amount * rate / 100 to whole minor units.
func pct(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Div(hundred).Round(0).IntPart()
}

// Distribution is the outcome of distributing one captured payment: the
// commission ledger entries plus the referrer's lifetime counter credit.
// Commission is zero when the payment carries no referrer.
type Distribution struct {
	Entries    []models.LedgerEntry
	ReferrerID string
	Commission int64
}

// Distribute computes the commission entries for one completed
// installment payment. The referral commission is split at source per the
// current accounting rule: 90% immediately available, 10% locked. The
// split halves always sum to the whole referral commission, so per-entry
// rounding never loses or mints a unit. The whole commission also feeds
// the referrer's commission_earned counter, which the wallet engine's
// unlock threshold reads.
func (d *Distributor) Distribute(p models.PaymentAttempt) Distribution {
	meta := map[string]string{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
	}
	now := d.now()

	var dist Distribution
	if p.ReferrerID != "" {
		commission := pct(p.Amount, d.rates.Referral)
		bonus := decimal.NewFromInt(commission).Mul(decimal.NewFromFloat(0.9)).Round(0).IntPart()
		locked := commission - bonus
		dist.ReferrerID = p.ReferrerID
		dist.Commission = commission
		dist.Entries = append(dist.Entries,
			models.LedgerEntry{
				ID:        uuid.NewString(),
				UserID:    p.ReferrerID,
				Kind:      models.KindReferralBonus,
				Amount:    bonus,
				Status:    models.EntryCompleted,
				CreatedAt: now,
				Meta:      meta,
			},
			models.LedgerEntry{
				ID:        uuid.NewString(),
				UserID:    p.ReferrerID,
				Kind:      models.KindCommissionLocked,
				Amount:    locked,
				Status:    models.EntryCompleted,
				CreatedAt: now,
				Meta:      meta,
			},
		)
	}

	dist.Entries = append(dist.Entries, models.LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    d.platformUserID,
		Kind:      models.KindPlatformCommission,
		Amount:    pct(p.Amount, d.rates.Platform),
		Status:    models.EntryCompleted,
		CreatedAt: now,
		Meta:      meta,
	})
	return dist
}

// CreditDelivery credits the seller's earning for a delivered order.
// Idempotent per order: a repeat confirmation returns credited=false and
// no error. The commission rate resolves seller override, then category
// default, then the platform default.
func (d *Distributor) CreditDelivery(ctx context.Context, orderID string) (models.LedgerEntry, bool, error) {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		return models.LedgerEntry{}, false, err
	}
	if order.FulfillmentStatus == models.FulfillmentDelivered {
		return models.LedgerEntry{}, false, nil
	}

	rate, err := d.resolveRate(ctx, order)
	if err != nil {
		return models.LedgerEntry{}, false, err
	}

	earning := decimal.NewFromInt(order.GrossAmount).
		Mul(decimal.NewFromInt(1).Sub(rate.Div(hundred))).
		Round(0).IntPart()

	entry := models.LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    order.SellerID,
		Kind:      models.KindSellerEarning,
		Amount:    earning,
		Status:    models.EntryCompleted,
		CreatedAt: d.now(),
		Meta:      map[string]string{"order_id": order.ID},
	}

	err = d.store.CreditSellerEarning(ctx, orderID, entry)
	if errors.Is(err, store.ErrAlreadyDelivered) {
		return models.LedgerEntry{}, false, nil
	}
	if err != nil {
		return models.LedgerEntry{}, false, err
	}
	return entry, true, nil
}

func (d *Distributor) resolveRate(ctx context.Context, order models.Order) (decimal.Decimal, error) {
	if rate, ok, err := d.store.SellerRate(ctx, order.SellerID); err != nil {
		return decimal.Zero, err
	} else if ok {
		return rate, nil
	}
	if order.Category != "" {
		if rate, ok, err := d.store.CategoryRate(ctx, order.Category); err != nil {
			return decimal.Zero, err
		} else if ok {
			return rate, nil
		}
	}
	return d.rates.SellerDefault, nil
}
