package models

import "time"

// PaymentStatus tracks the lifecycle of a single payment attempt.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	KindDeposit                  EntryKind = "deposit"
	KindWithdrawal               EntryKind = "withdrawal"
	KindRefund                   EntryKind = "refund"
	KindBonus                    EntryKind = "bonus"
	KindInvestment               EntryKind = "investment"
	KindReferralCommissionLegacy EntryKind = "referral_commission_legacy"
	KindReferralBonus            EntryKind = "referral_bonus"
	KindCommissionLocked         EntryKind = "commission_locked"
	KindPlatformCommission       EntryKind = "platform_commission"
	KindSellerEarning            EntryKind = "seller_earning"
)

// EntryStatus is the settlement state of a ledger entry. Entries are
// append-only; status is the only field that ever changes, and only
// pending -> completed/failed.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

// LedgerEntry is one immutable credit or debit against a user's wallet.
// Amounts are always positive and in minor currency units; the kind
// determines the direction.
type LedgerEntry struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      EntryKind         `json:"kind"`
	Amount    int64             `json:"amount"`
	Status    EntryStatus       `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Refund is one gateway-confirmed refund against a payment attempt.
type Refund struct {
	ID              string    `json:"id"`
	GatewayRefundID string    `json:"gateway_refund_id"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	Speed           string    `json:"speed"`
	ARN             string    `json:"arn,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PaymentAttempt is the record of a single payment, mutated only by the
// state machine in internal/service.
type PaymentAttempt struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	OrderID          string        `json:"order_id"`
	ReferrerID       string        `json:"referrer_id,omitempty"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	GatewayOrderID   string        `json:"gateway_order_id"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Method           string        `json:"method,omitempty"`
	Status           PaymentStatus `json:"status"`
	Fee              int64         `json:"fee"`
	Tax              int64         `json:"tax"`
	ErrorCode        string        `json:"error_code,omitempty"`
	ErrorDescription string        `json:"error_description,omitempty"`
	RefundedAmount   int64         `json:"refunded_amount"`
	Refunds          []Refund      `json:"refunds,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	CapturedAt       *time.Time    `json:"captured_at,omitempty"`
}

// WebhookEvent is the deduplication row for one inbound gateway delivery.
// EventID is gatewayPaymentID + ":" + eventType; the unique constraint on
// it is the idempotency mechanism.
type WebhookEvent struct {
	EventID          string     `json:"event_id"`
	GatewayPaymentID string     `json:"gateway_payment_id"`
	EventType        string     `json:"event_type"`
	Status           string     `json:"status"`
	ReceivedAt       time.Time  `json:"received_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// GatewayEvent is the normalized inbound webhook payload.
type GatewayEvent struct {
	GatewayPaymentID string
	GatewayOrderID   string
	EventType        string
	Amount           int64
	Currency         string
	Method           string
	Fee              int64
	Tax              int64
	ErrorCode        string
	ErrorDescription string
}

// CompositeEventID derives the dedupe key for an inbound delivery.
func (e GatewayEvent) CompositeEventID() string {
	return e.GatewayPaymentID + ":" + e.EventType
}

// FulfillmentStatus of an order. Delivered gates the seller-earning credit.
type FulfillmentStatus string

const (
	FulfillmentPlaced    FulfillmentStatus = "placed"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
)

// Order is the slice of the order record this subsystem needs: enough to
// credit the seller once delivery is confirmed.
type Order struct {
	ID                string            `json:"id"`
	SellerID          string            `json:"seller_id"`
	BuyerID           string            `json:"buyer_id"`
	Category          string            `json:"category"`
	GrossAmount       int64             `json:"gross_amount"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
}

// WalletSummary is derived from the ledger; it is persisted only as a
// cache and never treated as the source of truth.
type WalletSummary struct {
	Balance             int64 `json:"balance"`
	HoldBalance         int64 `json:"hold_balance"`
	ReferralBonusTotal  int64 `json:"referral_bonus_total"`
	InvestedAmount      int64 `json:"invested_amount"`
	RequiredInvestment  int64 `json:"required_investment"`
	CommissionEarned    int64 `json:"commission_earned"`
	CommissionUsedInApp int64 `json:"commission_used_in_app"`
	CommissionUnlocked  bool  `json:"commission_unlocked"`
}
