package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/paycore/internal/gateway"
	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/store"
)

// Gateway is the outbound payment-gateway surface the refund processor
// depends on. The HTTP client in internal/gateway implements it; tests
// substitute fakes.
type Gateway interface {
	Refund(ctx context.Context, gatewayPaymentID string, req gateway.RefundRequest) (gateway.RefundResult, error)
	ListSettlements(ctx context.Context, p gateway.SettlementParams) ([]gateway.Settlement, error)
	ListReconItems(ctx context.Context, p gateway.ReconParams) ([]gateway.ReconItem, error)
}

// RefundStore is the slice of the store the refund processor needs.
type RefundStore interface {
	GetPayment(ctx context.Context, id string) (models.PaymentAttempt, error)
	AppendRefund(ctx context.Context, paymentID string, r models.Refund, entry models.LedgerEntry) error
}

// RefundService validates and executes refunds against completed
// payments and proxies settlement reconciliation reads.
type RefundService struct {
	store   RefundStore
	gateway Gateway
}

func NewRefundService(s RefundStore, gw Gateway) *RefundService {
	return &RefundService{store: s, gateway: gw}
}

// RefundInput describes one refund request. Amount zero means the full
// remaining refundable amount.
type RefundInput struct {
	Amount int64
	Reason string
	Speed  string
}

// Refund executes a refund. The gateway call happens before any local
// mutation: a gateway failure leaves local state untouched. The local
// bookkeeping is a single conditional increment, so concurrent refunds
// can never push refunded_amount past the captured amount.
func (s *RefundService) Refund(ctx context.Context, paymentID string, in RefundInput) (models.Refund, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return models.Refund{}, err
	}
	if p.Status != models.PaymentCompleted {
		return models.Refund{}, fmt.Errorf("%w: payment %s is %s, only COMPLETED payments are refundable",
			ErrInvalidRequest, paymentID, p.Status)
	}
	if p.GatewayPaymentID == "" {
		return models.Refund{}, fmt.Errorf("%w: payment %s has no gateway reference", ErrInvalidRequest, paymentID)
	}

	remaining := p.Amount - p.RefundedAmount
	amount := in.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return models.Refund{}, fmt.Errorf("%w: refund amount %d not in (0, %d]", ErrInvalidRequest, amount, remaining)
	}

	speed := in.Speed
	if speed == "" {
		speed = gateway.SpeedNormal
	}
	if speed != gateway.SpeedNormal && speed != gateway.SpeedOptimum {
		return models.Refund{}, fmt.Errorf("%w: unknown refund speed %q", ErrInvalidRequest, in.Speed)
	}

	req := gateway.RefundRequest{Amount: amount, Speed: speed}
	if in.Reason != "" {
		req.Notes = map[string]string{"reason": in.Reason}
	}
	result, err := s.gateway.Refund(ctx, p.GatewayPaymentID, req)
	if err != nil {
		return models.Refund{}, fmt.Errorf("%w: %w", ErrGatewayRefundFailed, err)
	}

	refund := models.Refund{
		ID:              uuid.NewString(),
		GatewayRefundID: result.ID,
		Amount:          amount,
		Status:          result.Status,
		Speed:           result.SpeedRequested,
		ARN:             result.AcquirerData.ARN,
		CreatedAt:       time.Now(),
	}
	entry := models.LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Kind:      models.KindRefund,
		Amount:    amount,
		Status:    models.EntryCompleted,
		CreatedAt: refund.CreatedAt,
		Meta: map[string]string{
			"payment_id":        paymentID,
			"gateway_refund_id": result.ID,
		},
	}

	if err := s.store.AppendRefund(ctx, paymentID, refund, entry); err != nil {
		if errors.Is(err, store.ErrRefundExceedsCaptured) {
			// The gateway confirmed a refund the local bound rejects:
			// a concurrent refund consumed the remaining amount between
			// validation and commit.
			log.Printf("refund %s confirmed by gateway but rejected locally for payment %s", result.ID, paymentID)
			return models.Refund{}, fmt.Errorf("%w: gateway refund %s exceeds remaining refundable amount of payment %s",
				ErrDataIntegrity, result.ID, paymentID)
		}
		return models.Refund{}, err
	}
	return refund, nil
}

// SettlementPage is one page of gateway settlement batches.
type SettlementPage struct {
	Items   []gateway.Settlement `json:"items"`
	Count   int                  `json:"count"`
	Skip    int                  `json:"skip"`
	HasMore bool                 `json:"has_more"`
}

// ListSettlements proxies the gateway's settlement listing. The gateway
// reports no total count, so has-more is inferred from a full page.
func (s *RefundService) ListSettlements(ctx context.Context, p gateway.SettlementParams) (SettlementPage, error) {
	if p.Count <= 0 {
		p.Count = 10
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	items, err := s.gateway.ListSettlements(ctx, p)
	if err != nil {
		return SettlementPage{}, fmt.Errorf("%w: %w", ErrGatewayCall, err)
	}
	return SettlementPage{
		Items:   items,
		Count:   p.Count,
		Skip:    p.Skip,
		HasMore: len(items) == p.Count,
	}, nil
}

// ReconPage is one page of recon items within a settlement cycle.
type ReconPage struct {
	Items   []gateway.ReconItem `json:"items"`
	Count   int                 `json:"count"`
	Skip    int                 `json:"skip"`
	HasMore bool                `json:"has_more"`
}

// ListReconItems proxies the gateway's settlement recon listing.
func (s *RefundService) ListReconItems(ctx context.Context, p gateway.ReconParams) (ReconPage, error) {
	if p.Count <= 0 {
		p.Count = 10
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	items, err := s.gateway.ListReconItems(ctx, p)
	if err != nil {
		return ReconPage{}, fmt.Errorf("%w: %w", ErrGatewayCall, err)
	}
	return ReconPage{
		Items:   items,
		Count:   p.Count,
		Skip:    p.Skip,
		HasMore: len(items) == p.Count,
	}, nil
}
