package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/store"
)

// Gateway event types this core reacts to. Anything else is recorded and
// acknowledged without side effects.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// PaymentStore is the slice of the store the state machine needs.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p models.PaymentAttempt) error
	GetPayment(ctx context.Context, id string) (models.PaymentAttempt, error)
	GetPaymentByGatewayOrder(ctx context.Context, gatewayOrderID string) (models.PaymentAttempt, error)
	ApplyCapture(ctx context.Context, in store.CaptureInput) error
	ApplyFailure(ctx context.Context, ev models.GatewayEvent, paymentID string) error
	CancelPayment(ctx context.Context, id string) error
}

// PaymentService owns the payment lifecycle. Transitions into COMPLETED
// and the commission writes they gate commit in one store transaction, so
// a retried delivery can never observe a half-applied capture.
type PaymentService struct {
	store       PaymentStore
	guard       *Guard
	commissions *Distributor
}

func NewPaymentService(s PaymentStore, guard *Guard, commissions *Distributor) *PaymentService {
	return &PaymentService{store: s, guard: guard, commissions: commissions}
}

// InitiatePayment is the input to Initiate. ReferrerID is the already
// resolved referrer for the buyer; this core does not walk referral graphs.
type InitiatePayment struct {
	UserID         string
	OrderID        string
	ReferrerID     string
	GatewayOrderID string
	Amount         int64
	Currency       string
}

// Initiate creates a PENDING payment attempt bound to a gateway order.
func (s *PaymentService) Initiate(ctx context.Context, in InitiatePayment) (models.PaymentAttempt, error) {
	if in.UserID == "" || in.GatewayOrderID == "" {
		return models.PaymentAttempt{}, fmt.Errorf("%w: user id and gateway order id are required", ErrInvalidRequest)
	}
	if in.Amount <= 0 {
		return models.PaymentAttempt{}, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}
	p := models.PaymentAttempt{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		OrderID:        in.OrderID,
		ReferrerID:     in.ReferrerID,
		GatewayOrderID: in.GatewayOrderID,
		Amount:         in.Amount,
		Currency:       currency,
		Status:         models.PaymentPending,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return models.PaymentAttempt{}, err
	}
	return p, nil
}

// Get returns a payment attempt with its refunds.
func (s *PaymentService) Get(ctx context.Context, id string) (models.PaymentAttempt, error) {
	return s.store.GetPayment(ctx, id)
}

// Cancel moves a payment to CANCELLED; only PENDING and PROCESSING
// payments can be cancelled.
func (s *PaymentService) Cancel(ctx context.Context, id string) error {
	return s.store.CancelPayment(ctx, id)
}

// EventOutcome reports how an inbound delivery was handled.
type EventOutcome struct {
	EventID   string
	Duplicate bool
}

// HandleEvent advances the payment state machine for one inbound gateway
// event. Duplicates (retried deliveries, or late deliveries for a
// payment another event already settled) come back with Duplicate set
// and no error: the caller acknowledges the gateway as if processing
// succeeded. Everything else is surfaced.
func (s *PaymentService) HandleEvent(ctx context.Context, ev models.GatewayEvent) (EventOutcome, error) {
	if ev.GatewayPaymentID == "" || ev.EventType == "" {
		return EventOutcome{}, fmt.Errorf("%w: event missing gateway payment id or type", ErrInvalidRequest)
	}
	out := EventOutcome{EventID: ev.CompositeEventID()}

	switch ev.EventType {
	case EventPaymentCaptured:
		p, err := s.store.GetPaymentByGatewayOrder(ctx, ev.GatewayOrderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return out, fmt.Errorf("%w: no payment for gateway order %q", ErrInvalidRequest, ev.GatewayOrderID)
			}
			return out, err
		}
		if ev.Amount != 0 && ev.Amount != p.Amount {
			return out, fmt.Errorf("%w: captured amount %d does not match payment amount %d for %s",
				ErrDataIntegrity, ev.Amount, p.Amount, p.ID)
		}

		dist := s.commissions.Distribute(p)
		err = s.store.ApplyCapture(ctx, store.CaptureInput{
			Event:            ev,
			PaymentID:        p.ID,
			Entries:          dist.Entries,
			CommissionUserID: dist.ReferrerID,
			CommissionAmount: dist.Commission,
		})
		switch {
		case errors.Is(err, store.ErrDuplicateEvent), errors.Is(err, store.ErrInvalidTransition):
			out.Duplicate = true
			return out, nil
		case err != nil:
			return out, err
		}
		return out, nil

	case EventPaymentFailed:
		p, err := s.store.GetPaymentByGatewayOrder(ctx, ev.GatewayOrderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return out, fmt.Errorf("%w: no payment for gateway order %q", ErrInvalidRequest, ev.GatewayOrderID)
			}
			return out, err
		}
		err = s.store.ApplyFailure(ctx, ev, p.ID)
		switch {
		case errors.Is(err, store.ErrDuplicateEvent), errors.Is(err, store.ErrInvalidTransition):
			out.Duplicate = true
			return out, nil
		case err != nil:
			return out, err
		}
		return out, nil

	default:
		adm, err := s.guard.Admit(ctx, ev)
		if err != nil {
			return out, err
		}
		out.Duplicate = !adm.Accepted
		return out, nil
	}
}
