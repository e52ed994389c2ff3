package domain

import (
	"github.com/punchamoorthee/paycore/internal/models"
)

// WebhookEnvelope is the raw gateway webhook body. The gateway nests the
// payment entity two levels deep.
type WebhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// PaymentEntity is the gateway's view of a payment inside a webhook.
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Method           string `json:"method"`
	Fee              int64  `json:"fee"`
	Tax              int64  `json:"tax"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// Normalize flattens the envelope into the form the services consume.
func (w WebhookEnvelope) Normalize() models.GatewayEvent {
	p := w.Payload.Payment.Entity
	return models.GatewayEvent{
		GatewayPaymentID: p.ID,
		GatewayOrderID:   p.OrderID,
		EventType:        w.Event,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Method:           p.Method,
		Fee:              p.Fee,
		Tax:              p.Tax,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
	}
}

// CreatePaymentRequest initiates a payment attempt.
type CreatePaymentRequest struct {
	UserID         string `json:"user_id"`
	OrderID        string `json:"order_id"`
	ReferrerID     string `json:"referrer_id,omitempty"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// RefundRequest asks for a (partial) refund of a completed payment.
// Amount zero means the full remaining refundable amount.
type RefundRequest struct {
	Amount int64  `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
	Speed  string `json:"speed,omitempty"`
}

// WebhookAck is returned to the gateway for every accepted or duplicate
// delivery.
type WebhookAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// WalletResponse pairs the recomputed summary with the user id.
type WalletResponse struct {
	UserID string               `json:"user_id"`
	Wallet models.WalletSummary `json:"wallet"`
}
