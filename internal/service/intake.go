package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/paycore/internal/models"
	"github.com/punchamoorthee/paycore/internal/store"
)

// EventStore is the slice of the store the intake guard needs.
type EventStore interface {
	AdmitEvent(ctx context.Context, ev models.GatewayEvent) error
}

// Admission is the guard's verdict on one inbound delivery.
type Admission struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Guard deduplicates inbound gateway events. Correctness rests entirely
// on the store's unique constraint over the composite event id, not on
// any in-process locking: concurrent deliveries across server processes
// race on the insert and exactly one wins.
type Guard struct {
	store EventStore
}

func NewGuard(s EventStore) *Guard {
	return &Guard{store: s}
}

// Admit records the delivery. A duplicate is not an error: the caller
// must acknowledge the gateway as if processing succeeded. Any other
// store failure propagates so the gateway retries.
func (g *Guard) Admit(ctx context.Context, ev models.GatewayEvent) (Admission, error) {
	if ev.GatewayPaymentID == "" || ev.EventType == "" {
		return Admission{}, fmt.Errorf("%w: event missing gateway payment id or type", ErrInvalidRequest)
	}

	err := g.store.AdmitEvent(ctx, ev)
	switch {
	case err == nil:
		return Admission{Accepted: true}, nil
	case errors.Is(err, store.ErrDuplicateEvent):
		return Admission{Accepted: false, Reason: "duplicate"}, nil
	default:
		return Admission{}, err
	}
}
