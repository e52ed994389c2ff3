package store

import "errors"

var (
	// ErrDuplicateEvent means the webhook event id already exists: the
	// delivery was processed before and must be acknowledged, not re-applied.
	ErrDuplicateEvent = errors.New("duplicate webhook event")

	// ErrInvalidTransition means the payment was not in a state that
	// permits the requested transition.
	ErrInvalidTransition = errors.New("invalid payment state transition")

	// ErrRefundExceedsCaptured means the conditional refund increment
	// found no row to update: either the payment is not refundable or the
	// requested amount overruns what remains.
	ErrRefundExceedsCaptured = errors.New("refund exceeds captured amount")

	// ErrAlreadyDelivered means the order's seller earning was credited
	// before; the re-confirmation is benign.
	ErrAlreadyDelivered = errors.New("order already delivered")

	// ErrPaymentExists means a payment attempt for the gateway order id
	// was already created.
	ErrPaymentExists = errors.New("payment already exists")

	ErrNotFound = errors.New("not found")
)
