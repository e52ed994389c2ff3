package service

import "errors"

var (
	// ErrInvalidRequest covers terminal caller mistakes: bad amounts,
	// refunds against the wrong state, missing gateway references.
	// Surfaced, never retried.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrGatewayRefundFailed means the gateway rejected or failed the
	// refund call. Distinct from ErrInvalidRequest so operators can tell
	// "we rejected this" from "the gateway rejected this".
	ErrGatewayRefundFailed = errors.New("gateway refund failed")

	// ErrGatewayCall means an outbound gateway read (settlements, recon)
	// failed. Retryable by the caller.
	ErrGatewayCall = errors.New("gateway call failed")

	// ErrDataIntegrity marks an invariant violation. Fatal and loud,
	// never silently clamped.
	ErrDataIntegrity = errors.New("data integrity violation")
)
