package x402

import "errors"

// ErrInvalidAmount is returned at gate construction when a route's explicit
// minAmountRequired does not floor to a positive integer satoshi amount.
var ErrInvalidAmount = errors.New("route amount must floor to a positive integer")

// Challenge messages shared between the gate and its tests.
const (
	// MsgMissingPaymentHeader is the 402 error for a priced route hit
	// without a payment header.
	MsgMissingPaymentHeader = "X-PAYMENT header is required"

	// MsgNoMatchingRequirements is the 402 error when a decoded payload
	// names a scheme/network no advertised requirement covers.
	MsgNoMatchingRequirements = "Unable to find matching payment requirements"
)
