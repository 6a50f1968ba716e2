package checkout

import "errors"

var (
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrSessionConflict      = errors.New("checkout session was modified concurrently")
	ErrUnknownForm          = errors.New("unknown address form")
	ErrValidation           = errors.New("checkout validation failed")
	ErrSubmissionInProgress = errors.New("order submission already in progress")
	ErrInvalidTransition    = errors.New("invalid checkout transition")
	ErrNotEditable          = errors.New("checkout cannot be edited while an order is being placed")
)

// ErrCouponInvalidated is returned by submit when the cart moved away from the
// subtotal the coupon was applied at; the coupon has been removed.
var ErrCouponInvalidated = errors.New("applied coupon no longer matches the cart, please reapply it")
