package coupon

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Reason is the machine readable cause of a failed apply.
type Reason string

const (
	ReasonMissingCode       Reason = "MISSING_CODE"
	ReasonMinOrderNotMet    Reason = "MIN_ORDER_NOT_MET"
	ReasonExpiredOrInvalid  Reason = "EXPIRED_OR_INVALID"
	ReasonUsageLimitReached Reason = "USAGE_LIMIT_REACHED"
	ReasonUnknown           Reason = "UNKNOWN"
)

// Error is returned by every failed apply. Two Errors match under errors.Is
// when their reasons are equal.
type Error struct {
	Reason         Reason
	RequiredAmount float64
	Message        string
	Err            error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

var (
	ErrMissingCode       = &Error{Reason: ReasonMissingCode, Message: "coupon code is required"}
	ErrMinOrderNotMet    = &Error{Reason: ReasonMinOrderNotMet, Message: "order does not meet the coupon minimum"}
	ErrExpiredOrInvalid  = &Error{Reason: ReasonExpiredOrInvalid, Message: "coupon is expired or invalid"}
	ErrUsageLimitReached = &Error{Reason: ReasonUsageLimitReached, Message: "coupon usage limit reached"}
	ErrUnknown           = &Error{Reason: ReasonUnknown, Message: "could not apply coupon, please try again"}

	ErrCouponNotFound = errors.New("coupon not found")
)

func MinOrderNotMet(required float64) *Error {
	return &Error{
		Reason:         ReasonMinOrderNotMet,
		RequiredAmount: required,
		Message:        fmt.Sprintf("order subtotal must be at least %s to use this coupon", decimal.NewFromFloat(required).String()),
	}
}

// NewError builds an Error for reason, keeping the default message when msg is empty.
func NewError(reason Reason, msg string, cause error) *Error {
	if msg == "" {
		switch reason {
		case ReasonMissingCode:
			msg = ErrMissingCode.Message
		case ReasonExpiredOrInvalid:
			msg = ErrExpiredOrInvalid.Message
		case ReasonUsageLimitReached:
			msg = ErrUsageLimitReached.Message
		case ReasonMinOrderNotMet:
			msg = ErrMinOrderNotMet.Message
		default:
			msg = ErrUnknown.Message
		}
	}
	return &Error{Reason: reason, Message: msg, Err: cause}
}
