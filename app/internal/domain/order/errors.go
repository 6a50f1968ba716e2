package order

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidPayment   = errors.New("invalid payment method")
	ErrEmptyOrderItems  = errors.New("no items to checkout")
	ErrOrderRejected    = errors.New("order rejected")
	ErrOrderUnreachable = errors.New("order service unreachable")
)

// SubmissionError wraps a failed order submission. Kind is ErrOrderRejected
// when the backend refused the order and ErrOrderUnreachable on network failure.
type SubmissionError struct {
	Kind    error
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
