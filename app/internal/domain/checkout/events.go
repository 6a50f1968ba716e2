package checkout

import (
	"context"
	"time"
)

type EventType string

const (
	EventStarted           EventType = "checkout.started"
	EventAbandoned         EventType = "checkout.abandoned"
	EventCouponApplied     EventType = "checkout.coupon_applied"
	EventCouponInvalidated EventType = "checkout.coupon_invalidated"
	EventOrderPlaced       EventType = "checkout.order_placed"
	EventOrderFailed       EventType = "checkout.order_failed"
)

// Event is a fact about a checkout, published after the state change committed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	CheckoutID string    `json:"checkout_id"`
	UserID     string    `json:"user_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	CouponCode string    `json:"coupon_code,omitempty"`
	Total      float64   `json:"total,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
