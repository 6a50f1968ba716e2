package coupon

import "context"

// Repository is the catalog store the local pre-check is warmed from.
type Repository interface {
	ListActive(ctx context.Context) ([]Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}

type ApplyRequest struct {
	Code      string
	UserID    string
	SessionID string
}

// ApplyResult mirrors the coupon service's successful apply response.
type ApplyResult struct {
	Code               string
	DiscountType       DiscountType
	DiscountValue      float64
	DiscountAmount     float64
	Subtotal           float64
	TotalAfterDiscount float64
}

// Applier is the authoritative remote apply endpoint.
type Applier interface {
	Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error)
}
