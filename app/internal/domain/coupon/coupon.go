package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed:
		return true
	default:
		return false
	}
}

// Coupon is the catalog entity. Optional limits are nil when unset.
type Coupon struct {
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discount_type"`
	DiscountValue     float64      `json:"discount_value"`
	MinOrderAmount    *float64     `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *float64     `json:"max_discount_amount,omitempty"`
	UsageLimit        *int64       `json:"usage_limit,omitempty"`
	UsageCount        int64        `json:"usage_count"`
	StartDate         *time.Time   `json:"start_date,omitempty"`
	EndDate           *time.Time   `json:"end_date,omitempty"`
	IsActive          bool         `json:"is_active"`
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ActiveAt reports whether the coupon is enabled and inside its validity window.
func (c Coupon) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}

func (c Coupon) UsageExhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

// RequiresMoreThan returns the minimum order amount when subtotal is below it.
func (c Coupon) RequiresMoreThan(subtotal float64) (float64, bool) {
	if c.MinOrderAmount == nil {
		return 0, false
	}
	if decimal.NewFromFloat(*c.MinOrderAmount).GreaterThan(decimal.NewFromFloat(subtotal)) {
		return *c.MinOrderAmount, true
	}
	return 0, false
}

// ComputeDiscount prices c against subtotal. Percentage discounts are capped by
// MaxDiscountAmount; every discount is capped at the subtotal and never negative.
func ComputeDiscount(c Coupon, subtotal float64) float64 {
	base := decimal.NewFromFloat(subtotal)
	if !base.IsPositive() {
		return 0
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = base.Mul(decimal.NewFromFloat(c.DiscountValue)).Div(decimal.NewFromInt(100))
		if c.MaxDiscountAmount != nil {
			amount = decimal.Min(amount, decimal.NewFromFloat(*c.MaxDiscountAmount))
		}
	case DiscountFixed:
		amount = decimal.NewFromFloat(c.DiscountValue)
	default:
		return 0
	}

	amount = decimal.Max(decimal.Zero, decimal.Min(amount, base))
	return amount.Round(2).InexactFloat64()
}
