package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubtotalTolerance is the largest subtotal drift an applied coupon survives.
var SubtotalTolerance = decimal.RequireFromString("0.01")

// Applied is the locally held result of a successful remote apply call.
type Applied struct {
	Code                  string       `json:"code"`
	DiscountType          DiscountType `json:"discount_type"`
	DiscountValue         float64      `json:"discount_value"`
	DiscountAmount        float64      `json:"discount_amount"`
	SubtotalAtApplication float64      `json:"subtotal_at_application"`
	AppliedAt             time.Time    `json:"applied_at"`
}

// StaleFor reports whether the cart subtotal drifted away from the one the
// coupon was priced against.
func (a Applied) StaleFor(subtotal float64) bool {
	diff := decimal.NewFromFloat(subtotal).Sub(decimal.NewFromFloat(a.SubtotalAtApplication)).Abs()
	return diff.GreaterThan(SubtotalTolerance)
}

// DiscountFor derives the discount to charge at the given subtotal.
// A missing or stale coupon yields zero.
func DiscountFor(a *Applied, subtotal float64) float64 {
	if a == nil || a.StaleFor(subtotal) {
		return 0
	}
	return a.DiscountAmount
}
