package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
)

// FlatRateTax charges Percent of the subtotal. The zero value charges nothing.
type FlatRateTax struct {
	Percent float64
}

func (t FlatRateTax) TaxAmount(ctx context.Context, cart domcart.Snapshot) (float64, error) {
	if t.Percent <= 0 || cart.Subtotal <= 0 {
		return 0, nil
	}
	return decimal.NewFromFloat(cart.Subtotal).
		Mul(decimal.NewFromFloat(t.Percent)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64(), nil
}
