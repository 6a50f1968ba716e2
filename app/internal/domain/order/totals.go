package order

import "github.com/shopspring/decimal"

// Totals is always derived; nothing mutates it after Compute.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	ShippingFee    float64 `json:"shipping_fee"`
	TaxAmount      float64 `json:"tax_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

// ComputeTotal returns max(0, subtotal + shippingFee + taxAmount - discountAmount).
func ComputeTotal(subtotal, shippingFee, taxAmount, discountAmount float64) float64 {
	total := decimal.NewFromFloat(subtotal).
		Add(decimal.NewFromFloat(shippingFee)).
		Add(decimal.NewFromFloat(taxAmount)).
		Sub(decimal.NewFromFloat(discountAmount))
	if total.IsNegative() {
		return 0
	}
	return total.Round(2).InexactFloat64()
}

// ProductDiscount is the display-only "you saved" figure from sale prices.
func ProductDiscount(originalSubtotal, subtotal float64) float64 {
	saved := decimal.NewFromFloat(originalSubtotal).Sub(decimal.NewFromFloat(subtotal))
	if saved.IsNegative() {
		return 0
	}
	return saved.Round(2).InexactFloat64()
}

func Compute(subtotal, shippingFee, taxAmount, discountAmount float64) Totals {
	return Totals{
		Subtotal:       subtotal,
		ShippingFee:    shippingFee,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		Total:          ComputeTotal(subtotal, shippingFee, taxAmount, discountAmount),
	}
}
