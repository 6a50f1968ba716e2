package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	// DefaultFallbackFee is charged when the carrier cannot quote.
	DefaultFallbackFee float64 = 30000
	// DefaultPerItemWeightGrams is the per-unit weight estimate used to size a parcel.
	DefaultPerItemWeightGrams int64 = 500
	// MinParcelWeightGrams is the carrier's minimum billable weight.
	MinParcelWeightGrams int64 = 200
)

var insuranceRate = decimal.RequireFromString("0.10")

type Destination struct {
	DistrictID int    `json:"district_id"`
	WardCode   string `json:"ward_code"`
}

// Routable reports whether the destination is precise enough to quote.
func (d Destination) Routable() bool {
	return d.DistrictID != 0 && d.WardCode != ""
}

// Parcel is what gets sent to the carrier rate service.
type Parcel struct {
	Destination
	WeightGrams    int64   `json:"weight"`
	InsuranceValue int64   `json:"insurance_value"`
	ItemCount      int64   `json:"item_count"`
	Subtotal       float64 `json:"subtotal"`
}

type Quote struct {
	Fee             float64 `json:"fee"`
	FallbackApplied bool    `json:"fallback_applied"`
}

// InsuranceValue is 10% of subtotal rounded to the nearest unit, never negative.
func InsuranceValue(subtotal float64) int64 {
	v := decimal.NewFromFloat(subtotal).Mul(insuranceRate).Round(0)
	if v.IsNegative() {
		return 0
	}
	return v.IntPart()
}

// ParcelWeight applies the minimum billable weight to the estimated total.
func ParcelWeight(totalQuantity, perItemGrams int64) int64 {
	w := totalQuantity * perItemGrams
	if w < MinParcelWeightGrams {
		return MinParcelWeightGrams
	}
	return w
}

// RateService is the carrier fee endpoint.
type RateService interface {
	Fee(ctx context.Context, p Parcel) (Quote, error)
}
