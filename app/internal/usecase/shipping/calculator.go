package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
	"example.com/storefront-checkout/app/internal/infra/observability"
)

const DefaultTimeout = 5 * time.Second

type Options struct {
	PerItemWeightGrams int64
	FallbackFee        float64
	Timeout            time.Duration
}

// Calculator quotes shipping for a destination. It never fails: every carrier
// problem degrades to the fallback fee.
type Calculator struct {
	rates  domshipping.RateService
	opts   Options
	logger *zap.Logger
}

func NewCalculator(rates domshipping.RateService, opts Options, logger *zap.Logger) *Calculator {
	if opts.PerItemWeightGrams <= 0 {
		opts.PerItemWeightGrams = domshipping.DefaultPerItemWeightGrams
	}
	if opts.FallbackFee <= 0 {
		opts.FallbackFee = domshipping.DefaultFallbackFee
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{rates: rates, opts: opts, logger: logger}
}

func (c *Calculator) Fallback() domshipping.Quote {
	return domshipping.Quote{Fee: c.opts.FallbackFee, FallbackApplied: true}
}

// Parcel derives the physical shipment parameters sent to the carrier.
func (c *Calculator) Parcel(dest domshipping.Destination, items []domcart.Item, subtotal float64) domshipping.Parcel {
	qty := domcart.TotalQuantity(items)
	return domshipping.Parcel{
		Destination:    dest,
		WeightGrams:    domshipping.ParcelWeight(qty, c.opts.PerItemWeightGrams),
		InsuranceValue: domshipping.InsuranceValue(subtotal),
		ItemCount:      qty,
		Subtotal:       subtotal,
	}
}

func (c *Calculator) Calculate(ctx context.Context, dest domshipping.Destination, items []domcart.Item, subtotal float64) domshipping.Quote {
	parcel := c.Parcel(dest, items, subtotal)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	q, err := c.rates.Fee(ctx, parcel)
	if err != nil {
		observability.FromContext(ctx, c.logger).Warn("shipping fee lookup failed, using fallback",
			zap.Int("district_id", dest.DistrictID),
			zap.String("ward_code", dest.WardCode),
			zap.Error(err),
		)
		return c.Fallback()
	}
	if q.Fee < 0 {
		observability.FromContext(ctx, c.logger).Warn("carrier quoted a negative fee, using fallback", zap.Float64("fee", q.Fee))
		return c.Fallback()
	}
	q.Fee = decimal.NewFromFloat(q.Fee).Round(2).InexactFloat64()
	return q
}
