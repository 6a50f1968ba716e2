package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
)

type mockRateService struct {
	parcels []domshipping.Parcel
	quote   domshipping.Quote
	err     error
	block   bool
}

func (m *mockRateService) Fee(ctx context.Context, p domshipping.Parcel) (domshipping.Quote, error) {
	m.parcels = append(m.parcels, p)
	if m.block {
		<-ctx.Done()
		return domshipping.Quote{}, ctx.Err()
	}
	if m.err != nil {
		return domshipping.Quote{}, m.err
	}
	return m.quote, nil
}

var hanoiWard = domshipping.Destination{DistrictID: 1484, WardCode: "1A0101"}

func TestCalculate_BuildsParcel(t *testing.T) {
	rates := &mockRateService{quote: domshipping.Quote{Fee: 22000}}
	calc := NewCalculator(rates, Options{}, nil)

	items := []domcart.Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}
	q := calc.Calculate(context.Background(), hanoiWard, items, 500000)

	require.Equal(t, domshipping.Quote{Fee: 22000}, q)
	require.Len(t, rates.parcels, 1)
	p := rates.parcels[0]
	require.Equal(t, hanoiWard, p.Destination)
	require.Equal(t, int64(1500), p.WeightGrams)
	require.Equal(t, int64(50000), p.InsuranceValue)
	require.Equal(t, int64(3), p.ItemCount)
	require.Equal(t, 500000.0, p.Subtotal)
}

func TestCalculate_MinimumWeightAndCustomPerItem(t *testing.T) {
	rates := &mockRateService{quote: domshipping.Quote{Fee: 1}}

	NewCalculator(rates, Options{}, nil).Calculate(context.Background(), hanoiWard, nil, 0)
	require.Equal(t, int64(200), rates.parcels[0].WeightGrams)

	NewCalculator(rates, Options{PerItemWeightGrams: 300}, nil).
		Calculate(context.Background(), hanoiWard, []domcart.Item{{Quantity: 4}}, 0)
	require.Equal(t, int64(1200), rates.parcels[1].WeightGrams)
}

func TestCalculate_TimeoutFallsBack(t *testing.T) {
	rates := &mockRateService{block: true}
	calc := NewCalculator(rates, Options{Timeout: 20 * time.Millisecond}, nil)

	q := calc.Calculate(context.Background(), hanoiWard, []domcart.Item{{Quantity: 1}}, 100000)
	require.Equal(t, domshipping.Quote{Fee: 30000, FallbackApplied: true}, q)
}

func TestCalculate_ErrorsFallBack(t *testing.T) {
	cases := map[string]*mockRateService{
		"unavailable":  {err: domshipping.ErrCarrierUnavailable},
		"malformed":    {err: domshipping.ErrMalformedQuote},
		"other":        {err: errors.New("boom")},
		"negative fee": {quote: domshipping.Quote{Fee: -5}},
	}
	for name, rates := range cases {
		t.Run(name, func(t *testing.T) {
			q := NewCalculator(rates, Options{}, nil).Calculate(context.Background(), hanoiWard, nil, 0)
			require.Equal(t, domshipping.Quote{Fee: 30000, FallbackApplied: true}, q)
		})
	}
}

func TestCalculate_ConfiguredFallbackFee(t *testing.T) {
	rates := &mockRateService{err: domshipping.ErrCarrierUnavailable}
	q := NewCalculator(rates, Options{FallbackFee: 45000}, nil).Calculate(context.Background(), hanoiWard, nil, 0)
	require.Equal(t, 45000.0, q.Fee)
	require.True(t, q.FallbackApplied)
}
