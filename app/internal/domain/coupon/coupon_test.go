package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "SALE10", NormalizeCode("  sale10 "))
	require.Equal(t, "", NormalizeCode("   "))
}

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal float64
		want     float64
	}{
		{"percentage", Coupon{DiscountType: DiscountPercentage, DiscountValue: 10}, 500000, 50000},
		{"percentage capped", Coupon{DiscountType: DiscountPercentage, DiscountValue: 10, MaxDiscountAmount: ptr(20000.0)}, 500000, 20000},
		{"fixed", Coupon{DiscountType: DiscountFixed, DiscountValue: 30000}, 100000, 30000},
		{"fixed above subtotal", Coupon{DiscountType: DiscountFixed, DiscountValue: 300000}, 100000, 100000},
		{"empty cart", Coupon{DiscountType: DiscountFixed, DiscountValue: 300000}, 0, 0},
		{"unknown type", Coupon{DiscountType: "BOGO", DiscountValue: 1}, 100000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ComputeDiscount(tt.coupon, tt.subtotal))
		})
	}
}

func TestCoupon_ActiveAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Coupon{IsActive: true, StartDate: ptr(now.Add(-time.Hour)), EndDate: ptr(now.Add(time.Hour))}
	require.True(t, c.ActiveAt(now))
	require.False(t, c.ActiveAt(now.Add(2*time.Hour)))
	require.False(t, c.ActiveAt(now.Add(-2*time.Hour)))

	c.IsActive = false
	require.False(t, c.ActiveAt(now))
}

func TestCoupon_RequiresMoreThan(t *testing.T) {
	c := Coupon{MinOrderAmount: ptr(200000.0)}
	required, notMet := c.RequiresMoreThan(199999)
	require.True(t, notMet)
	require.Equal(t, 200000.0, required)

	_, notMet = c.RequiresMoreThan(200000)
	require.False(t, notMet)

	_, notMet = Coupon{}.RequiresMoreThan(0)
	require.False(t, notMet)
}

func TestApplied_StaleFor(t *testing.T) {
	a := Applied{SubtotalAtApplication: 100000, DiscountAmount: 10000}
	require.False(t, a.StaleFor(100000))
	require.False(t, a.StaleFor(100000.01))
	require.True(t, a.StaleFor(100000.02))
	require.True(t, a.StaleFor(150000))

	require.Equal(t, 10000.0, DiscountFor(&a, 100000))
	require.Zero(t, DiscountFor(&a, 150000))
	require.Zero(t, DiscountFor(nil, 100000))
}

func TestError_IsMatchesReason(t *testing.T) {
	err := MinOrderNotMet(200000)
	require.ErrorIs(t, err, ErrMinOrderNotMet)
	require.NotErrorIs(t, err, ErrExpiredOrInvalid)
	require.Contains(t, err.Error(), "200000")

	cause := errors.New("dial tcp: timeout")
	wrapped := NewError(ReasonUnknown, "", cause)
	require.ErrorIs(t, wrapped, ErrUnknown)
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, ErrUnknown.Message, wrapped.Error())
}
