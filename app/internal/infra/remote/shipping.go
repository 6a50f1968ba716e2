package remote

import (
	"context"
	"fmt"
	"net/http"

	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
)

type ShippingClient struct {
	c *jsonClient
}

func NewShippingClient(baseURL string, httpClient *http.Client) *ShippingClient {
	return &ShippingClient{c: newJSONClient("shipping", baseURL, httpClient)}
}

type feeRequest struct {
	DistrictID     int     `json:"districtId"`
	WardCode       string  `json:"wardCode"`
	Weight         int64   `json:"weight"`
	InsuranceValue int64   `json:"insuranceValue"`
	ItemCount      int64   `json:"itemCount"`
	Subtotal       float64 `json:"subtotal"`
}

type feeResponse struct {
	ShippingFee     *float64 `json:"shippingFee"`
	FallbackApplied bool     `json:"fallbackApplied"`
}

func (s *ShippingClient) Fee(ctx context.Context, p domshipping.Parcel) (domshipping.Quote, error) {
	var resp feeResponse
	err := s.c.call(ctx, "fee", http.MethodPost, []string{"shipping", "fee"}, feeRequest{
		DistrictID:     p.DistrictID,
		WardCode:       p.WardCode,
		Weight:         p.WeightGrams,
		InsuranceValue: p.InsuranceValue,
		ItemCount:      p.ItemCount,
		Subtotal:       p.Subtotal,
	}, &resp, nil)
	if err != nil {
		if _, ok := asStatusError(err); ok {
			return domshipping.Quote{}, fmt.Errorf("%w: %w", domshipping.ErrCarrierUnavailable, err)
		}
		return domshipping.Quote{}, err
	}
	if resp.ShippingFee == nil {
		return domshipping.Quote{}, domshipping.ErrMalformedQuote
	}
	return domshipping.Quote{Fee: *resp.ShippingFee, FallbackApplied: resp.FallbackApplied}, nil
}
