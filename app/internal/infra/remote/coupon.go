package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
)

const minOrderPrefix = "MIN_ORDER_REQUIREMENT:"

type CouponClient struct {
	c *jsonClient
}

func NewCouponClient(baseURL string, httpClient *http.Client) *CouponClient {
	return &CouponClient{c: newJSONClient("coupon", baseURL, httpClient)}
}

type applyCouponRequest struct {
	Code      string `json:"code"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type applyCouponResponse struct {
	Code               string  `json:"code"`
	DiscountType       string  `json:"discountType"`
	DiscountValue      float64 `json:"discountValue"`
	DiscountAmount     float64 `json:"discountAmount"`
	Subtotal           float64 `json:"subtotal"`
	TotalAfterDiscount float64 `json:"totalAfterDiscount"`
}

type couponErrorBody struct {
	Reason  string `json:"reason"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Apply asks the coupon service to validate and price a code. Rejections come
// back as *coupon.Error; transport failures are returned as is.
func (c *CouponClient) Apply(ctx context.Context, req domcoupon.ApplyRequest) (domcoupon.ApplyResult, error) {
	var resp applyCouponResponse
	err := c.c.call(ctx, "apply", http.MethodPost, []string{"coupons", "apply"}, applyCouponRequest{
		Code:      req.Code,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	}, &resp, nil)
	if err != nil {
		if se, ok := asStatusError(err); ok {
			return domcoupon.ApplyResult{}, couponError(se)
		}
		return domcoupon.ApplyResult{}, err
	}
	return domcoupon.ApplyResult{
		Code:               resp.Code,
		DiscountType:       domcoupon.DiscountType(strings.ToUpper(resp.DiscountType)),
		DiscountValue:      resp.DiscountValue,
		DiscountAmount:     resp.DiscountAmount,
		Subtotal:           resp.Subtotal,
		TotalAfterDiscount: resp.TotalAfterDiscount,
	}, nil
}

func couponError(se *StatusError) *domcoupon.Error {
	var body couponErrorBody
	_ = json.Unmarshal(se.Body, &body)
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		msg = strings.TrimSpace(body.Error)
	}

	if amount, ok := parseMinOrder(msg); ok {
		return domcoupon.MinOrderNotMet(amount)
	}

	reason := domcoupon.Reason(strings.ToUpper(strings.TrimSpace(body.Reason)))
	if reason == "" {
		reason = domcoupon.Reason(strings.ToUpper(strings.TrimSpace(body.Code)))
	}
	switch reason {
	case domcoupon.ReasonMinOrderNotMet, domcoupon.ReasonExpiredOrInvalid, domcoupon.ReasonUsageLimitReached, domcoupon.ReasonMissingCode:
		return domcoupon.NewError(reason, msg, se)
	}
	if se.Status == http.StatusNotFound {
		return domcoupon.NewError(domcoupon.ReasonExpiredOrInvalid, "", se)
	}
	return domcoupon.NewError(domcoupon.ReasonUnknown, "", se)
}

// parseMinOrder reads "MIN_ORDER_REQUIREMENT:<amount>".
func parseMinOrder(msg string) (float64, bool) {
	idx := strings.Index(msg, minOrderPrefix)
	if idx < 0 {
		return 0, false
	}
	raw := strings.TrimSpace(msg[idx+len(minOrderPrefix):])
	if end := strings.IndexFunc(raw, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); end >= 0 {
		raw = raw[:end]
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
