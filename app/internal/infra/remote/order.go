package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
)

type OrderClient struct {
	c *jsonClient
}

func NewOrderClient(baseURL string, httpClient *http.Client) *OrderClient {
	return &OrderClient{c: newJSONClient("order", baseURL, httpClient)}
}

type orderRequest struct {
	SessionID              string           `json:"sessionId"`
	UserID                 string           `json:"userId,omitempty"`
	Billing                domorder.Address `json:"billing"`
	Shipping               domorder.Address `json:"shipping"`
	ShipToDifferentAddress bool             `json:"shipToDifferentAddress"`
	PaymentMethod          string           `json:"paymentMethod"`
	Items                  []orderItem      `json:"items,omitempty"`
	ShippingFee            float64          `json:"shippingFee"`
	TaxAmount              float64          `json:"taxAmount"`
	DiscountAmount         float64          `json:"discountAmount"`
	CouponCode             string           `json:"couponCode,omitempty"`
}

type orderItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

func toOrderItems(items []domcart.Item) []orderItem {
	out := make([]orderItem, 0, len(items))
	for _, it := range items {
		out = append(out, orderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

type orderResponse struct {
	OrderID     flexibleID `json:"orderId"`
	OrderNumber string     `json:"orderNumber"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	Totals      struct {
		Subtotal       float64 `json:"subtotal"`
		ShippingFee    float64 `json:"shippingFee"`
		TaxAmount      float64 `json:"taxAmount"`
		DiscountAmount float64 `json:"discountAmount"`
		Total          float64 `json:"total"`
	} `json:"totals"`
}

type orderErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit places the order. 4xx answers are rejections the shopper can act on;
// transport failures and 5xx answers are reported as unreachable.
func (o *OrderClient) Submit(ctx context.Context, s domorder.Submission) (*domorder.Placement, error) {
	headers := http.Header{}
	if s.IdempotencyKey != "" {
		headers.Set(idempotencyHeader, s.IdempotencyKey)
	}

	var resp orderResponse
	err := o.c.call(ctx, "submit", http.MethodPost, []string{"orders"}, orderRequest{
		SessionID:              s.SessionID,
		UserID:                 s.UserID,
		Billing:                s.Billing,
		Shipping:               s.Shipping,
		ShipToDifferentAddress: s.ShipToDifferentAddress,
		PaymentMethod:          string(s.PaymentMethod),
		Items:                  toOrderItems(s.Items),
		ShippingFee:            s.ShippingFee,
		TaxAmount:              s.TaxAmount,
		DiscountAmount:         s.DiscountAmount,
		CouponCode:             s.CouponCode,
	}, &resp, headers)
	if err != nil {
		return nil, submissionError(err)
	}

	placement := &domorder.Placement{
		OrderID:     string(resp.OrderID),
		OrderNumber: resp.OrderNumber,
		Status:      domorder.Status(strings.ToUpper(resp.Status)),
		CreatedAt:   resp.CreatedAt,
		Totals: domorder.Totals{
			Subtotal:       resp.Totals.Subtotal,
			ShippingFee:    resp.Totals.ShippingFee,
			TaxAmount:      resp.Totals.TaxAmount,
			DiscountAmount: resp.Totals.DiscountAmount,
			Total:          resp.Totals.Total,
		},
	}
	if !placement.Status.IsValid() {
		placement.Status = domorder.StatusPending
	}
	if placement.Totals == (domorder.Totals{}) {
		placement.Totals = domorder.Compute(s.Subtotal, s.ShippingFee, s.TaxAmount, s.DiscountAmount)
	}
	return placement, nil
}

func submissionError(err error) *domorder.SubmissionError {
	se, ok := asStatusError(err)
	if !ok || se.Status >= http.StatusInternalServerError {
		return &domorder.SubmissionError{
			Kind:    domorder.ErrOrderUnreachable,
			Message: "could not reach the order service, please try again",
			Err:     err,
		}
	}
	var body orderErrorBody
	_ = json.Unmarshal(se.Body, &body)
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		msg = strings.TrimSpace(body.Error)
	}
	if msg == "" {
		msg = "the order was not accepted"
	}
	return &domorder.SubmissionError{Kind: domorder.ErrOrderRejected, Message: msg, Err: err}
}
