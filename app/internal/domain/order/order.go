package order

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusCanceled  Status = "CANCELED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusCanceled:
		return true
	default:
		return false
	}
}

// PaymentMethod is an opaque label handed to the order service as-is.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "COD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

var paymentMethodRegexp = regexp.MustCompile(`^[A-Z0-9_]{2,32}$`)

func (p PaymentMethod) IsValid() bool {
	return paymentMethodRegexp.MatchString(string(p))
}

// ParsePaymentMethod normalises a label; empty input defaults to cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PaymentCOD, nil
	}
	p := PaymentMethod(s)
	if !p.IsValid() {
		return "", ErrInvalidPayment
	}
	return p, nil
}

// Address is a delivery/billing address flattened for submission.
type Address struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	DistrictID int    `json:"districtId"`
	WardCode   string `json:"wardCode"`
}

// Submission is the finalized order payload.
type Submission struct {
	SessionID              string
	UserID                 string
	Billing                Address
	Shipping               Address
	ShipToDifferentAddress bool
	PaymentMethod          PaymentMethod
	Items                  []domcart.Item
	Subtotal               float64
	ShippingFee            float64
	TaxAmount              float64
	DiscountAmount         float64
	CouponCode             string
	IdempotencyKey         string
}

// Fingerprint identifies the payload apart from its idempotency key. Two
// submissions with the same fingerprint would place the same order.
func (s Submission) Fingerprint() string {
	s.IdempotencyKey = ""
	raw, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Placement is what the order service returns for an accepted order.
type Placement struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      Status    `json:"status"`
	Totals      Totals    `json:"totals"`
	CreatedAt   time.Time `json:"created_at"`
}
