package checkout

import (
	"time"

	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/domain/geo"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
)

type FormKind string

const (
	FormBilling  FormKind = "billing"
	FormShipping FormKind = "shipping"
)

func ParseFormKind(s string) (FormKind, error) {
	switch FormKind(s) {
	case FormBilling, FormShipping:
		return FormKind(s), nil
	default:
		return "", ErrUnknownForm
	}
}

type Contact struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	AddressLine1  string `json:"address_line1"`
}

type AddressForm struct {
	Contact
	Location geo.Cascade `json:"location"`
}

// Ticket identifies the checkout a background effect was started for.
type Ticket struct {
	CheckoutID string
	Epoch      uint64
}

// State is one checkout session. Values are treated as immutable snapshots:
// every change produces a new State that replaces the old one whole.
type State struct {
	SessionID       string                  `json:"session_id"`
	CheckoutID      string                  `json:"checkout_id"`
	Epoch           uint64                  `json:"epoch"`
	UserID          string                  `json:"user_id,omitempty"`
	Billing         AddressForm             `json:"billing"`
	Shipping        AddressForm             `json:"shipping"`
	ShipToDifferent bool                    `json:"ship_to_different"`
	Coupon          *domcoupon.Applied      `json:"coupon,omitempty"`
	Quote           domshipping.Quote       `json:"quote"`
	QuoteToken      uint64                  `json:"quote_token"`
	QuotedFor       domshipping.Destination `json:"quoted_for"`
	TaxAmount       float64                 `json:"tax_amount"`
	Phase           Phase                   `json:"phase"`
	LastError       string                  `json:"last_error,omitempty"`
	Version         int64                   `json:"version"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`

	// Idempotency key of the last submitted payload and the payload it covers.
	SubmissionKey         string `json:"submission_key,omitempty"`
	SubmissionFingerprint string `json:"submission_fingerprint,omitempty"`
}

func New(sessionID, userID, checkoutID string, now time.Time) State {
	return State{
		SessionID:  sessionID,
		CheckoutID: checkoutID,
		UserID:     userID,
		Billing:    AddressForm{Location: geo.Cascade{Districts: []geo.District{}, Wards: []geo.Ward{}}},
		Shipping:   AddressForm{Location: geo.Cascade{Districts: []geo.District{}, Wards: []geo.Ward{}}},
		Phase:      PhaseIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s State) Form(kind FormKind) AddressForm {
	if kind == FormShipping {
		return s.Shipping
	}
	return s.Billing
}

func (s State) WithForm(kind FormKind, f AddressForm) State {
	if kind == FormShipping {
		s.Shipping = f
	} else {
		s.Billing = f
	}
	return s
}

// ActiveForm is the form whose ward decides the shipping destination.
func (s State) ActiveForm() FormKind {
	if s.ShipToDifferent {
		return FormShipping
	}
	return FormBilling
}

func (s State) Destination() domshipping.Destination {
	sel := s.Form(s.ActiveForm()).Location.Selection
	if !sel.HasWard() {
		return domshipping.Destination{}
	}
	return domshipping.Destination{DistrictID: sel.DistrictID, WardCode: sel.WardCode}
}

func (s State) Ticket() Ticket {
	return Ticket{CheckoutID: s.CheckoutID, Epoch: s.Epoch}
}

// Accepts reports whether an effect started under t may still touch s.
func (s State) Accepts(t Ticket) bool {
	return s.CheckoutID == t.CheckoutID && s.Epoch == t.Epoch
}

// QuoteRequest is emitted when the active destination's ward changed.
type QuoteRequest struct {
	Token       uint64
	Destination domshipping.Destination
	Ticket      Ticket
}

// SyncQuote compares the active destination with the one the current quote
// belongs to. A new ward yields a QuoteRequest; losing the ward drops the quote.
// Province or district changes that leave the ward unresolved never request a quote.
func (s State) SyncQuote() (State, *QuoteRequest) {
	dest := s.Destination()
	if dest == s.QuotedFor {
		return s, nil
	}
	s.QuoteToken++
	s.QuotedFor = dest
	s.Quote = domshipping.Quote{}
	if !dest.Routable() {
		return s, nil
	}
	return s, &QuoteRequest{Token: s.QuoteToken, Destination: dest, Ticket: s.Ticket()}
}

// ApplyQuote stores q if it answers the latest quote request of this checkout.
func (s State) ApplyQuote(req QuoteRequest, q domshipping.Quote) (State, bool) {
	if !s.Accepts(req.Ticket) || s.QuoteToken != req.Token {
		return s, false
	}
	s.Quote = q
	return s, true
}

// Requote forces a fresh quote for the current destination, e.g. after the
// previous one was dropped by an epoch change.
func (s State) Requote() (State, *QuoteRequest) {
	s.QuotedFor = domshipping.Destination{}
	return s.SyncQuote()
}

// WithSubmissionKey keeps the pending idempotency key while the payload is
// unchanged and mints a new one when anything in it differs.
func (s State) WithSubmissionKey(fingerprint string, newKey func() string) State {
	if s.SubmissionKey == "" || fingerprint == "" || s.SubmissionFingerprint != fingerprint {
		s.SubmissionKey = newKey()
	}
	s.SubmissionFingerprint = fingerprint
	return s
}
