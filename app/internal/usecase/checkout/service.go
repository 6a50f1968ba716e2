package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/domain/geo"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
	"example.com/storefront-checkout/app/internal/infra/observability"
)

type AddressResolver interface {
	Province(ctx context.Context, id int) (geo.Province, error)
	ListDistricts(ctx context.Context, provinceID int) ([]geo.District, error)
	ListWards(ctx context.Context, districtID int) ([]geo.Ward, error)
}

type CouponEngine interface {
	Apply(ctx context.Context, code string, cart domcart.Snapshot, requesterID string) (*domcoupon.Applied, error)
	Reconcile(applied *domcoupon.Applied, subtotal float64) (*domcoupon.Applied, bool)
}

type ShippingCalculator interface {
	Calculate(ctx context.Context, dest domshipping.Destination, items []domcart.Item, subtotal float64) domshipping.Quote
}

// TaxSource supplies the tax amount for a cart. Tax rules live elsewhere.
type TaxSource interface {
	TaxAmount(ctx context.Context, cart domcart.Snapshot) (float64, error)
}

type Dependencies struct {
	Store     domcheckout.Store
	Resolver  AddressResolver
	Coupons   CouponEngine
	Shipping  ShippingCalculator
	Cart      domcart.Provider
	Orders    domorder.Submitter
	Tax       TaxSource
	Publisher domcheckout.Publisher
	Logger    *zap.Logger
}

type Service struct {
	store     domcheckout.Store
	resolver  AddressResolver
	coupons   CouponEngine
	shipping  ShippingCalculator
	cart      domcart.Provider
	orders    domorder.Submitter
	tax       TaxSource
	publisher domcheckout.Publisher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(deps Dependencies) *Service {
	s := &Service{
		store:     deps.Store,
		resolver:  deps.Resolver,
		coupons:   deps.Coupons,
		shipping:  deps.Shipping,
		cart:      deps.Cart,
		orders:    deps.Orders,
		tax:       deps.Tax,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if s.tax == nil {
		s.tax = FlatRateTax{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Summary is what the checkout page renders: the state plus totals derived
// from the cart as it is right now.
type Summary struct {
	State           domcheckout.State `json:"state"`
	Items           []domcart.Item    `json:"items"`
	Totals          domorder.Totals   `json:"totals"`
	ProductDiscount float64           `json:"product_discount"`
	CouponStale     bool              `json:"coupon_stale,omitempty"`
}

// Begin opens checkout for a cart session, or resumes the open one.
func (s *Service) Begin(ctx context.Context, sessionID, userID string) (domcheckout.State, error) {
	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		return domcheckout.State{}, err
	}
	if cart.IsEmpty() {
		return domcheckout.State{}, domcart.ErrCartEmpty
	}

	existing, err := s.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		if userID != "" && existing.UserID != userID {
			return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
				cur.UserID = userID
				return cur, nil
			})
		}
		return existing, nil
	case !errors.Is(err, domcheckout.ErrSessionNotFound):
		return domcheckout.State{}, err
	}

	st := domcheckout.New(sessionID, userID, s.newID(), s.now().UTC())
	if err := s.store.Put(ctx, st); err != nil {
		return domcheckout.State{}, err
	}
	s.log(ctx).Info("checkout started", zap.String("session_id", sessionID), zap.String("checkout_id", st.CheckoutID))
	s.publish(ctx, st, domcheckout.Event{Type: domcheckout.EventStarted})
	return st, nil
}

func (s *Service) State(ctx context.Context, sessionID string) (domcheckout.State, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	st, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	tax, err := s.tax.TaxAmount(ctx, cart)
	if err != nil {
		return Summary{}, err
	}

	discount := domcoupon.DiscountFor(st.Coupon, cart.Subtotal)
	return Summary{
		State:           st,
		Items:           cart.Items,
		Totals:          domorder.Compute(cart.Subtotal, st.Quote.Fee, tax, discount),
		ProductDiscount: domorder.ProductDiscount(cart.OriginalSubtotal, cart.Subtotal),
		CouponStale:     st.Coupon != nil && st.Coupon.StaleFor(cart.Subtotal),
	}, nil
}

// Leave abandons checkout. Effects still in flight for it are ignored when they land.
func (s *Service) Leave(ctx context.Context, sessionID string) error {
	st, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, domcheckout.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if st.Phase == domcheckout.PhaseSubmitting {
		return domcheckout.ErrSubmissionInProgress
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, st, domcheckout.Event{Type: domcheckout.EventAbandoned})
	return nil
}

// update stamps UpdatedAt on every committed change.
func (s *Service) update(ctx context.Context, sessionID string, fn domcheckout.Mutator) (domcheckout.State, error) {
	return s.store.Update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := fn(cur)
		if err != nil {
			return cur, err
		}
		next.UpdatedAt = s.now().UTC()
		return next, nil
	})
}

func (s *Service) publish(ctx context.Context, st domcheckout.State, e domcheckout.Event) {
	if s.publisher == nil {
		return
	}
	e.ID = s.newID()
	e.SessionID = st.SessionID
	e.CheckoutID = st.CheckoutID
	e.UserID = st.UserID
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log(ctx).Warn("publish checkout event failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

// log prefers the request logger so entries carry request and trace ids.
func (s *Service) log(ctx context.Context) *zap.Logger {
	return observability.FromContext(ctx, s.logger)
}

func editable(st domcheckout.State) error {
	if !st.Phase.Editable() {
		return domcheckout.ErrNotEditable
	}
	return nil
}
