package checkout

import (
	"context"

	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
)

// CartObservation is the outcome of reacting to a cart change.
type CartObservation struct {
	State             domcheckout.State `json:"state"`
	CartEmpty         bool              `json:"cart_empty"`
	CouponInvalidated bool              `json:"coupon_invalidated"`
	InvalidatedCode   string            `json:"invalidated_code,omitempty"`
	Notice            string            `json:"notice,omitempty"`
}

// ApplyCoupon validates code against the current cart. On failure the
// previously applied coupon, if any, stays in place.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (domcheckout.State, error) {
	st, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domcheckout.State{}, err
	}
	if err := editable(st); err != nil {
		return st, err
	}
	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		return st, err
	}
	if cart.IsEmpty() {
		return st, domcart.ErrCartEmpty
	}

	applied, err := s.coupons.Apply(ctx, code, cart, st.UserID)
	if err != nil {
		return st, err
	}

	ticket := st.Ticket()
	var stored bool
	next, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		stored = false
		if !cur.Accepts(ticket) || !cur.Phase.Editable() {
			return cur, nil
		}
		cur.Coupon = applied
		stored = true
		return cur, nil
	})
	if err != nil {
		return next, err
	}
	if !stored {
		s.log(ctx).Debug("coupon result dropped for superseded checkout", zap.String("session_id", sessionID), zap.String("code", applied.Code))
		return next, nil
	}
	s.publish(ctx, next, domcheckout.Event{Type: domcheckout.EventCouponApplied, CouponCode: applied.Code})
	return next, nil
}

func (s *Service) RemoveCoupon(ctx context.Context, sessionID string) (domcheckout.State, error) {
	return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		cur.Coupon = nil
		return cur, nil
	})
}

// ObserveCart is called whenever the cart may have changed. It reads the cart
// once; a coupon priced against a different subtotal is dropped and an empty
// cart cancels every effect still in flight. A routable destination without a
// quote is quoted again.
func (s *Service) ObserveCart(ctx context.Context, sessionID string) (CartObservation, error) {
	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		return CartObservation{}, err
	}

	var (
		obs CartObservation
		req *domcheckout.QuoteRequest
	)
	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		obs = CartObservation{CartEmpty: cart.IsEmpty()}
		req = nil
		if cart.IsEmpty() {
			cur.Epoch++
			if cur.Coupon != nil {
				obs.CouponInvalidated = true
				obs.InvalidatedCode = cur.Coupon.Code
			}
			cur.Coupon = nil
			return cur, nil
		}
		prev := cur.Coupon
		kept, invalidated := s.coupons.Reconcile(cur.Coupon, cart.Subtotal)
		if invalidated {
			obs.CouponInvalidated = true
			obs.InvalidatedCode = prev.Code
		}
		cur.Coupon = kept
		// quote dropped by an earlier empty cart
		if cur.Phase.Editable() && cur.Quote == (domshipping.Quote{}) && cur.Destination().Routable() {
			cur, req = cur.Requote()
		}
		return cur, nil
	})
	if err != nil {
		return CartObservation{}, err
	}
	if req != nil {
		if st, err = s.quote(ctx, sessionID, *req); err != nil {
			return CartObservation{}, err
		}
	}

	obs.State = st
	if obs.CouponInvalidated {
		obs.Notice = reapplyNotice(obs.InvalidatedCode)
		s.log(ctx).Info("coupon invalidated by cart change",
			zap.String("session_id", sessionID),
			zap.String("code", obs.InvalidatedCode),
			zap.Float64("subtotal", cart.Subtotal),
		)
		s.publish(ctx, st, domcheckout.Event{
			Type:       domcheckout.EventCouponInvalidated,
			CouponCode: obs.InvalidatedCode,
			Reason:     "cart subtotal changed",
		})
	}
	return obs, nil
}

func reapplyNotice(code string) string {
	return "Your cart changed, so coupon " + code + " was removed. Please apply it again."
}
