package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	domorder "example.com/storefront-checkout/app/internal/domain/order"
	domshipping "example.com/storefront-checkout/app/internal/domain/shipping"
)

// Submit validates the checkout and places the order.
//
// IDLE -> VALIDATING -> SUBMITTING -> SUCCESS on acceptance. A validation
// problem returns to IDLE before any network call; a rejected or failed
// submission passes through FAILED back to IDLE with every field kept. A retry
// of an unchanged payload reuses the previous idempotency key.
func (s *Service) Submit(ctx context.Context, sessionID, paymentMethod string) (*domorder.Placement, error) {
	method, err := domorder.ParsePaymentMethod(paymentMethod)
	if err != nil {
		return nil, err
	}

	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := cur.Transition(domcheckout.PhaseValidating)
		if err != nil {
			return cur, err
		}
		next.LastError = ""
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if err := domcheckout.Validate(st); err != nil {
		s.abortValidation(ctx, sessionID, nil)
		return nil, err
	}

	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		s.abortValidation(ctx, sessionID, nil)
		return nil, err
	}
	if cart.IsEmpty() {
		s.abortValidation(ctx, sessionID, nil)
		return nil, domcart.ErrCartEmpty
	}

	applied, invalidated := s.coupons.Reconcile(st.Coupon, cart.Subtotal)
	if invalidated {
		s.abortValidation(ctx, sessionID, func(cur domcheckout.State) domcheckout.State {
			cur.Coupon = nil
			return cur
		})
		s.publish(ctx, st, domcheckout.Event{
			Type:       domcheckout.EventCouponInvalidated,
			CouponCode: st.Coupon.Code,
			Reason:     "cart subtotal changed",
		})
		return nil, domcheckout.ErrCouponInvalidated
	}

	quote := st.Quote
	if dest := st.Destination(); quote == (domshipping.Quote{}) && dest.Routable() {
		// The last quote was dropped or never landed; price this destination now.
		quote = s.shipping.Calculate(ctx, dest, cart.Items, cart.Subtotal)
	}

	tax, err := s.tax.TaxAmount(ctx, cart)
	if err != nil {
		s.abortValidation(ctx, sessionID, nil)
		return nil, err
	}

	var sub domorder.Submission
	st, err = s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := cur.Transition(domcheckout.PhaseSubmitting)
		if err != nil {
			return cur, err
		}
		next.Quote = quote
		next.TaxAmount = tax
		sub = buildSubmission(next, cart, method, applied)
		next = next.WithSubmissionKey(sub.Fingerprint(), s.newID)
		sub.IdempotencyKey = next.SubmissionKey
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	placement, err := s.orders.Submit(ctx, sub)
	if err != nil {
		s.fail(ctx, st, err)
		return nil, err
	}

	s.succeed(ctx, st, placement)
	return placement, nil
}

func buildSubmission(st domcheckout.State, cart domcart.Snapshot, method domorder.PaymentMethod, applied *domcoupon.Applied) domorder.Submission {
	billing := toAddress(st.Billing)
	shipping := billing
	if st.ShipToDifferent {
		shipping = toAddress(st.Shipping)
	}

	sub := domorder.Submission{
		SessionID:              st.SessionID,
		UserID:                 st.UserID,
		Billing:                billing,
		Shipping:               shipping,
		ShipToDifferentAddress: st.ShipToDifferent,
		PaymentMethod:          method,
		Items:                  cart.Items,
		Subtotal:               cart.Subtotal,
		ShippingFee:            st.Quote.Fee,
		TaxAmount:              st.TaxAmount,
		DiscountAmount:         domcoupon.DiscountFor(applied, cart.Subtotal),
	}
	if applied != nil {
		sub.CouponCode = applied.Code
	}
	return sub
}

func toAddress(f domcheckout.AddressForm) domorder.Address {
	sel := f.Location.Selection
	return domorder.Address{
		FullName:   f.RecipientName,
		Phone:      f.Phone,
		Email:      f.Email,
		Address:    domcheckout.FormatAddress(f),
		DistrictID: sel.DistrictID,
		WardCode:   sel.WardCode,
	}
}

// abortValidation returns a VALIDATING checkout to IDLE, optionally adjusting it.
func (s *Service) abortValidation(ctx context.Context, sessionID string, adjust func(domcheckout.State) domcheckout.State) {
	_, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := cur.Transition(domcheckout.PhaseIdle)
		if err != nil {
			return cur, err
		}
		if adjust != nil {
			next = adjust(next)
		}
		return next, nil
	})
	if err != nil {
		s.log(ctx).Error("reset checkout after validation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// fail records the error and hands the checkout back to the user untouched.
func (s *Service) fail(ctx context.Context, st domcheckout.State, cause error) {
	s.log(ctx).Warn("order submission failed", zap.String("session_id", st.SessionID), zap.Error(cause))

	_, err := s.update(ctx, st.SessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := cur.Transition(domcheckout.PhaseFailed)
		if err != nil {
			return cur, err
		}
		next, err = next.Transition(domcheckout.PhaseIdle)
		if err != nil {
			return cur, err
		}
		next.LastError = cause.Error()
		return next, nil
	})
	if err != nil && !errors.Is(err, domcheckout.ErrSessionNotFound) {
		s.log(ctx).Error("reset checkout after submission failure", zap.String("session_id", st.SessionID), zap.Error(err))
	}
	s.publish(ctx, st, domcheckout.Event{Type: domcheckout.EventOrderFailed, Reason: cause.Error()})
}

// succeed clears the cart and the coupon and closes the checkout. The order
// already exists at this point, so cleanup problems are only logged.
func (s *Service) succeed(ctx context.Context, st domcheckout.State, placement *domorder.Placement) {
	s.log(ctx).Info("order placed",
		zap.String("session_id", st.SessionID),
		zap.String("order_id", placement.OrderID),
		zap.String("order_number", placement.OrderNumber),
	)

	if _, err := s.update(ctx, st.SessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, err := cur.Transition(domcheckout.PhaseSuccess)
		if err != nil {
			return cur, err
		}
		next.Coupon = nil
		next.SubmissionKey = ""
		next.SubmissionFingerprint = ""
		return next, nil
	}); err != nil && !errors.Is(err, domcheckout.ErrSessionNotFound) {
		s.log(ctx).Error("mark checkout successful", zap.String("session_id", st.SessionID), zap.Error(err))
	}
	if err := s.cart.Clear(ctx, st.SessionID); err != nil {
		s.log(ctx).Error("clear cart after order", zap.String("session_id", st.SessionID), zap.Error(err))
	}
	if err := s.store.Delete(ctx, st.SessionID); err != nil && !errors.Is(err, domcheckout.ErrSessionNotFound) {
		s.log(ctx).Error("close checkout after order", zap.String("session_id", st.SessionID), zap.Error(err))
	}

	s.publish(ctx, st, domcheckout.Event{
		Type:    domcheckout.EventOrderPlaced,
		OrderID: placement.OrderID,
		Total:   placement.Totals.Total,
	})
}
