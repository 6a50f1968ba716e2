package checkout

import (
	"context"

	"go.uber.org/zap"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
)

func (s *Service) UpdateContact(ctx context.Context, sessionID string, kind domcheckout.FormKind, c domcheckout.Contact) (domcheckout.State, error) {
	return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		form := cur.Form(kind)
		form.Contact = c
		return cur.WithForm(kind, form), nil
	})
}

// SelectProvince resets the form below province level and loads the
// province's districts. A load that lost the race to a newer selection is dropped.
func (s *Service) SelectProvince(ctx context.Context, sessionID string, kind domcheckout.FormKind, provinceID int) (domcheckout.State, error) {
	p, err := s.resolver.Province(ctx, provinceID)
	if err != nil {
		return domcheckout.State{}, err
	}

	var token uint64
	var ticket domcheckout.Ticket
	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		form := cur.Form(kind)
		form.Location, token = form.Location.SelectProvince(p)
		next, _ := cur.WithForm(kind, form).SyncQuote()
		ticket = next.Ticket()
		return next, nil
	})
	if err != nil {
		return st, err
	}

	districts, loadErr := s.resolver.ListDistricts(ctx, p.ID)
	return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if !cur.Accepts(ticket) {
			return cur, nil
		}
		form := cur.Form(kind)
		loc, applied := form.Location.ApplyDistricts(token, districts, loadErr)
		if !applied {
			s.log(ctx).Debug("stale district list dropped", zap.String("session_id", sessionID), zap.Int("province_id", p.ID))
			return cur, nil
		}
		form.Location = loc
		return cur.WithForm(kind, form), nil
	})
}

func (s *Service) SelectDistrict(ctx context.Context, sessionID string, kind domcheckout.FormKind, districtID int) (domcheckout.State, error) {
	var token uint64
	var ticket domcheckout.Ticket
	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		form := cur.Form(kind)
		loc, t, err := form.Location.SelectDistrict(districtID)
		if err != nil {
			return cur, err
		}
		form.Location, token = loc, t
		next, _ := cur.WithForm(kind, form).SyncQuote()
		ticket = next.Ticket()
		return next, nil
	})
	if err != nil {
		return st, err
	}

	wards, loadErr := s.resolver.ListWards(ctx, districtID)
	return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if !cur.Accepts(ticket) {
			return cur, nil
		}
		form := cur.Form(kind)
		loc, applied := form.Location.ApplyWards(token, wards, loadErr)
		if !applied {
			s.log(ctx).Debug("stale ward list dropped", zap.String("session_id", sessionID), zap.Int("district_id", districtID))
			return cur, nil
		}
		form.Location = loc
		return cur.WithForm(kind, form), nil
	})
}

// SelectWard completes the form's location. When that changes the active
// destination, shipping is quoted again.
func (s *Service) SelectWard(ctx context.Context, sessionID string, kind domcheckout.FormKind, wardCode string) (domcheckout.State, error) {
	var req *domcheckout.QuoteRequest
	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		form := cur.Form(kind)
		loc, err := form.Location.SelectWard(wardCode)
		if err != nil {
			return cur, err
		}
		form.Location = loc
		var next domcheckout.State
		next, req = cur.WithForm(kind, form).SyncQuote()
		return next, nil
	})
	if err != nil || req == nil {
		return st, err
	}
	return s.quote(ctx, sessionID, *req)
}

func (s *Service) SetShipToDifferent(ctx context.Context, sessionID string, on bool) (domcheckout.State, error) {
	var req *domcheckout.QuoteRequest
	st, err := s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		if err := editable(cur); err != nil {
			return cur, err
		}
		cur.ShipToDifferent = on
		var next domcheckout.State
		next, req = cur.SyncQuote()
		return next, nil
	})
	if err != nil || req == nil {
		return st, err
	}
	return s.quote(ctx, sessionID, *req)
}

// quote reads the cart once, asks the calculator and stores the result if the
// request is still the latest one for this checkout.
func (s *Service) quote(ctx context.Context, sessionID string, req domcheckout.QuoteRequest) (domcheckout.State, error) {
	cart, err := s.cart.Snapshot(ctx, sessionID)
	if err != nil {
		return domcheckout.State{}, err
	}
	q := s.shipping.Calculate(ctx, req.Destination, cart.Items, cart.Subtotal)

	return s.update(ctx, sessionID, func(cur domcheckout.State) (domcheckout.State, error) {
		next, applied := cur.ApplyQuote(req, q)
		if !applied {
			s.log(ctx).Debug("stale shipping quote dropped", zap.String("session_id", sessionID), zap.Uint64("token", req.Token))
		}
		return next, nil
	})
}
