package coupon

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	domcart "example.com/storefront-checkout/app/internal/domain/cart"
	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
	"example.com/storefront-checkout/app/internal/infra/observability"
)

type Engine struct {
	catalog *Catalog
	applier domcoupon.Applier
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(catalog *Catalog, applier domcoupon.Applier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog: catalog,
		applier: applier,
		logger:  logger,
		now:     time.Now,
	}
}

// Precheck runs the local eligibility checks against the catalog. Codes the
// catalog does not know pass; the remote service decides for them.
func (e *Engine) Precheck(code string, subtotal float64) error {
	code = domcoupon.NormalizeCode(code)
	if code == "" {
		return domcoupon.ErrMissingCode
	}
	if e.catalog == nil {
		return nil
	}
	cp, ok := e.catalog.Lookup(code)
	if !ok {
		return nil
	}
	if required, short := cp.RequiresMoreThan(subtotal); short {
		return domcoupon.MinOrderNotMet(required)
	}
	if !cp.ActiveAt(e.now()) {
		return domcoupon.ErrExpiredOrInvalid
	}
	return nil
}

// Apply validates code against the cart and, on success, returns the applied
// coupon pinned to the cart subtotal at this moment.
func (e *Engine) Apply(ctx context.Context, code string, cart domcart.Snapshot, requesterID string) (*domcoupon.Applied, error) {
	code = domcoupon.NormalizeCode(code)
	if err := e.Precheck(code, cart.Subtotal); err != nil {
		return nil, err
	}

	res, err := e.applier.Apply(ctx, domcoupon.ApplyRequest{
		Code:      code,
		UserID:    requesterID,
		SessionID: cart.SessionID,
	})
	if err != nil {
		var cerr *domcoupon.Error
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		observability.FromContext(ctx, e.logger).Warn("coupon apply failed", zap.String("code", code), zap.Error(err))
		return nil, domcoupon.NewError(domcoupon.ReasonUnknown, "", err)
	}

	applied := &domcoupon.Applied{
		Code:                  code,
		DiscountType:          res.DiscountType,
		DiscountValue:         res.DiscountValue,
		DiscountAmount:        res.DiscountAmount,
		SubtotalAtApplication: cart.Subtotal,
		AppliedAt:             e.now().UTC(),
	}
	if res.Code != "" {
		applied.Code = domcoupon.NormalizeCode(res.Code)
	}
	if applied.DiscountAmount < 0 {
		applied.DiscountAmount = 0
	}
	return applied, nil
}

// Reconcile drops applied when the subtotal drifted beyond tolerance.
// The bool reports whether the coupon was invalidated.
func (e *Engine) Reconcile(applied *domcoupon.Applied, subtotal float64) (*domcoupon.Applied, bool) {
	if applied == nil {
		return nil, false
	}
	if applied.StaleFor(subtotal) {
		return nil, true
	}
	return applied, false
}
