package coupon

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	domcoupon "example.com/storefront-checkout/app/internal/domain/coupon"
)

// Catalog is a pre-fetched, read-only copy of the active coupons used for
// local pre-checks. It is swapped whole on every refresh.
type Catalog struct {
	repo   domcoupon.Repository
	logger *zap.Logger

	byCode atomic.Pointer[map[string]domcoupon.Coupon]
}

func NewCatalog(repo domcoupon.Repository, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{repo: repo, logger: logger}
}

// Refresh reloads the catalog. On error the previous copy is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	list, err := c.repo.ListActive(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]domcoupon.Coupon, len(list))
	for _, cp := range list {
		next[domcoupon.NormalizeCode(cp.Code)] = cp
	}
	c.byCode.Store(&next)
	c.logger.Debug("coupon catalog refreshed", zap.Int("coupons", len(next)))
	return nil
}

// Lookup returns the locally known coupon for an already normalized code.
func (c *Catalog) Lookup(code string) (domcoupon.Coupon, bool) {
	m := c.byCode.Load()
	if m == nil {
		return domcoupon.Coupon{}, false
	}
	cp, ok := (*m)[code]
	return cp, ok
}

func (c *Catalog) Len() int {
	m := c.byCode.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}

// Run refreshes the catalog every interval until ctx is done.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("coupon catalog refresh failed", zap.Error(err))
			}
		}
	}
}
