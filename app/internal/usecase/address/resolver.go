package address

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"example.com/storefront-checkout/app/internal/domain/geo"
	"example.com/storefront-checkout/app/internal/infra/observability"
)

// fetchTimeout bounds a shared lookup, which runs detached from the caller
// that started it.
const fetchTimeout = 10 * time.Second

// Resolver is a process-wide read-through cache over the geo reference
// service. Entries never expire. Failed lookups and empty answers are not
// cached.
type Resolver struct {
	dir    geo.Directory
	logger *zap.Logger

	group     singleflight.Group
	provinces atomic.Pointer[[]geo.Province]
	districts sync.Map // provinceID -> []geo.District
	wards     sync.Map // districtID -> []geo.Ward
}

func NewResolver(dir geo.Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

func (r *Resolver) ListProvinces(ctx context.Context) ([]geo.Province, error) {
	if cached := r.provinces.Load(); cached != nil {
		return *cached, nil
	}
	v, err, _ := r.group.Do("provinces", func() (any, error) {
		if cached := r.provinces.Load(); cached != nil {
			return *cached, nil
		}
		fctx, cancel := detached(ctx)
		defer cancel()
		list, err := r.dir.Provinces(fctx)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			r.provinces.Store(&list)
		}
		return list, nil
	})
	if err != nil {
		observability.FromContext(ctx, r.logger).Warn("province lookup failed", zap.Error(err))
		return []geo.Province{}, fmt.Errorf("%w: %w", geo.ErrLookupFailed, err)
	}
	return v.([]geo.Province), nil
}

func (r *Resolver) ListDistricts(ctx context.Context, provinceID int) ([]geo.District, error) {
	if cached, ok := r.districts.Load(provinceID); ok {
		return cached.([]geo.District), nil
	}
	v, err, _ := r.group.Do("districts:"+strconv.Itoa(provinceID), func() (any, error) {
		if cached, ok := r.districts.Load(provinceID); ok {
			return cached, nil
		}
		fctx, cancel := detached(ctx)
		defer cancel()
		list, err := r.dir.Districts(fctx, provinceID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			r.districts.Store(provinceID, list)
		}
		return list, nil
	})
	if err != nil {
		observability.FromContext(ctx, r.logger).Warn("district lookup failed", zap.Int("province_id", provinceID), zap.Error(err))
		return []geo.District{}, fmt.Errorf("%w: %w", geo.ErrLookupFailed, err)
	}
	return v.([]geo.District), nil
}

func (r *Resolver) ListWards(ctx context.Context, districtID int) ([]geo.Ward, error) {
	if cached, ok := r.wards.Load(districtID); ok {
		return cached.([]geo.Ward), nil
	}
	v, err, _ := r.group.Do("wards:"+strconv.Itoa(districtID), func() (any, error) {
		if cached, ok := r.wards.Load(districtID); ok {
			return cached, nil
		}
		fctx, cancel := detached(ctx)
		defer cancel()
		list, err := r.dir.Wards(fctx, districtID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			r.wards.Store(districtID, list)
		}
		return list, nil
	})
	if err != nil {
		observability.FromContext(ctx, r.logger).Warn("ward lookup failed", zap.Int("district_id", districtID), zap.Error(err))
		return []geo.Ward{}, fmt.Errorf("%w: %w", geo.ErrLookupFailed, err)
	}
	return v.([]geo.Ward), nil
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
}

// Province resolves id against the cached province list.
func (r *Resolver) Province(ctx context.Context, id int) (geo.Province, error) {
	list, err := r.ListProvinces(ctx)
	if err != nil {
		return geo.Province{}, err
	}
	p, ok := geo.FindProvince(list, id)
	if !ok {
		return geo.Province{}, geo.ErrUnknownProvince
	}
	return p, nil
}
