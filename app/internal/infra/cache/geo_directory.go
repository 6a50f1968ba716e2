package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"example.com/storefront-checkout/app/internal/domain/geo"
)

const keyPrefix = "checkout:geo:"

// kv is the slice of the redis client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// GeoDirectory puts a shared redis tier in front of the geo service. Reference
// data never expires; redis problems fall through to the primary directory.
type GeoDirectory struct {
	primary geo.Directory
	rdb     kv
	logger  *zap.Logger
}

func NewGeoDirectory(primary geo.Directory, rdb *redis.Client, logger *zap.Logger) *GeoDirectory {
	return newGeoDirectory(primary, rdb, logger)
}

func newGeoDirectory(primary geo.Directory, rdb kv, logger *zap.Logger) *GeoDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeoDirectory{primary: primary, rdb: rdb, logger: logger}
}

func (d *GeoDirectory) Provinces(ctx context.Context) ([]geo.Province, error) {
	return readThrough(ctx, d, keyPrefix+"provinces", func() ([]geo.Province, error) {
		return d.primary.Provinces(ctx)
	})
}

func (d *GeoDirectory) Districts(ctx context.Context, provinceID int) ([]geo.District, error) {
	return readThrough(ctx, d, keyPrefix+"districts:"+strconv.Itoa(provinceID), func() ([]geo.District, error) {
		return d.primary.Districts(ctx, provinceID)
	})
}

func (d *GeoDirectory) Wards(ctx context.Context, districtID int) ([]geo.Ward, error) {
	return readThrough(ctx, d, keyPrefix+"wards:"+strconv.Itoa(districtID), func() ([]geo.Ward, error) {
		return d.primary.Wards(ctx, districtID)
	})
}

func readThrough[T any](ctx context.Context, d *GeoDirectory, key string, load func() ([]T, error)) ([]T, error) {
	cached, err := d.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var list []T
		if err := json.Unmarshal(cached, &list); err == nil {
			return list, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn("geo cache read failed", zap.String("key", key), zap.Error(err))
	}

	list, err := load()
	if err != nil {
		return nil, err
	}
	// empty answers are not cached, the upstream may just be warming up
	if len(list) == 0 {
		return list, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return list, nil
	}
	if err := d.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		d.logger.Warn("geo cache write failed", zap.String("key", key), zap.Error(err))
	}
	return list, nil
}
