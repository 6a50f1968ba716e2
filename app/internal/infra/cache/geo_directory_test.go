package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"example.com/storefront-checkout/app/internal/domain/geo"
)

type fakeKV struct {
	data   map[string]string
	getErr error
	sets   int
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

type countingDirectory struct {
	calls int
	err   error
}

func (c *countingDirectory) Provinces(ctx context.Context) ([]geo.Province, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []geo.Province{{ID: 201, Name: "Hà Nội"}}, nil
}

func (c *countingDirectory) Districts(ctx context.Context, provinceID int) ([]geo.District, error) {
	c.calls++
	return []geo.District{{ID: 1484, ProvinceID: provinceID, Name: "Ba Đình"}}, nil
}

func (c *countingDirectory) Wards(ctx context.Context, districtID int) ([]geo.Ward, error) {
	c.calls++
	return []geo.Ward{}, nil
}

func TestGeoDirectory_ReadThrough(t *testing.T) {
	primary := &countingDirectory{}
	rdb := &fakeKV{data: map[string]string{}}
	d := newGeoDirectory(primary, rdb, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		districts, err := d.Districts(ctx, 201)
		require.NoError(t, err)
		require.Equal(t, []geo.District{{ID: 1484, ProvinceID: 201, Name: "Ba Đình"}}, districts)
	}
	require.Equal(t, 1, primary.calls)
	require.Contains(t, rdb.data, "checkout:geo:districts:201")
}

func TestGeoDirectory_EmptyAndErrorsNotCached(t *testing.T) {
	primary := &countingDirectory{}
	rdb := &fakeKV{data: map[string]string{}}
	d := newGeoDirectory(primary, rdb, nil)
	ctx := context.Background()

	_, err := d.Wards(ctx, 1484)
	require.NoError(t, err)
	require.Zero(t, rdb.sets)

	primary.err = errors.New("down")
	_, err = d.Provinces(ctx)
	require.Error(t, err)
	require.Zero(t, rdb.sets)
}

func TestGeoDirectory_RedisDownFallsThrough(t *testing.T) {
	primary := &countingDirectory{}
	rdb := &fakeKV{data: map[string]string{}, getErr: errors.New("connection refused")}
	d := newGeoDirectory(primary, rdb, nil)

	provinces, err := d.Provinces(context.Background())
	require.NoError(t, err)
	require.Len(t, provinces, 1)
	require.Equal(t, 1, primary.calls)
}
