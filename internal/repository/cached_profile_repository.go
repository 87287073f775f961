package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/godilite/driver-compliance/internal/repository/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultProfileCacheTTL = 30 * time.Second
	defaultCacheOpTimeout  = 500 * time.Millisecond
	sharedFetchTimeout     = 10 * time.Second
	profileCacheKeyPrefix  = "profile:driver:"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// ProfileSource is the repository being cached.
type ProfileSource interface {
	GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error)
}

// CachedProfileRepository is a read-through cache over raw driver records.
// Only successful fetches are stored; derived values and embed tokens are
// never cached here.
type CachedProfileRepository struct {
	next   ProfileSource
	cache  Cacher
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
}

func NewCachedProfileRepository(next ProfileSource, cache Cacher, ttl time.Duration, logger *zap.Logger) *CachedProfileRepository {
	if next == nil {
		panic("nil ProfileSource provided to NewCachedProfileRepository")
	}
	if cache == nil {
		panic("nil Cacher provided to NewCachedProfileRepository")
	}
	if ttl <= 0 {
		ttl = defaultProfileCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProfileRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("profile-cache"),
	}
}

func profileCacheKey(driverID int64) string {
	return profileCacheKeyPrefix + strconv.FormatInt(driverID, 10)
}

func (c *CachedProfileRepository) GetDriverProfile(ctx context.Context, driverID int64) (models.DriverProfile, error) {
	key := profileCacheKey(driverID)

	getCtx, cancel := context.WithTimeout(ctx, defaultCacheOpTimeout)
	var cached models.DriverProfile
	err := c.cache.Get(getCtx, key, &cached)
	cancel()

	switch {
	case err == nil:
		c.logger.Debug("cache hit", zap.String("key", key))
		cached.Normalize()
		return cached, nil
	case errors.Is(err, redis.Nil):
		c.logger.Debug("cache miss", zap.String("key", key))
	default:
		c.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	// Waiters stop on their own ctx; the shared fetch is detached from
	// whichever caller started it.
	ch := c.sf.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		p, err := c.next.GetDriverProfile(fetchCtx, driverID)
		if err != nil {
			return nil, err
		}

		setCtx, cancelSet := context.WithTimeout(context.WithoutCancel(ctx), defaultCacheOpTimeout)
		defer cancelSet()
		if err := c.cache.Set(setCtx, key, p, c.ttl); err != nil {
			c.logger.Warn("failed to populate cache", zap.String("key", key), zap.Error(err))
		}
		return p, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.DriverProfile{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return models.DriverProfile{}, res.Err
	}
	v, shared := res.Val, res.Shared

	profile, ok := v.(models.DriverProfile)
	if !ok {
		c.logger.Error("singleflight type mismatch", zap.String("key", key))
		return models.DriverProfile{}, fmt.Errorf("%w: type mismatch for key %q", models.ErrSourceUnavailable, key)
	}
	if shared {
		c.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return profile, nil
}
