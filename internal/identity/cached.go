package identity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
	"github.com/jorge-redcloud/demand-planning/pkg/redis"
)

// CachedStore fronts an IdentityStore with the Redis cache.
// Redis disabled → every call goes straight to the store.
type CachedStore struct {
	store contracts.IdentityStore
	cache *redis.Cache
	log   zerolog.Logger
}

// NewCachedStore wraps store with cache
func NewCachedStore(store contracts.IdentityStore, cache *redis.Cache, log zerolog.Logger) *CachedStore {
	return &CachedStore{
		store: store,
		cache: cache,
		log:   log.With().Str("component", "identity.cache").Logger(),
	}
}

// LoadIdentities reads from cache, falling back to the store
func (c *CachedStore) LoadIdentities(ctx context.Context) ([]contracts.CustomerIdentity, error) {
	var identities []contracts.CustomerIdentity
	err := c.cache.GetOrSet(ctx, redis.IdentityMapKey(), &identities, redis.TTLMaster, func() (interface{}, error) {
		return c.store.LoadIdentities(ctx)
	})
	if err != nil {
		return nil, err
	}
	return identities, nil
}

// AppendIdentities writes through and invalidates the cached map
func (c *CachedStore) AppendIdentities(ctx context.Context, identities []contracts.CustomerIdentity) error {
	if err := c.store.AppendIdentities(ctx, identities); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, redis.IdentityMapKey()); err != nil {
		c.log.Warn().Err(err).Msg("identity cache invalidation failed")
	}
	return nil
}
