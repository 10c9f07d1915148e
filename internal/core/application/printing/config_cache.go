package printing

import (
	"context"
	"sync"
	"time"

	"cafe/internal/core/domain/model/kernel"
	printmodel "cafe/internal/core/domain/model/printing"

	"golang.org/x/sync/singleflight"
)

// DefaultProfileLoadTimeout bounds one profile load.
const DefaultProfileLoadTimeout = 5 * time.Second

// ProfileSource looks up merchant printing configuration.
type ProfileSource interface {
	Get(ctx context.Context, merchantID kernel.UUID) (printmodel.MerchantProfile, error)
}

// ConfigCache is a read-through cache of merchant profiles. Concurrent misses
// for one merchant share a single load. Entries live until Invalidate.
type ConfigCache struct {
	source      ProfileSource
	group       singleflight.Group
	loadTimeout time.Duration

	mu      sync.RWMutex
	entries map[kernel.UUID]printmodel.MerchantProfile
	// generation is bumped by Invalidate so a load started before it
	// does not repopulate the entry afterwards.
	generation map[kernel.UUID]uint64
}

// ConfigCacheOption customises a ConfigCache.
type ConfigCacheOption func(*ConfigCache)

// WithLoadTimeout bounds each profile load. Non-positive values are ignored.
func WithLoadTimeout(d time.Duration) ConfigCacheOption {
	return func(c *ConfigCache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

func NewConfigCache(source ProfileSource, opts ...ConfigCacheOption) *ConfigCache {
	c := &ConfigCache{
		source:      source,
		loadTimeout: DefaultProfileLoadTimeout,
		entries:     make(map[kernel.UUID]printmodel.MerchantProfile),
		generation:  make(map[kernel.UUID]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached profile, loading it on a miss. Load errors are not
// cached. A shared load is detached from the caller that started it, so one
// cancelled caller does not fail the others; it runs under the load timeout.
func (c *ConfigCache) Get(ctx context.Context, merchantID kernel.UUID) (printmodel.MerchantProfile, error) {
	c.mu.RLock()
	profile, ok := c.entries[merchantID]
	gen := c.generation[merchantID]
	c.mu.RUnlock()
	if ok {
		return profile, nil
	}

	ch := c.group.DoChan(merchantID.String(), func() (any, error) {
		c.mu.RLock()
		cached, hit := c.entries[merchantID]
		c.mu.RUnlock()
		if hit {
			return cached, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		loaded, err := c.source.Get(loadCtx, merchantID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation[merchantID] == gen {
			c.entries[merchantID] = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return printmodel.MerchantProfile{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return printmodel.MerchantProfile{}, res.Err
		}
		return res.Val.(printmodel.MerchantProfile), nil
	}
}

// Invalidate drops the merchant's entry; the next Get reloads it.
func (c *ConfigCache) Invalidate(merchantID kernel.UUID) {
	c.mu.Lock()
	delete(c.entries, merchantID)
	c.generation[merchantID]++
	c.mu.Unlock()
	c.group.Forget(merchantID.String())
}

// Len is the number of cached merchants.
func (c *ConfigCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
