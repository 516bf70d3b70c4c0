package extension

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/providers/contracts"
	"github.com/zeebo/xxh3"
)

// completionCache remembers completion results for identical composed prompts.
type completionCache struct {
	cache *ttlcache.Cache[uint64, *models.OperationResult]
}

func newCompletionCache(ttl time.Duration) *completionCache {
	c := ttlcache.New[uint64, *models.OperationResult](
		ttlcache.WithTTL[uint64, *models.OperationResult](ttl),
		ttlcache.WithDisableTouchOnHit[uint64, *models.OperationResult](),
	)
	go c.Start()
	return &completionCache{cache: c}
}

func completionKey(request *contracts.Request) uint64 {
	return xxh3.HashString(request.SystemPrompt + "\x00" + request.UserPrompt)
}

func (c *completionCache) Get(request *contracts.Request) *models.OperationResult {
	item := c.cache.Get(completionKey(request))
	if item == nil {
		return nil
	}
	return item.Value()
}

func (c *completionCache) Set(request *contracts.Request, result *models.OperationResult) {
	c.cache.Set(completionKey(request), result, ttlcache.DefaultTTL)
}

func (c *completionCache) Len() int {
	return c.cache.Len()
}

// Close stops the expiration loop and drops every entry.
func (c *completionCache) Close() {
	c.cache.Stop()
	c.cache.DeleteAll()
}
