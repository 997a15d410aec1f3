package resolver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/formulacore/internal/queryclient"
	"github.com/leapstack-labs/formulacore/internal/schema"
	"github.com/leapstack-labs/formulacore/pkg/scalar"
)

// Key is the unit of caching, in-flight dedup, and cycle detection.
type Key = queryclient.ResolutionKey

// schemaCache memoises BoardSchema by board id for ttl. A singleflight
// group ensures two concurrent resolves against an un-cached (or
// expired) board issue a single schema fetch; the second subscribes to
// the first's result.
type schemaCache struct {
	ttl       time.Duration
	mu        sync.RWMutex
	boards    map[string]*schema.BoardSchema
	fetchedAt map[string]time.Time
	group     singleflight.Group
}

func newSchemaCache(ttl time.Duration) *schemaCache {
	return &schemaCache{
		ttl:       ttl,
		boards:    make(map[string]*schema.BoardSchema),
		fetchedAt: make(map[string]time.Time),
	}
}

func (c *schemaCache) get(ctx context.Context, client queryclient.Client, boardID string) (*schema.BoardSchema, error) {
	c.mu.RLock()
	b, ok := c.boards[boardID]
	fresh := ok && (c.ttl <= 0 || time.Since(c.fetchedAt[boardID]) < c.ttl)
	c.mu.RUnlock()
	if fresh {
		return b, nil
	}

	v, err, _ := c.group.Do(boardID, func() (interface{}, error) {
		b, err := client.Schema(ctx, boardID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.boards[boardID] = b
		c.fetchedAt[boardID] = time.Now()
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.BoardSchema), nil
}

// valueCache is a write-once map keyed by Key: once a ResolutionKey is
// resolved within a session, its scalar never changes.
type valueCache struct {
	mu     sync.RWMutex
	values map[Key]scalar.Scalar
}

func newValueCache() *valueCache {
	return &valueCache{values: make(map[Key]scalar.Scalar)}
}

func (c *valueCache) get(key Key) (scalar.Scalar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *valueCache) set(key Key, v scalar.Scalar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.values[key]; exists {
		return
	}
	c.values[key] = v
}
