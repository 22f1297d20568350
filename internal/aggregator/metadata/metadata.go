// Package metadata caches the enabled pod-label key set and the
// cost-category pattern list the pipeline fetches once per run, modeled on
// the teacher's PricingCache (internal/store/pricing_cache.go) but with a
// single in-memory layer — there is no second-tier store for this pipeline
// the way the teacher's pricing data had a SQLite fallback.
package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/labels"
	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// Source is the read side of the relational store's metadata tables.
type Source interface {
	FetchEnabledKeys(ctx context.Context) ([]string, error)
	FetchCostCategoryPatterns(ctx context.Context) ([]model.CostCategoryPattern, error)
}

// Cache holds the last-fetched enabled-key set and cost-category patterns,
// refreshing from Source once the TTL elapses.
type Cache struct {
	src Source
	ttl time.Duration

	mu             sync.RWMutex
	keys           labels.EnabledKeySet
	keysAt         time.Time
	patterns       []model.CostCategoryPattern
	patternsAt     time.Time
}

// New builds a Cache with the given TTL (0 disables caching: every call
// refetches).
func New(src Source, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl}
}

// EnabledKeys returns the cached key set, refreshing it first if stale.
func (c *Cache) EnabledKeys(ctx context.Context) (labels.EnabledKeySet, error) {
	c.mu.RLock()
	fresh := c.keys != nil && time.Since(c.keysAt) < c.ttl
	keys := c.keys
	c.mu.RUnlock()
	if fresh {
		return keys, nil
	}

	raw, err := c.src.FetchEnabledKeys(ctx)
	if err != nil {
		return nil, err
	}
	set := labels.NewEnabledKeySet(raw)

	c.mu.Lock()
	c.keys = set
	c.keysAt = time.Now()
	c.mu.Unlock()
	return set, nil
}

// CostCategoryPatterns returns the cached pattern list, refreshing it first
// if stale.
func (c *Cache) CostCategoryPatterns(ctx context.Context) ([]model.CostCategoryPattern, error) {
	c.mu.RLock()
	fresh := !c.patternsAt.IsZero() && time.Since(c.patternsAt) < c.ttl
	patterns := c.patterns
	c.mu.RUnlock()
	if fresh {
		return patterns, nil
	}

	fetched, err := c.src.FetchCostCategoryPatterns(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.patterns = fetched
	c.patternsAt = time.Now()
	c.mu.Unlock()
	return fetched, nil
}
