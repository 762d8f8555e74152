package rnconfig

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds how long a loaded config is reused.
const DefaultTTL = 10 * time.Minute

// Cache owns the project config for one root. Loading is expensive (it
// spawns node), so concurrent callers share a single load.
type Cache struct {
	root   string
	loader Loader
	lru    *expirable.LRU[string, *Config]
	group  singleflight.Group
}

// NewCache creates a cache for root. ttl <= 0 uses DefaultTTL.
func NewCache(root string, loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		root:   root,
		loader: loader,
		lru:    expirable.NewLRU[string, *Config](1, nil, ttl),
	}
}

func (c *Cache) Root() string { return c.root }

// Get returns the cached config, loading it on first use or after expiry.
func (c *Cache) Get(ctx context.Context) (*Config, error) {
	if cfg, ok := c.lru.Get(c.root); ok {
		return cfg, nil
	}
	return c.load(ctx)
}

// Refresh drops the cached value and loads it again.
func (c *Cache) Refresh(ctx context.Context) (*Config, error) {
	c.Invalidate()
	return c.load(ctx)
}

// Invalidate drops the cached value. The next Get reloads.
func (c *Cache) Invalidate() {
	if c.lru.Remove(c.root) {
		slog.Debug("Project config invalidated", "root", c.root)
	}
}

func (c *Cache) load(ctx context.Context) (*Config, error) {
	v, err, _ := c.group.Do(c.root, func() (any, error) {
		slog.Info("Loading project config", "root", c.root)
		cfg, err := c.loader.Load(ctx, c.root)
		if err != nil {
			return nil, err
		}
		c.lru.Add(c.root, cfg)
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}
