// Package memory holds in-process adapters for single-user runs and tests.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// Cache implements ports.CacheService in process memory.
type Cache struct {
	c *gocache.Cache
}

// NewCache creates a Cache that purges expired entries every cleanup interval.
func NewCache(cleanup time.Duration) *Cache {
	return &Cache{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.([]byte), nil
}

// Set stores a copy of value. A non-positive TTL never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := gocache.NoExpiration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	c.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Delete(key)
	return nil
}

// Preferences implements ports.PreferenceStore in process memory.
type Preferences struct {
	c *gocache.Cache
}

// NewPreferences creates an empty preference store.
func NewPreferences() *Preferences {
	return &Preferences{c: gocache.New(gocache.NoExpiration, 0)}
}

func (p *Preferences) Get(_ context.Context, key string) (string, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return "", domain.ErrNotFound
	}
	return v.(string), nil
}

func (p *Preferences) Set(_ context.Context, key, value string) error {
	p.c.Set(key, value, gocache.NoExpiration)
	return nil
}
