package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/afferentology/platform/backend/internal/domain/providers"
)

// MemoryAdapter is an in-process CacheProvider used when Redis is disabled.
type MemoryAdapter struct {
	store *gocache.Cache
}

// NewMemoryAdapter creates an in-process cache that purges expired entries every cleanupInterval.
func NewMemoryAdapter(defaultTTL, cleanupInterval time.Duration) *MemoryAdapter {
	return &MemoryAdapter{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := a.store.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	b, _ := v.([]byte)
	return b, nil
}

func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := gocache.DefaultExpiration
	if expirationSeconds > 0 {
		ttl = time.Duration(expirationSeconds) * time.Second
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	a.store.Set(key, cp, ttl)
	return nil
}

func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.store.Delete(key)
	return nil
}

func (a *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	_, ok := a.store.Get(key)
	return ok, nil
}

func (a *MemoryAdapter) DeletePrefix(_ context.Context, prefix string) (int, error) {
	deleted := 0
	for key := range a.store.Items() {
		if strings.HasPrefix(key, prefix) {
			a.store.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}
