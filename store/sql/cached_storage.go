package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-puthelp/core"
)

const storageCacheKeyPrefix = "go-puthelp::storage::v1"

type cachedEntry struct {
	Value string
	Found bool
}

// CachedStorage reads through a go-repository-cache service and invalidates
// on every write. Misses are cached too, so an anonymous client does not hit
// the database on each request.
type CachedStorage struct {
	base  core.KeyValueStorage
	cache repositorycache.CacheService
}

func NewCachedStorage(base core.KeyValueStorage, cacheService repositorycache.CacheService) (*CachedStorage, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base storage is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: storage cache service is required")
	}
	return &CachedStorage{base: base, cache: cacheService}, nil
}

// StorageCacheKey returns go-puthelp::storage::v1::<key> with the key
// URL-path escaped.
func StorageCacheKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: storage key is required")
	}
	return storageCacheKeyPrefix + "::" + url.PathEscape(key), nil
}

func (s *CachedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", false, fmt.Errorf("sqlstore: cached storage is not configured")
	}
	key = strings.TrimSpace(key)
	cacheKey, err := StorageCacheKey(key)
	if err != nil {
		return "", false, nil
	}
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedEntry, error) {
		value, found, fetchErr := s.base.Get(ctx, key)
		if fetchErr != nil {
			return cachedEntry{}, fetchErr
		}
		return cachedEntry{Value: value, Found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	return entry.Value, entry.Found, nil
}

func (s *CachedStorage) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached storage is not configured")
	}
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}
	return s.invalidate(ctx, key)
}

func (s *CachedStorage) Delete(ctx context.Context, keys ...string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached storage is not configured")
	}
	if err := s.base.Delete(ctx, keys...); err != nil {
		return err
	}
	return s.invalidate(ctx, keys...)
}

func (s *CachedStorage) invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		cacheKey, err := StorageCacheKey(key)
		if err != nil {
			continue
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			return err
		}
	}
	return nil
}
