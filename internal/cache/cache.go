package cache

import "context"

// Cache is a best-effort byte cache for hot read paths. Misses and backend
// failures are indistinguishable: callers fall through to the store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Delete(ctx context.Context, key string)
}
