package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the key/value storage used for the persisted token and for
// short-lived response caching. A zero ttl means the store's default.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a request URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "ghitriage:v1:" + hex.EncodeToString(hash[:])
}
