package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for short-lived politeness data (robots.txt bodies).
// Verification results are never cached.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from an arbitrary string
func Key(namespace, raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "claimcheck:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}
