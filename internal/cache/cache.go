package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores generated completions by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key hashes the given parts into a namespaced cache key.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return "verbatim:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by the settings: a layered memory+disk cache
// when dir is set, memory only otherwise.
func New(dir string, memoryTTL, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}
