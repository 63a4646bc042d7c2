package apiclient

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// responseCache keeps authenticated GET bodies keyed by (endpoint, access token).
// Tokens are hashed before they become part of a key. A nil cache is a no-op.
type responseCache struct {
	lru *expirable.LRU[string, []byte]
}

func newResponseCache(size int, ttl time.Duration) *responseCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &responseCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func cacheKey(path, token string) string {
	return tokenKey(token) + " " + path
}

func (c *responseCache) get(path, token string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(cacheKey(path, token))
}

func (c *responseCache) add(path, token string, data []byte) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(path, token), data)
}

func (c *responseCache) purgeToken(token string) {
	if c == nil {
		return
	}
	prefix := tokenKey(token) + " "
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}
