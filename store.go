package drawchat

import (
	"encoding/base64"
	"hash/fnv"
	"sync"
)

// TokenCache stores derived room tokens. Derivation is deterministic, so a
// cached token is always the one Derive would compute again.
type TokenCache interface {
	Get(key string) (RoomToken, bool, error)
	Put(key string, token RoomToken) error
}

// tokenCacheKey covers every input of the derivation: salt, prefix, seed
// and validator patterns.
func tokenCacheKey(cfg ValidationConfig, seed, prefix string) string {
	h := fnv.New64a()
	h.Write([]byte(cfg.GlobalSalt + "|" + prefix + "|" + seed))
	for _, v := range cfg.Validators {
		h.Write([]byte("|" + v.Pattern))
	}
	return "rt/" + base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// MemoryTokenCache keeps tokens for the life of the process.
type MemoryTokenCache struct {
	tokens map[string]RoomToken
	mux    sync.RWMutex
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]RoomToken)}
}

func (c *MemoryTokenCache) Get(key string) (RoomToken, bool, error) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	token, ok := c.tokens[key]
	return token, ok, nil
}

func (c *MemoryTokenCache) Put(key string, token RoomToken) error {
	c.mux.Lock()
	c.tokens[key] = token
	c.mux.Unlock()
	return nil
}
