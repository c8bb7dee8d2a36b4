package secrets

import (
	"errors"
	"sync"
	"time"

	"github.com/kevin07696/chit-service/internal/domain/ports"
)

// ErrSecretNotFound is returned when a backend has no secret at the path
var ErrSecretNotFound = errors.New("secret not found")

// secretCache is a TTL cache shared by the remote adapters
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(enabled bool, ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]cacheEntry),
		enabled: enabled && ttl > 0,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *secretCache) get(path string) *ports.Secret {
	if !c.enabled {
		return nil
	}
	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(path string, secret *ports.Secret) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.entries[path] = cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *secretCache) invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}
