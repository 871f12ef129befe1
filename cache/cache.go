// Package cache defines the dedup cache for moderation results.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/utils"
)

// Cache stores results keyed by request content.
type Cache interface {
	// Get returns the cached result and true on a hit.
	Get(ctx context.Context, key string) (moderation.Result, bool, error)

	// Set stores a result.
	Set(ctx context.Context, key string, result moderation.Result) error
}

// KeyPrefix namespaces cache keys.
const KeyPrefix = "moderation:result:"

// Key derives the cache key for a request. Requests with the same
// trimmed text, content type and topic share a key.
func Key(req moderation.Request) string {
	return KeyPrefix + utils.FingerprintFields(strings.TrimSpace(req.Text), string(req.ContentType), req.Topic)
}

// Memory is an in-process Cache with a fixed TTL.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	result  moderation.Result
	expires time.Time
}

// NewMemory creates a memory cache. A zero ttl keeps entries forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached result.
func (m *Memory) Get(ctx context.Context, key string) (moderation.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return moderation.Result{}, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return moderation.Result{}, false, nil
	}
	return e.result.Clone(), true, nil
}

// Set stores a copy of result.
func (m *Memory) Set(ctx context.Context, key string, result moderation.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{result: result.Clone()}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}
