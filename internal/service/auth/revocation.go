package auth

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// minRevocationTTL keeps a claim alive briefly even for a token on the edge of expiry.
const minRevocationTTL = time.Second

// Revocations remembers refresh token ids that must no longer be accepted.
type Revocations interface {
	// Claim revokes tokenID until the given time. It reports false when the id
	// was already revoked, so exactly one caller wins a token.
	Claim(ctx context.Context, tokenID string, until time.Time) (bool, error)
}

type memoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations keeps revoked ids in process memory.
func NewMemoryRevocations() Revocations {
	return &memoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

func (m *memoryRevocations) Claim(_ context.Context, tokenID string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, id)
		}
	}
	if _, ok := m.entries[tokenID]; ok {
		return false, nil
	}
	if until.Sub(now) < minRevocationTTL {
		until = now.Add(minRevocationTTL)
	}
	m.entries[tokenID] = until
	return true, nil
}

type redisRevocations struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocations stores revoked ids as expiring keys so every API
// replica sees the same list.
func NewRedisRevocations(client *redis.Client) Revocations {
	return &redisRevocations{client: client, prefix: "taskflow:revoked:"}
}

func (r *redisRevocations) Claim(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := time.Until(until)
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	return r.client.SetNX(ctx, r.prefix+tokenID, "1", ttl).Result()
}
