package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// =============================================================================
// REVOKER - Session termination list
// =============================================================================

// Revoker records session terminations per subject. It satisfies
// cleaning.SessionTerminator.
type Revoker interface {
	// Terminate invalidates every token of subject issued up to now.
	Terminate(ctx context.Context, subject string) error
	// RevokedAt returns the last termination instant of subject.
	RevokedAt(ctx context.Context, subject string) (time.Time, bool, error)
}

// MemoryRevoker keeps terminations in process memory.
type MemoryRevoker struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces time.Now, for tests.
func (m *MemoryRevoker) WithClock(now func() time.Time) *MemoryRevoker {
	m.now = now
	return m
}

func (m *MemoryRevoker) Terminate(_ context.Context, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[subject] = m.now()
	return nil
}

func (m *MemoryRevoker) RevokedAt(_ context.Context, subject string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.revoked[subject]
	return at, ok, nil
}

// Prune drops terminations recorded before cutoff and returns how many
// were dropped.
func (m *MemoryRevoker) Prune(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for subject, at := range m.revoked {
		if at.Before(cutoff) {
			delete(m.revoked, subject)
			removed++
		}
	}
	return removed
}

// =============================================================================
// REDIS
// =============================================================================

const revokedKeyPrefix = "session:revoked:"

// RedisRevoker shares terminations between server instances. Entries expire
// after the token TTL, when every token they could reject has expired too.
type RedisRevoker struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisRevoker(client *redis.Client, tokenTTL time.Duration) *RedisRevoker {
	return &RedisRevoker{client: client, ttl: tokenTTL, now: time.Now}
}

func (r *RedisRevoker) Terminate(ctx context.Context, subject string) error {
	at := strconv.FormatInt(r.now().Unix(), 10)
	return r.client.Set(ctx, revokedKeyPrefix+subject, at, r.ttl).Err()
}

func (r *RedisRevoker) RevokedAt(ctx context.Context, subject string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, revokedKeyPrefix+subject).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}
