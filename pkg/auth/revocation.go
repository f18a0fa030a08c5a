package auth

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked token IDs until the tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revocationKeyPrefix = "nautilus:revoked:"

// redisRevocationStore keeps revocations in Redis so every replica sees them.
type redisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocationStore creates a Redis-backed RevocationStore.
func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisRevocationStore{client: client, now: time.Now}
}

func (s *redisRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		// Already expired; validation rejects it regardless.
		return nil
	}
	return s.client.Set(ctx, revocationKeyPrefix+tokenID, "1", ttl).Err()
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// memoryRevocationStore keeps revocations in process memory.
// Used when Redis is not configured; revocations do not survive restarts.
type memoryRevocationStore struct {
	cache *gocache.Cache
	now   func() time.Time
}

// NewMemoryRevocationStore creates an in-process RevocationStore.
func NewMemoryRevocationStore() RevocationStore {
	return &memoryRevocationStore{
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
		now:   time.Now,
	}
}

func (s *memoryRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (s *memoryRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, found := s.cache.Get(tokenID)
	return found, nil
}
