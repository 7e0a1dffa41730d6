package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborview/voicebook/internal/domain/entities"
)

const sessionKeyPrefix = "voicebook:session:"

// RedisStore is a Store backed by Redis, for deployments where webhook
// turns may land on different instances. Expiry rides on the key TTL, so
// no sweep is needed at all.
type RedisStore struct {
	client *redis.Client

	ttl                    time.Duration
	defaultDurationMinutes int
	clock                  func() time.Time
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client, ttl time.Duration, defaultDurationMinutes int) *RedisStore {
	return &RedisStore{
		client:                 client,
		ttl:                    ttl,
		defaultDurationMinutes: defaultDurationMinutes,
		clock:                  time.Now,
	}
}

// GetOrCreate implements Store
func (s *RedisStore) GetOrCreate(ctx context.Context, callID string) (*entities.CallSession, bool, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		sess := entities.NewCallSession(callID, s.defaultDurationMinutes, s.clock())
		if err := s.write(ctx, sess); err != nil {
			return nil, false, err
		}
		return sess, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	var sess entities.CallSession
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt session is unrecoverable; start the conversation over.
		sess := entities.NewCallSession(callID, s.defaultDurationMinutes, s.clock())
		if werr := s.write(ctx, sess); werr != nil {
			return nil, false, werr
		}
		return sess, true, nil
	}
	return &sess, false, nil
}

// Save implements Store
func (s *RedisStore) Save(ctx context.Context, session *entities.CallSession) error {
	session.LastUpdated = s.clock()
	return s.write(ctx, session)
}

// Remove implements Store
func (s *RedisStore) Remove(ctx context.Context, callID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+callID).Err()
}

func (s *RedisStore) write(ctx context.Context, session *entities.CallSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.CallID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
