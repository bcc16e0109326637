package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "storefront:session:"

// RedisStore keeps sessions as JSON documents in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, prefix: defaultKeyPrefix}
}

// WithPrefix overrides the key prefix.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	if strings.TrimSpace(prefix) != "" {
		s.prefix = prefix
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Load returns the stored session or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, id string) (Session, error) {
	if s == nil || s.client == nil {
		return Session{}, errors.New("session store not configured")
	}
	if strings.TrimSpace(id) == "" {
		return Session{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Save serialises the session and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), data, s.ttl).Err()
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	return s.client.Del(ctx, s.key(id)).Err()
}
