package snapshot

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bookmart/pkg/domain"
)

const defaultRedisPrefix = "bookmart:snapshot"

// RedisStore keeps snapshots in Redis with a TTL so abandoned carts age
// out on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed snapshot store.
func NewRedisStore(addr, password, prefix string, ttl time.Duration) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Save writes the serialized mirror with TTL.
func (s *RedisStore) Save(key string, mirror domain.Mirror) error {
	data, err := json.Marshal(mirror)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.prefix+":"+key, data, s.ttl).Err()
}

// Load reads and decodes a snapshot.
func (s *RedisStore) Load(key string) (domain.Mirror, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+":"+key).Bytes()
	if err == redis.Nil {
		return domain.Mirror{}, false, nil
	}
	if err != nil {
		return domain.Mirror{}, false, err
	}
	var mirror domain.Mirror
	if err := json.Unmarshal(raw, &mirror); err != nil {
		return domain.Mirror{}, false, err
	}
	return mirror, true, nil
}

// Delete removes a snapshot key.
func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+":"+key).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
