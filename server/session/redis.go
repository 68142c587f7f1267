package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const REDIS_KEY_PREFIX = "phonebook:session:"

// RedisStore keeps sessions as JSON strings; expiry is left to redis key TTLs.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "unable to reach redis at %s", opts.Addr)
	}

	return &RedisStore{client: client}, nil
}

func (rs *RedisStore) Load(ctx context.Context, id string) (map[string]string, error) {
	data, err := rs.client.Get(ctx, REDIS_KEY_PREFIX+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}

	return values, nil
}

func (rs *RedisStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return rs.client.Set(ctx, REDIS_KEY_PREFIX+id, data, ttl).Err()
}

func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	return rs.client.Del(ctx, REDIS_KEY_PREFIX+id).Err()
}

// PurgeExpired is a no-op, redis expires keys on its own.
func (rs *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
