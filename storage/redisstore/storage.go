package redisstore

import (
	"context"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the session keys
const DefaultPrefix = "backoffice:session:"

// Storage implements authclient.Storage on Redis so several processes can
// share one session.
type Storage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ authclient.Storage = &Storage{}

// Option customizes the storage
type Option func(*Storage)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		s.prefix = prefix
	}
}

// WithTTL expires entries after ttl. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// New wraps a redis client
func New(client redis.UniversalClient, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect creates a client and pings the server
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis: address is empty", errors.CategoryBadInput)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CategoryOperation, "redis: failed to ping server").
			WithMetadata(map[string]any{"addr": addr})
	}

	return client, nil
}

func (s *Storage) key(k string) string {
	return s.prefix + k
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// SetAll writes every entry inside MULTI/EXEC
func (s *Storage) SetAll(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	return err
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	return s.client.Del(ctx, prefixed...).Err()
}
