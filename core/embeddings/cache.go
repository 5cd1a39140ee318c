package embeddings

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// Cache memoizes vectors by model and text.
type Cache interface {
	// Lookup returns one vector per text, nil where the text is not cached.
	Lookup(ctx context.Context, model string, texts []string) ([][]float64, error)
	Store(ctx context.Context, model string, texts []string, vectors [][]float64) error
}

const (
	defaultKeyPrefix = "sagent:embedding:"
	defaultTTL       = 7 * 24 * time.Hour
)

// RedisCache stores vectors in Redis under prefix:model:xxhash(text), as
// little-endian float64s.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type RedisCacheOption func(*RedisCache)

func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithTTL sets the expiry of stored vectors; zero keeps them forever.
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) { c.ttl = ttl }
}

func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{client: client, prefix: defaultKeyPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenRedisCache connects to url (redis://host:port/db) and checks the
// connection.
func OpenRedisCache(ctx context.Context, url string, opts ...RedisCacheOption) (*RedisCache, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCache(client, opts...), nil
}

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) key(model, text string) string {
	return c.prefix + model + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (c *RedisCache) Lookup(ctx context.Context, model string, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(model, text)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *RedisCache) Store(ctx context.Context, model string, texts []string, vectors [][]float64) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("store %d texts with %d vectors: %w", len(texts), len(vectors), ErrMismatchedCount)
	}
	if len(texts) == 0 {
		return nil
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, text := range texts {
			pipe.Set(ctx, c.key(model, text), encodeVector(vectors[i]), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

var errCorruptVector = errors.New("corrupt vector encoding")

func encodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, errCorruptVector
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vec, nil
}
