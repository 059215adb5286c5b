package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"post-discharge-assistant/internal/metrics"
)

const keyPrefix = "embedding:"

// EmbeddingCache keeps query embeddings in Redis, keyed by model and text.
type EmbeddingCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewEmbeddingCache(opts Options) *EmbeddingCache {
	client := redis.NewClient(&redis.Options{
		Addr:       opts.Addr,
		Password:   opts.Password,
		DB:         opts.DB,
		MaxRetries: 2,
	})
	return NewEmbeddingCacheWithClient(client, opts.TTL)
}

func NewEmbeddingCacheWithClient(client redis.UniversalClient, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	b, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordEmbeddingCache("miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordEmbeddingCache("error")
		return nil, false, err
	}
	vec, err := decodeVector(b)
	if err != nil {
		metrics.RecordEmbeddingCache("error")
		return nil, false, err
	}
	metrics.RecordEmbeddingCache("hit")
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vec []float32) error {
	return c.client.Set(ctx, Key(model, text), encodeVector(vec), c.ttl).Err()
}

func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

// Key hashes the text so arbitrary patient questions never end up in key names.
func Key(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
