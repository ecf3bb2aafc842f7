package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mezonai/starledger/logx"
	"github.com/redis/go-redis/v9"
)

// heightKeyPrefix marks keys whose suffix is a big-endian uint64 height.
const heightKeyPrefix = "blk:"

// RedisProvider implements IterableProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Address      string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// toRedisKey converts binary height keys to a human readable form, e.g. "blk:42".
func toRedisKey(key []byte) string {
	if bytes.HasPrefix(key, []byte(heightKeyPrefix)) && len(key) == len(heightKeyPrefix)+8 {
		height := binary.BigEndian.Uint64(key[len(heightKeyPrefix):])
		return heightKeyPrefix + strconv.FormatUint(height, 10)
	}
	return string(key)
}

// fromRedisKey reverses toRedisKey so iteration yields the same keys as the
// other providers.
func fromRedisKey(key string) []byte {
	if strings.HasPrefix(key, heightKeyPrefix) {
		if height, err := strconv.ParseUint(key[len(heightKeyPrefix):], 10, 64); err == nil {
			out := make([]byte, len(heightKeyPrefix)+8)
			copy(out, heightKeyPrefix)
			binary.BigEndian.PutUint64(out[len(heightKeyPrefix):], height)
			return out
		}
	}
	return []byte(key)
}

// NewRedisProvider connects to Redis and pings it once.
func NewRedisProvider(opts RedisOptions) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logx.Info("REDIS", fmt.Sprintf("Connected to %s db=%d", opts.Address, opts.DB))
	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	value, err := p.client.Get(p.ctx, toRedisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (p *RedisProvider) Put(key, value []byte) error {
	return p.client.Set(p.ctx, toRedisKey(key), value, 0).Err()
}

func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(p.ctx, toRedisKey(key)).Err()
}

func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(p.ctx, toRedisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}

func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix scans matching keys, restores their binary form and visits
// them in ascending order. SCAN itself gives no ordering guarantee.
func (p *RedisProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	pattern := toRedisKey(prefix) + "*"
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	type entry struct {
		raw  []byte
		name string
	}
	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		raw := fromRedisKey(k)
		if bytes.HasPrefix(raw, prefix) {
			entries = append(entries, entry{raw: raw, name: k})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].raw, entries[j].raw) < 0
	})

	for _, e := range entries {
		val, err := p.client.Get(p.ctx, e.name).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return err
		}
		if !fn(e.raw, val) {
			return nil
		}
	}
	return nil
}

// RedisBatch queues commands in a MULTI/EXEC pipeline.
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(b.ctx, toRedisKey(key), value, 0)
}

func (b *RedisBatch) Delete(key []byte) {
	b.pipe.Del(b.ctx, toRedisKey(key))
}

func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

func (b *RedisBatch) Close() {
	b.pipe.Discard()
}
