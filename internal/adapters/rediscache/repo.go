// Package rediscache provides the Redis-backed cache repository so multiple
// quill replicas observe the same entries and tag invalidations.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillchat/quill/internal/cache"
)

const (
	entryPrefix = "cache:entry:"
	tagPrefix   = "cache:tag:"
)

// tagTTL must cover the longest entry TTL (the 1-hour user-by-email lookups):
// once every entry stored before an invalidation has aged out, the mark is moot.
const tagTTL = 2 * time.Hour

// Repo implements cache.Repository on Redis. Entry TTL uses native key expiry;
// tag invalidation marks are unix-nano timestamps under their own keys.
type Repo struct {
	client redis.UniversalClient
}

// NewRepo creates a Redis-backed cache repository.
func NewRepo(client redis.UniversalClient) *Repo {
	return &Repo{client: client}
}

func (r *Repo) GetEntry(ctx context.Context, key string) (*cache.Entry, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}

	data, err := r.client.Get(ctx, entryPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // absent or expired
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var e cache.Entry
	if unmarshalErr := json.Unmarshal([]byte(data), &e); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", unmarshalErr)
	}
	return &e, nil
}

func (r *Repo) SetEntry(ctx context.Context, key string, e cache.Entry, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return r.client.Set(ctx, entryPrefix+key, data, ttl).Err()
}

func (r *Repo) TagTimestamps(ctx context.Context, tags []string) (map[string]time.Time, error) {
	if len(tags) == 0 {
		return map[string]time.Time{}, nil
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = tagPrefix + tag
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget tags: %w", err)
	}

	out := make(map[string]time.Time, len(tags))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // never invalidated
		}
		nanos, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("parse tag timestamp for %q: %w", tags[i], parseErr)
		}
		out[tags[i]] = time.Unix(0, nanos)
	}
	return out, nil
}

func (r *Repo) MarkTagInvalid(ctx context.Context, tag string, at time.Time) error {
	if tag == "" {
		return errors.New("tag cannot be empty")
	}
	return r.client.Set(ctx, tagPrefix+tag, strconv.FormatInt(at.UnixNano(), 10), tagTTL).Err()
}

// Health checks the Redis connection behind the cache.
func (r *Repo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
