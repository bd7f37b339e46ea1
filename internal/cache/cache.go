// Package cache implements a time-boxed read cache with tag-based group
// invalidation. Entries are keyed by a stable tuple of key parts, expire after
// a per-query TTL, and carry tags; invalidating a tag forces every entry
// carrying it to be recomputed on next read regardless of remaining TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Entry is a stored cache value together with the bookkeeping needed for
// tag-based invalidation.
type Entry struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
	Tags     []string  `json:"tags,omitempty"`
}

// Repository is the storage backend for entries and tag invalidation marks.
// Implementations enforce entry TTL themselves (native expiry or clock checks)
// and return (nil, nil) for absent or expired entries.
type Repository interface {
	GetEntry(ctx context.Context, key string) (*Entry, error)
	SetEntry(ctx context.Context, key string, e Entry, ttl time.Duration) error

	// TagTimestamps returns the invalidation time for each of the given tags
	// that has ever been invalidated. Unknown tags are simply absent.
	TagTimestamps(ctx context.Context, tags []string) (map[string]time.Time, error)

	// MarkTagInvalid records that entries stored before at are stale for tag.
	MarkTagInvalid(ctx context.Context, tag string, at time.Time) error
}

// Options control how a single cached lookup is stored.
type Options struct {
	Tags []string
	TTL  time.Duration
}

// StoreOptions bundles dependencies for NewStore.
type StoreOptions struct {
	Repository Repository
	// Clock overrides time.Now, mainly for tests.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Store is the process-wide cache service. Concurrent misses for the same key
// may each execute the underlying query; reads are idempotent, so at-most-one
// execution is deliberately not guaranteed.
type Store struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewStore constructs a Store.
func NewStore(opts StoreOptions) *Store {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: opts.Repository, now: now, logger: logger}
}

// Key joins key parts into the stable storage key for a lookup.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// InvalidateTags marks every entry carrying any of the given tags as stale.
// Invalidation is a fire-and-forget broadcast: a read that started just before
// the call may still return the value it already fetched.
func (s *Store) InvalidateTags(ctx context.Context, tags ...string) error {
	at := s.now()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if err := s.repo.MarkTagInvalid(ctx, tag, at); err != nil {
			return fmt.Errorf("invalidate tag %q: %w", tag, err)
		}
	}
	return nil
}

// fresh reports whether the entry predates any invalidation of its tags.
func (s *Store) fresh(ctx context.Context, e *Entry) bool {
	if len(e.Tags) == 0 {
		return true
	}
	stamps, err := s.repo.TagTimestamps(ctx, e.Tags)
	if err != nil {
		// Unknown tag state counts as stale.
		s.logger.WarnContext(ctx, "tag timestamp lookup failed, treating entry as stale", "error", err)
		return false
	}
	for _, invalidatedAt := range stamps {
		if e.StoredAt.Before(invalidatedAt) {
			return false
		}
	}
	return true
}

// Lookup returns the cached result for keyParts when one exists, has not
// expired, and none of its tags were invalidated since it was stored.
// Otherwise it calls fn, stores the result with expiry now+TTL, and returns
// the fresh value. Repository failures degrade to uncached reads.
func Lookup[T any](ctx context.Context, s *Store, keyParts []string, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	key := Key(keyParts...)

	entry, err := s.repo.GetEntry(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed, falling through to query", "key", key, "error", err)
		entry = nil
	}
	if entry != nil && s.fresh(ctx, entry) {
		var cached T
		if unmarshalErr := json.Unmarshal(entry.Value, &cached); unmarshalErr == nil {
			return cached, nil
		}
		// Undecodable entries are superseded below.
		s.logger.WarnContext(ctx, "cache entry undecodable, recomputing", "key", key)
	}

	fresh, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	value, err := json.Marshal(fresh)
	if err != nil {
		// The result is still good; it just cannot be cached.
		s.logger.WarnContext(ctx, "cache encode failed, serving uncached", "key", key, "error", err)
		return fresh, nil
	}
	store := Entry{Value: value, StoredAt: s.now(), Tags: opts.Tags}
	if setErr := s.repo.SetEntry(ctx, key, store, opts.TTL); setErr != nil {
		s.logger.WarnContext(ctx, "cache write failed, serving uncached", "key", key, "error", setErr)
	}
	return fresh, nil
}
