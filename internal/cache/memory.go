package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Repository. It is the default backend for
// single-node deployments and the workhorse for tests; entries age out
// lazily on access rather than being swept.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
	tags    map[string]time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemory constructs a Memory repository. A nil clock uses time.Now.
func NewMemory(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		now:     clock,
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]time.Time),
	}
}

func (m *Memory) GetEntry(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !me.expiresAt.IsZero() && m.now().After(me.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	e := me.entry
	return &e, nil
}

func (m *Memory) SetEntry(_ context.Context, key string, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = memoryEntry{entry: e, expiresAt: expiresAt}
	return nil
}

func (m *Memory) TagTimestamps(_ context.Context, tags []string) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]time.Time, len(tags))
	for _, tag := range tags {
		if at, ok := m.tags[tag]; ok {
			out[tag] = at
		}
	}
	return out, nil
}

func (m *Memory) MarkTagInvalid(_ context.Context, tag string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tags[tag] = at
	return nil
}
