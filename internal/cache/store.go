package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fintrack-sync/internal/model"
)

// entry is a cached value with its expiry.
type entry struct {
	value     model.Value
	expiresAt time.Time
}

// isExpired reports whether the entry is no longer valid at now.
func (e *entry) isExpired(now time.Time) bool {
	return !e.expiresAt.After(now)
}

// Store is the two-layer cache: a fast in-process layer holding values and a
// durable layer holding only expiry timestamps.
//
// The durable layer never reconstructs a value. After a restart the fast
// layer is empty and every lookup misses even if durable metadata says the
// entry is still fresh.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	hits      uint64
	misses    uint64
	puts      uint64
	lastSweep time.Time

	// durableMu is taken before mu by every mutation and held across both
	// layers, so the durable expiry of a key always matches its fast entry.
	// Get only takes mu.
	durableMu sync.Mutex
	durable   SettingsStore

	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for durable-layer failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a Store over the given durable layer.
// A nil durable layer is replaced by an in-memory one.
func NewStore(durable SettingsStore, opts ...Option) *Store {
	if durable == nil {
		durable = NewMemorySettingsStore()
	}
	s := &Store{
		entries: make(map[string]*entry),
		durable: durable,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores value under key for ttl, replacing any previous entry.
// Durable-layer failures are logged and otherwise ignored.
func (s *Store) Put(ctx context.Context, key string, value model.Value, ttl time.Duration) {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	expiresAt := s.now().Add(ttl)

	s.mu.Lock()
	s.entries[key] = &entry{
		value:     model.CloneValue(value),
		expiresAt: expiresAt,
	}
	s.puts++
	s.mu.Unlock()

	if err := s.durable.PutLong(ctx, MetadataKey(key), expiresAt.UnixMilli()); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to persist cache expiry")
	}
}

// Get returns the value for key if it is present and not expired.
// An expired entry is removed from the fast layer. Durable metadata is never
// consulted.
func (s *Store) Get(ctx context.Context, key string) (model.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}
	if e.isExpired(s.now()) {
		delete(s.entries, key)
		s.misses++
		return nil, false
	}

	s.hits++
	return model.CloneValue(e.value), true
}

// Delete removes key from both layers and reports whether the fast layer
// held it.
func (s *Store) Delete(ctx context.Context, key string) bool {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	s.mu.Lock()
	_, existed := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	if err := s.durable.Remove(ctx, MetadataKey(key)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to remove cache expiry")
	}
	return existed
}

// DeletePrefix removes every key starting with prefix from both layers and
// returns how many fast-layer entries were removed.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) int {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	s.mu.Lock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()

	keys, err := s.durable.AllKeys(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("prefix", prefix).Msg("failed to list cache metadata")
		return removed
	}
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, ExpirySuffix) {
			if err := s.durable.Remove(ctx, k); err != nil {
				s.logger.Warn().Err(err).Str("key", k).Msg("failed to remove cache expiry")
			}
		}
	}
	return removed
}

// ClearAll empties both layers.
func (s *Store) ClearAll(ctx context.Context) {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	if err := s.durable.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear cache metadata")
	}
}

// SweepExpired removes every entry whose expiry is at or before now from both
// layers.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) SweepResult {
	result := SweepResult{At: now}

	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	s.mu.Lock()
	for key, e := range s.entries {
		if e.isExpired(now) {
			delete(s.entries, key)
			result.Memory++
		}
	}
	s.lastSweep = now
	s.mu.Unlock()

	keys, err := s.durable.AllKeys(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list cache metadata")
		return result
	}

	cutoff := now.UnixMilli()
	for _, k := range keys {
		if !strings.HasSuffix(k, ExpirySuffix) {
			continue
		}
		expiresAt, err := s.durable.GetLong(ctx, k, 0)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("failed to read cache expiry")
			continue
		}
		if expiresAt > cutoff {
			continue
		}
		if err := s.durable.Remove(ctx, k); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("failed to remove cache expiry")
			continue
		}
		result.Durable++
	}

	return result
}

// Metadata lists the durable expiry records, sorted by key.
func (s *Store) Metadata(ctx context.Context) ([]MetadataEntry, error) {
	s.durableMu.Lock()
	defer s.durableMu.Unlock()

	keys, err := s.durable.AllKeys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	entries := make([]MetadataEntry, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, ExpirySuffix) {
			continue
		}
		ms, err := s.durable.GetLong(ctx, k, 0)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MetadataEntry{
			Key:       strings.TrimSuffix(k, ExpirySuffix),
			ExpiresAt: time.UnixMilli(ms),
		})
	}
	return entries, nil
}

// Stats returns counters for the fast layer.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Entries:   len(s.entries),
		Hits:      s.hits,
		Misses:    s.misses,
		Puts:      s.puts,
		LastSweep: s.lastSweep,
	}
}

// Durable returns the durable layer.
func (s *Store) Durable() SettingsStore {
	return s.durable
}
