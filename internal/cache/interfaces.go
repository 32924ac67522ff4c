package cache

import (
	"context"
	"time"
)

// SettingsStore is a durable key/value store for int64 settings.
// The cache uses it to remember entry expiry times across restarts.
// Implementations must be safe for concurrent use.
type SettingsStore interface {
	// GetLong returns the value for key, or def if the key is absent.
	GetLong(ctx context.Context, key string, def int64) (int64, error)

	// PutLong stores value under key, replacing any previous value.
	PutLong(ctx context.Context, key string, value int64) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// AllKeys returns every stored key.
	AllKeys(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error
}

// ExpirySuffix is appended to a cache key to form its durable metadata key.
const ExpirySuffix = "_expiry"

// MetadataKey returns the durable key holding the expiry of a cache key.
func MetadataKey(key string) string {
	return key + ExpirySuffix
}

// MetadataEntry is one durable expiry record.
type MetadataEntry struct {
	Key       string
	ExpiresAt time.Time
}

// SweepResult reports what a sweep removed.
type SweepResult struct {
	Memory  int       `json:"memory_removed"`
	Durable int       `json:"durable_removed"`
	At      time.Time `json:"at"`
}

// Stats is a point-in-time view of the fast layer.
type Stats struct {
	Entries   int       `json:"entries"`
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	Puts      uint64    `json:"puts"`
	LastSweep time.Time `json:"last_sweep,omitempty"`
}
