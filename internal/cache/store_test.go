package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack-sync/internal/cache"
	"fintrack-sync/internal/model"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*cache.Store, *cache.MemorySettingsStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	durable := cache.NewMemorySettingsStore()
	return cache.NewStore(durable, cache.WithClock(clock.Now)), durable, clock
}

func TestStore_PutThenGet(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	store.Put(ctx, "x", model.StringList{"42"}, time.Minute)

	v, ok := store.Get(ctx, "x")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"42"}, v)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)
	ttl := model.DefaultDurations().For(model.Short)

	store.Put(ctx, "x", model.Document{"n": 42}, ttl)

	v, ok := store.Get(ctx, "x")
	require.True(t, ok)
	assert.Equal(t, model.Document{"n": 42}, v)

	clock.Advance(ttl)

	_, ok = store.Get(ctx, "x")
	assert.False(t, ok, "entry must be absent once now reaches expiresAt")
	assert.Equal(t, 0, store.Stats().Entries, "expired entry is removed on get")

	result := store.SweepExpired(ctx, clock.Now())
	assert.Equal(t, 0, result.Memory)
}

func TestStore_PutWritesDurableExpiry(t *testing.T) {
	ctx := context.Background()
	store, durable, clock := newTestStore(t)

	store.Put(ctx, "user:u1", model.Document{"name": "Ada"}, 5*time.Minute)

	got, err := durable.GetLong(ctx, "user:u1_expiry", -1)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(5*time.Minute).UnixMilli(), got)
}

func TestStore_DurableMetadataDoesNotReconstructValue(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	durable := cache.NewMemorySettingsStore()

	first := cache.NewStore(durable, cache.WithClock(clock.Now))
	first.Put(ctx, "k", model.StringList{"a"}, time.Hour)

	// A new store over the same durable layer simulates a restart.
	restarted := cache.NewStore(durable, cache.WithClock(clock.Now))

	_, ok := restarted.Get(ctx, "k")
	assert.False(t, ok)

	meta, err := restarted.Metadata(ctx)
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "k", meta[0].Key)
}

func TestStore_OverwriteReplacesEntry(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	store.Put(ctx, "k", model.StringList{"old"}, time.Minute)
	store.Put(ctx, "k", model.StringList{"new"}, time.Hour)

	clock.Advance(2 * time.Minute)

	v, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"new"}, v)
}

func TestStore_ReturnedValueIsIsolated(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	doc := model.Document{"name": "Ada"}
	store.Put(ctx, "k", doc, time.Minute)
	doc["name"] = "mutated after put"

	v, ok := store.Get(ctx, "k")
	require.True(t, ok)
	v.(model.Document)["name"] = "mutated after get"

	again, _ := store.Get(ctx, "k")
	assert.Equal(t, "Ada", again.(model.Document)["name"])
}

func TestStore_SweepExpired(t *testing.T) {
	ctx := context.Background()
	store, durable, clock := newTestStore(t)

	store.Put(ctx, "short", model.StringList{"s"}, time.Minute)
	store.Put(ctx, "medium", model.StringList{"m"}, 5*time.Minute)
	store.Put(ctx, "long", model.StringList{"l"}, time.Hour)
	require.NoError(t, durable.PutLong(ctx, "unrelated_setting", 1))

	// Exactly at the medium expiry: short and medium are both removed.
	clock.Advance(5 * time.Minute)
	result := store.SweepExpired(ctx, clock.Now())

	assert.Equal(t, 2, result.Memory)
	assert.Equal(t, 2, result.Durable)

	_, ok := store.Get(ctx, "long")
	assert.True(t, ok)

	keys, err := durable.AllKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"long_expiry", "unrelated_setting"}, keys)

	assert.Equal(t, clock.Now(), store.Stats().LastSweep)
}

func TestStore_SweepRemovesOrphanedDurableMetadata(t *testing.T) {
	ctx := context.Background()
	store, durable, clock := newTestStore(t)

	require.NoError(t, durable.PutLong(ctx, "gone_expiry", clock.Now().Add(-time.Second).UnixMilli()))
	require.NoError(t, durable.PutLong(ctx, "fresh_expiry", clock.Now().Add(time.Hour).UnixMilli()))

	result := store.SweepExpired(ctx, clock.Now())

	assert.Equal(t, 0, result.Memory)
	assert.Equal(t, 1, result.Durable)
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store, durable, _ := newTestStore(t)

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		store.Put(ctx, k, model.StringList{k}, time.Hour)
	}

	store.ClearAll(ctx)

	for _, k := range keys {
		_, ok := store.Get(ctx, k)
		assert.False(t, ok, "key %s should be gone", k)
	}
	remaining, err := durable.AllKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestStore_DeleteAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	store, durable, _ := newTestStore(t)

	store.Put(ctx, "goal:u1:weekly:All", model.Document{"limit": 1}, time.Hour)
	store.Put(ctx, "goal:u1:yearly:All", model.Document{"limit": 2}, time.Hour)
	store.Put(ctx, "goal:u2:weekly:All", model.Document{"limit": 3}, time.Hour)
	store.Put(ctx, "user:u1", model.Document{"name": "Ada"}, time.Hour)

	assert.Equal(t, 2, store.DeletePrefix(ctx, "goal:u1:"))
	assert.True(t, store.Delete(ctx, "user:u1"))
	assert.False(t, store.Delete(ctx, "user:u1"))

	_, ok := store.Get(ctx, "goal:u2:weekly:All")
	assert.True(t, ok)

	keys, err := durable.AllKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"goal:u2:weekly:All_expiry"}, keys)
}

// failingSettings fails every operation.
type failingSettings struct{}

var errDurable = errors.New("durable unavailable")

func (failingSettings) GetLong(context.Context, string, int64) (int64, error) { return 0, errDurable }
func (failingSettings) PutLong(context.Context, string, int64) error          { return errDurable }
func (failingSettings) Remove(context.Context, string) error                  { return errDurable }
func (failingSettings) AllKeys(context.Context) ([]string, error)             { return nil, errDurable }
func (failingSettings) Clear(context.Context) error                           { return errDurable }

func TestStore_DurableFailuresNeverSurface(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStore(failingSettings{})

	store.Put(ctx, "k", model.StringList{"v"}, time.Minute)

	v, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"v"}, v)

	result := store.SweepExpired(ctx, time.Now())
	assert.Equal(t, 0, result.Durable)

	store.ClearAll(ctx)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%10)
				store.Put(ctx, key, model.StringList{key}, time.Duration(j%3)*time.Minute)
				store.Get(ctx, key)
				if j%50 == 0 {
					store.SweepExpired(ctx, clock.Now())
				}
			}
		}(i)
	}
	wg.Wait()

	stats := store.Stats()
	assert.Equal(t, uint64(8*200), stats.Puts)
	assert.Equal(t, uint64(8*200), stats.Hits+stats.Misses)
}

func TestStore_ConcurrentPutsKeepLayersInStep(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Every reading of the clock is one millisecond later than the last.
	var ticks atomic.Int64
	store := cache.NewStore(cache.NewMemorySettingsStore(), cache.WithClock(func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	}))

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Put(ctx, "user:u1", model.Document{"n": j}, time.Minute)
			}
		}()
	}
	wg.Wait()

	meta, err := store.Metadata(ctx)
	require.NoError(t, err)
	require.Len(t, meta, 1)

	latest := base.Add(time.Duration(ticks.Load()) * time.Millisecond).Add(time.Minute)
	assert.Equal(t, latest.UnixMilli(), meta[0].ExpiresAt.UnixMilli())
}
