package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack-sync/internal/cache"
	"fintrack-sync/internal/model"
)

func TestEvictionScheduler_RunNow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewStore(nil, cache.WithClock(func() time.Time { return now }))

	store.Put(ctx, "a", model.StringList{"a"}, time.Minute)
	store.Put(ctx, "b", model.StringList{"b"}, time.Hour)

	s := NewEvictionScheduler(store, EvictionConfig{Interval: time.Hour}, zerolog.Nop())
	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	result := s.RunNow()
	assert.Equal(t, 1, result.Memory)
	assert.Equal(t, 1, result.Durable)
	assert.Equal(t, 1, store.Stats().Entries)
}

func TestEvictionScheduler_SweepsPeriodically(t *testing.T) {
	ctx := context.Background()
	store := cache.NewStore(nil)
	store.Put(ctx, "gone", model.StringList{"x"}, time.Millisecond)

	s := NewEvictionScheduler(store, EvictionConfig{Interval: 10 * time.Millisecond}, zerolog.Nop())
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return !store.Stats().LastSweep.IsZero() && store.Stats().Entries == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEvictionScheduler_StartStopIdempotent(t *testing.T) {
	s := NewEvictionScheduler(cache.NewStore(nil), EvictionConfig{Interval: time.Hour}, zerolog.Nop())

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	// A stopped scheduler cannot be restarted.
	s.Start()
	assert.False(t, s.Running())
}

func TestEvictionScheduler_StopWithoutStart(t *testing.T) {
	s := NewEvictionScheduler(cache.NewStore(nil), EvictionConfig{}, zerolog.Nop())

	assert.NotPanics(t, s.Stop)
	assert.Equal(t, DefaultSweepInterval, s.Interval())
}

// parkedSettings blocks every AllKeys call until the test releases it.
type parkedSettings struct {
	cache.SettingsStore
	entered chan struct{}
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func newParkedSettings() *parkedSettings {
	return &parkedSettings{
		SettingsStore: cache.NewMemorySettingsStore(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (p *parkedSettings) AllKeys(ctx context.Context) ([]string, error) {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	defer p.active.Add(-1)

	p.entered <- struct{}{}
	<-p.release
	return p.SettingsStore.AllKeys(ctx)
}

func TestEvictionScheduler_SweepsNeverOverlap(t *testing.T) {
	durable := newParkedSettings()
	s := NewEvictionScheduler(cache.NewStore(durable), EvictionConfig{Interval: 5 * time.Millisecond}, zerolog.Nop())
	s.Start()

	// The first ticker sweep parks inside the durable layer.
	select {
	case <-durable.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker sweep never started")
	}

	manualDone := make(chan struct{})
	go func() {
		defer close(manualDone)
		s.RunNow()
	}()

	select {
	case <-durable.entered:
		t.Fatal("second sweep entered while the first was still running")
	case <-time.After(50 * time.Millisecond):
	}

	durable.release <- struct{}{}

	quit := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-durable.entered:
				durable.release <- struct{}{}
			case <-quit:
				return
			}
		}
	}()

	select {
	case <-manualDone:
	case <-time.After(2 * time.Second):
		t.Fatal("RunNow never completed")
	}

	s.Stop()
	close(quit)
	<-drained

	assert.Equal(t, int32(1), durable.peak.Load())
}
