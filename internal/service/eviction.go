package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fintrack-sync/internal/cache"
)

// DefaultSweepInterval is how often expired cache entries are swept.
const DefaultSweepInterval = 30 * time.Minute

// EvictionConfig holds configuration for the eviction scheduler.
type EvictionConfig struct {
	// Interval is how often the sweep runs.
	// Default: 30 minutes
	Interval time.Duration

	// SweepTimeout bounds the durable part of a single sweep.
	// Default: 1 minute
	SweepTimeout time.Duration
}

// EvictionScheduler periodically sweeps expired entries from the cache store.
// Sweeps never overlap, including ones triggered through RunNow.
type EvictionScheduler struct {
	store     *cache.Store
	config    EvictionConfig
	now       func() time.Time
	logger    zerolog.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	stopped   bool
	mu        sync.Mutex

	// sweepMu serializes sweeps.
	sweepMu sync.Mutex
}

// NewEvictionScheduler creates a scheduler. Call Start to begin sweeping.
func NewEvictionScheduler(store *cache.Store, config EvictionConfig, logger zerolog.Logger) *EvictionScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = time.Minute
	}

	return &EvictionScheduler{
		store:  store,
		config: config,
		now:    time.Now,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the periodic sweep. It is a no-op if already running or
// stopped.
func (s *EvictionScheduler) Start() {
	s.mu.Lock()
	if s.isRunning || s.stopped {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.config.Interval).Msg("eviction scheduler started")

	go s.run()
}

// run is the main sweep loop.
func (s *EvictionScheduler) run() {
	defer close(s.doneCh)

	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			s.logger.Info().Msg("eviction scheduler stopped")
			return
		}
	}
}

// RunNow performs a sweep immediately, waiting for any sweep in progress.
func (s *EvictionScheduler) RunNow() cache.SweepResult {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	result := s.store.SweepExpired(ctx, s.now())

	s.logger.Debug().
		Int("memory_removed", result.Memory).
		Int("durable_removed", result.Durable).
		Dur("took", time.Since(start)).
		Msg("swept expired cache entries")

	return result
}

// Stop stops the scheduler and waits for the loop to exit. Safe to call more
// than once.
func (s *EvictionScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		wasRunning := s.isRunning
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.stopped = true
		s.mu.Unlock()

		if wasRunning {
			<-s.doneCh
		}
	})
}

// Running reports whether the periodic sweep is active.
func (s *EvictionScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Interval returns the sweep period.
func (s *EvictionScheduler) Interval() time.Duration {
	return s.config.Interval
}
