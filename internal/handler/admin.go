package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"fintrack-sync/internal/cache"
	"fintrack-sync/internal/service"
	"fintrack-sync/pkg/response"
)

// AdminHandler exposes cache maintenance operations.
type AdminHandler struct {
	store     *cache.Store
	scheduler *service.EvictionScheduler
	backend   string // durable layer type: memory, sqlite, mysql, postgres, redis
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(store *cache.Store, scheduler *service.EvictionScheduler, backend string) *AdminHandler {
	return &AdminHandler{
		store:     store,
		scheduler: scheduler,
		backend:   backend,
		startTime: time.Now(),
	}
}

// GetCacheStats handles GET /api/v1/admin/cache/stats
func (h *AdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]any)

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["server_time"] = time.Now().Format(time.RFC3339)

	s := h.store.Stats()
	memory := map[string]any{
		"entries": s.Entries,
		"hits":    s.Hits,
		"misses":  s.Misses,
		"puts":    s.Puts,
	}
	if !s.LastSweep.IsZero() {
		memory["last_sweep"] = s.LastSweep.UTC().Format(time.RFC3339)
	}
	stats["memory_layer"] = memory

	durable := map[string]any{"backend": h.backend}
	if meta, err := h.store.Metadata(ctx); err == nil {
		durable["status"] = "connected"
		durable["entries"] = len(meta)
	} else {
		durable["status"] = "error"
		durable["error"] = err.Error()
	}
	stats["durable_layer"] = durable

	if h.scheduler != nil {
		stats["sweep_interval"] = h.scheduler.Interval().String()
		stats["sweep_running"] = h.scheduler.Running()
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["runtime"] = map[string]any{
		"go_version":    runtime.Version(),
		"heap_alloc_mb": float64(memStats.HeapAlloc) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	response.OK(w, stats)
}

// Sweep handles POST /api/v1/admin/cache/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var result cache.SweepResult
	if h.scheduler != nil {
		result = h.scheduler.RunNow()
	} else {
		result = h.store.SweepExpired(r.Context(), time.Now())
	}

	zerolog.Ctx(r.Context()).Info().
		Int("memory_removed", result.Memory).
		Int("durable_removed", result.Durable).
		Msg("manual cache sweep")

	response.OK(w, result)
}

// Clear handles POST /api/v1/admin/cache/clear
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAll(r.Context())

	zerolog.Ctx(r.Context()).Info().Msg("cache cleared")

	response.OK(w, map[string]bool{"cleared": true})
}
