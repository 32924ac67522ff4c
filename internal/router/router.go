package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"fintrack-sync/internal/handler"
	"fintrack-sync/internal/middleware"
	"fintrack-sync/pkg/apierror"
	"fintrack-sync/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	FinanceHandler *handler.FinanceHandler
	AdminHandler   *handler.AdminHandler
	APIKeys        []string
	Logger         zerolog.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("route not found"))
	})

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.APIKeys))

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if cfg.FinanceHandler != nil {
				r.Route("/users/{user_id}", func(r chi.Router) {
					r.Get("/", cfg.FinanceHandler.GetUser)
					r.Get("/records", cfg.FinanceHandler.GetRecords)
					r.Get("/goals/{timeframe}", cfg.FinanceHandler.GetGoal)
					r.Get("/categories", cfg.FinanceHandler.GetCategories)
					r.Delete("/cache", cfg.FinanceHandler.InvalidateUser)
				})
			}

			if cfg.AdminHandler != nil {
				r.Route("/admin/cache", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetCacheStats)
					r.Post("/sweep", cfg.AdminHandler.Sweep)
					r.Post("/clear", cfg.AdminHandler.Clear)
				})
			}
		})
	})

	return r
}
