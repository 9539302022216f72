package router

import (
	"net/http"

	"giftcanvas-api/internal/handler"
	"giftcanvas-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	AccountHandler *handler.AccountHandler
	AuthHandler    *handler.AuthHandler
	EventsHandler  *handler.EventsHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Auth endpoints are public: the token endpoint is how clients get in.
	if cfg.AuthHandler != nil {
		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Post("/token", cfg.AuthHandler.GenerateToken)
			r.Post("/revoke", cfg.AuthHandler.RevokeToken)
			r.Post("/refresh", cfg.AuthHandler.RefreshToken)
		})
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
			}

			if cfg.EventsHandler != nil {
				r.Get("/events", cfg.EventsHandler.UserEvents)
			}

			if cfg.AccountHandler != nil {
				r.Route("/accounts", func(r chi.Router) {
					r.Get("/", cfg.AccountHandler.List)
					r.Post("/", cfg.AccountHandler.Create)

					r.Route("/{id}", func(r chi.Router) {
						r.Patch("/", cfg.AccountHandler.Update)
						r.Delete("/", cfg.AccountHandler.Delete)
						r.Get("/queue", cfg.AccountHandler.Queue)
						r.Get("/gifted", cfg.AccountHandler.Gifted)
						r.Get("/logs", cfg.AccountHandler.Logs)
						r.Get("/jobs", cfg.AccountHandler.Jobs)
						r.Post("/start", cfg.AccountHandler.Start)
						r.Post("/stop", cfg.AccountHandler.Stop)
						r.Get("/status", cfg.AccountHandler.Status)
						r.Post("/notify", cfg.AccountHandler.Notify)
						if cfg.EventsHandler != nil {
							r.Get("/events", cfg.EventsHandler.AccountEvents)
						}
					})
				})
			}
		})
	})

	return r
}
