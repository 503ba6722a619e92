package api

import (
	"net/http"

	"github.com/baseloop/local-mcp-bridge/internal/api/handlers"
	"github.com/baseloop/local-mcp-bridge/internal/api/middleware"
	"github.com/baseloop/local-mcp-bridge/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all bridge routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: cfg.FrontOrigin != "*",
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/mcp", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/chat/stream", h.ChatStream)
		r.Post("/query", h.Query)
	})

	return r
}
