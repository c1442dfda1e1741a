package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/market-v/storefront/cmd/storefront-api/handlers"
	"github.com/market-v/storefront/cmd/storefront-api/middleware"
	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/observability"
)

// RouterDeps holds everything the router serves.
type RouterDeps struct {
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	Products       handlers.ProductService
	Comparer       handlers.Comparer
	Chat           handlers.ChatController
	Sessions       *assistant.SessionManager
	DB             handlers.Pinger
	RequestTimeout time.Duration
	AllowedOrigins []string
	ServiceName    string
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	healthHandler := handlers.NewHealthHandler(deps.Logger, deps.ServiceName, deps.DB)
	catalogHandler := handlers.NewCatalogHandler(deps.Logger, deps.Products)
	comparisonHandler := handlers.NewComparisonHandler(deps.Logger, deps.Comparer)
	chatHandler := handlers.NewChatHandler(deps.Logger, deps.Sessions, deps.Chat)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", catalogHandler.Search)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.List)
			r.Post("/", catalogHandler.Create)
			r.Get("/{id}", catalogHandler.Get)
		})

		r.Post("/compare-products", comparisonHandler.Compare)

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", chatHandler.CreateSession)
			r.Get("/{id}", chatHandler.GetSession)
			r.Delete("/{id}", chatHandler.DeleteSession)
			r.Post("/{id}/messages", chatHandler.SendMessage)
		})
	})

	return r
}
