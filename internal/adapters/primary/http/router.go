package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/field-dispatch-bot/internal/adapters/primary/http/middleware"
	"github.com/lorrc/field-dispatch-bot/internal/auth"
)

// RouterDeps carries everything the ops router needs.
type RouterDeps struct {
	Health  *HealthHandler
	Auth    *AuthHandler
	Reports *ReportHandler
	Tickets *TicketHandler

	TokenManager *auth.TokenManager

	// Nil limiters disable rate limiting.
	GeneralRateLimiter *mw.RateLimiter
	AuthRateLimiter    *mw.RateLimiter

	AllowedOrigins []string
	RequestLogger  func(http.Handler) http.Handler
	Recovery       func(http.Handler) http.Handler
}

// NewRouter assembles the ops API router.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(deps.RequestLogger)
	r.Use(deps.Recovery)

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if deps.GeneralRateLimiter != nil {
		r.Use(deps.GeneralRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", deps.Health.HandleHealth)
	r.Get("/health/live", deps.Health.HandleLiveness)
	r.Get("/health/ready", deps.Health.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		// Public login route with stricter rate limiting
		r.Group(func(r chi.Router) {
			if deps.AuthRateLimiter != nil {
				r.Use(deps.AuthRateLimiter.Middleware)
			}
			r.Post("/auth/login", deps.Auth.HandleLogin)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(deps.TokenManager))

			r.Post("/reports/broadcast", deps.Reports.HandleBroadcast)
			r.Post("/reports/personal", deps.Reports.HandlePersonal)

			r.Get("/tickets", deps.Tickets.HandleList)
			r.Get("/tickets/{id}", deps.Tickets.HandleGet)
			r.Delete("/tickets/{id}", deps.Tickets.HandleDelete)
		})
	})

	return r
}
