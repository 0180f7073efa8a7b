package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"kemopage/internal/auth"
	"kemopage/internal/config"
	"kemopage/internal/profile"
)

// NewRouter wires application routes and middleware using chi. The auth
// provider may be nil in local setups without an issuer; auth endpoints are
// then left unmounted.
func NewRouter(cfg config.Config, provider *auth.Provider, profiles *profile.Service, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	profileHandler := NewProfileHandler(profiles, provider, logger)

	r.Get("/p/{profileID}", profileHandler.PublicByID)
	r.Get("/s/{slug}", profileHandler.PublicBySlug)

	if provider == nil {
		logger.Warn("auth provider not configured; auth endpoints disabled")
		r.NotFound(http.NotFoundHandler().ServeHTTP)
		return r
	}

	callbackHandler := NewCallbackHandler(provider, profiles, cfg.AppOrigin, cfg.Environment, logger)
	authHandler := NewAuthHandler(provider, cfg.AppOrigin, cfg.Environment, logger)
	jwtSecret := []byte(cfg.AuthJWTSecret)

	r.Group(func(r chi.Router) {
		r.Use(newSessionRefreshMiddleware(provider, jwtSecret, cfg.IsProduction(), logger))

		r.Get("/auth/callback", callbackHandler.Handle)
		r.Get("/auth/authorize", authHandler.Authorize)

		r.Route("/api", func(r chi.Router) {
			r.Post("/auth/magiclink", authHandler.MagicLink)
			r.Post("/auth/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(newAuthMiddleware(jwtSecret, logger))
				r.Route("/profile", func(r chi.Router) {
					r.Get("/", profileHandler.Me)
					r.Patch("/", profileHandler.Update)
					r.Post("/onboarding", profileHandler.CompleteOnboarding)
					r.Get("/slug-suggestion", profileHandler.SlugSuggestion)
				})
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
