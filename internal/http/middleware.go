package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kemopage/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", duration.String())
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const claimsContextKey contextKey = "session-claims"

// ClaimsFromContext extracts the authenticated session claims from the request
// context. Returns nil if the auth middleware hasn't populated the context.
func ClaimsFromContext(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.AccessClaims)
	return claims
}

func newAuthMiddleware(jwtSecret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ParseAccessToken(cookie.Value, jwtSecret)
			if err != nil {
				logger.Debug("access token rejected", "error", err)
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "authentication required")
}

type sessionRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, []*http.Cookie, error)
}

// newSessionRefreshMiddleware keeps browser sessions fresh on every request:
// when the access token is missing or no longer valid and a refresh token is
// present, it refreshes the session against the provider, re-issues hardened
// cookies, and hands the fresh token to downstream handlers. Pure pass-through
// otherwise.
func newSessionRefreshMiddleware(provider sessionRefresher, jwtSecret []byte, production bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if access, err := r.Cookie(auth.AccessTokenCookie); err == nil && access.Value != "" {
				if _, err := auth.ParseAccessToken(access.Value, jwtSecret); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			refresh, err := r.Cookie(auth.RefreshTokenCookie)
			if err != nil || refresh.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, cookies, err := provider.RefreshSession(r.Context(), refresh.Value)
			if err != nil {
				logger.Debug("session refresh failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			for _, c := range cookies {
				http.SetCookie(w, auth.HardenCookie(c, production))
			}

			next.ServeHTTP(w, requestWithSession(r, session))
		})
	}
}

// requestWithSession rewrites the request's Cookie header so downstream
// middleware sees the refreshed tokens.
func requestWithSession(r *http.Request, session *auth.Session) *http.Request {
	clone := r.Clone(r.Context())

	var parts []string
	replaced := false
	for _, c := range r.Cookies() {
		switch c.Name {
		case auth.AccessTokenCookie:
			c.Value = session.AccessToken
			replaced = true
		case auth.RefreshTokenCookie:
			if session.RefreshToken != "" {
				c.Value = session.RefreshToken
			}
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	if !replaced {
		parts = append(parts, auth.AccessTokenCookie+"="+session.AccessToken)
	}

	clone.Header.Set("Cookie", strings.Join(parts, "; "))
	return clone
}

func newSecurityHeadersMiddleware(environment string) func(http.Handler) http.Handler {
	isDev := strings.EqualFold(environment, "development")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
