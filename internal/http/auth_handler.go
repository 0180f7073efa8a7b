package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"kemopage/internal/auth"
)

type authProviderClient interface {
	AuthorizeURL(providerName, redirectURI string) string
	SendMagicLink(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
}

// AuthHandler exposes the login entry points that sit in front of the hosted
// auth provider: social login initiation, magic-link requests, and logout.
type AuthHandler struct {
	provider   authProviderClient
	logger     *slog.Logger
	appOrigin  string
	production bool
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(provider authProviderClient, appOrigin, env string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:   provider,
		logger:     logger,
		appOrigin:  strings.TrimSuffix(appOrigin, "/"),
		production: strings.EqualFold(env, "production"),
	}
}

// Authorize handles GET /auth/authorize?provider=<p>&next=<path>
// Forwards the browser to the provider's consent screen, carrying a validated
// next-path hint on the callback URL.
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	providerName := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("provider")))
	if providerName == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	callback := h.appOrigin + "/auth/callback"
	if next := r.URL.Query().Get("next"); isValidRedirectPath(next) {
		callback += "?next=" + url.QueryEscape(next)
	}

	http.Redirect(w, r, h.provider.AuthorizeURL(providerName, callback), http.StatusTemporaryRedirect)
}

// MagicLink handles POST /api/auth/magiclink
// Asks the provider to email a one-time sign-in link. The response does not
// reveal whether the address has an account.
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	email := strings.TrimSpace(payload.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email address is required")
		return
	}

	err := h.provider.SendMagicLink(r.Context(), email, h.appOrigin+"/auth/callback")
	if errors.Is(err, auth.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
		return
	}
	if err != nil {
		// Deliberately not surfaced: a failure response would allow account
		// enumeration.
		h.logger.Error("magic link request failed", "error", err)
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

// Logout handles POST /api/auth/logout
// Revokes the provider session when possible and clears session cookies either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.AccessTokenCookie); err == nil && cookie.Value != "" {
		if err := h.provider.SignOut(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("provider sign-out failed", "error", err)
		}
	}

	for _, c := range auth.ClearSessionCookies() {
		http.SetCookie(w, auth.HardenCookie(c, h.production))
	}
	w.WriteHeader(http.StatusNoContent)
}
