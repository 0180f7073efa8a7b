package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"kemopage/internal/auth"
	"kemopage/internal/profile"
)

// Redirect targets composed against the trusted app origin.
const (
	loginPath      = "/login"
	onboardingPath = "/first-step"
	homePath       = "/mypage"
)

type sessionExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*auth.Session, []*http.Cookie, error)
	FetchUser(ctx context.Context, accessToken string) (*auth.User, error)
}

type profileProvisioner interface {
	EnsureProfile(ctx context.Context, user *auth.User) (*profile.Profile, bool, error)
}

// CallbackHandler terminates the provider's redirect-based login flow: it
// exchanges the one-time code for a session, ensures exactly one profile exists
// for the identity, and routes the browser to the next page. Every failure exit
// is a redirect carrying a stable error code; nothing is surfaced as a raw
// error to the browser.
type CallbackHandler struct {
	provider   sessionExchanger
	profiles   profileProvisioner
	logger     *slog.Logger
	appOrigin  string
	production bool
}

// NewCallbackHandler creates a CallbackHandler.
func NewCallbackHandler(provider sessionExchanger, profiles profileProvisioner, appOrigin, env string, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		provider:   provider,
		profiles:   profiles,
		logger:     logger,
		appOrigin:  strings.TrimSuffix(appOrigin, "/"),
		production: strings.EqualFold(env, "production"),
	}
}

// Handle serves GET /auth/callback.
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	next := query.Get("next")
	if !isValidRedirectPath(next) {
		next = ""
	}

	// Provider error (user cancelled, provider rejected): no exchange attempted.
	if providerErr := query.Get("error"); providerErr != "" {
		code := "auth"
		if providerErr == "access_denied" {
			code = "access_denied"
		}
		h.logger.Warn("callback: provider error", "error", providerErr, "description", query.Get("error_description"))
		h.redirectWithError(w, r, next, code, query.Get("error_description"))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirectWithError(w, r, "", "code_missing", "")
		return
	}

	session, cookies, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("callback: code exchange failed", "error", err)
		h.redirectWithError(w, r, "", "exchange_failed", "")
		return
	}

	user, err := h.provider.FetchUser(r.Context(), session.AccessToken)
	if err != nil || user == nil {
		h.logger.Error("callback: user resolution failed", "error", err)
		h.redirectWithError(w, r, "", "user_not_found", "")
		return
	}

	prof, isNewUser, err := h.profiles.EnsureProfile(r.Context(), user)
	if err != nil {
		h.logger.Error("callback: profile provisioning failed", "user_id", user.ID, "error", err)
		h.redirectWithError(w, r, "", "profile_creation_failed", "")
		return
	}

	target := homePath
	switch {
	case next != "":
		target = next
	case isNewUser:
		target = onboardingPath
	}

	// Forward exactly the cookies produced by the exchange, hardened. Inbound
	// request cookies are never echoed.
	for _, c := range cookies {
		http.SetCookie(w, auth.HardenCookie(c, h.production))
	}

	h.logger.Info("callback: login completed", "user_id", user.ID, "profile_id", prof.ID, "new_user", isNewUser)
	http.Redirect(w, r, h.appOrigin+target, http.StatusTemporaryRedirect)
}

// redirectWithError redirects to the login page (or the validated next path)
// with a machine-readable error code.
func (h *CallbackHandler) redirectWithError(w http.ResponseWriter, r *http.Request, next, code, description string) {
	target := loginPath
	if next != "" {
		target = next
	}

	params := url.Values{}
	params.Set("error", code)
	if description != "" {
		params.Set("error_description", description)
	}

	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}
	http.Redirect(w, r, h.appOrigin+target+separator+params.Encode(), http.StatusTemporaryRedirect)
}
