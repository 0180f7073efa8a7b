package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gocache "github.com/patrickmn/go-cache"

	"kemopage/internal/auth"
	"kemopage/internal/profile"
)

type userFetcher interface {
	FetchUser(ctx context.Context, accessToken string) (*auth.User, error)
}

const (
	publicProfileCacheTTL = 30 * time.Second
	cacheCleanupInterval  = 5 * time.Minute
)

// ProfileHandler exposes the public profile pages and the authenticated
// profile-edit endpoints.
type ProfileHandler struct {
	service  *profile.Service
	provider userFetcher
	cache    *gocache.Cache
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(service *profile.Service, provider userFetcher, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:  service,
		provider: provider,
		cache:    gocache.New(publicProfileCacheTTL, cacheCleanupInterval),
		logger:   logger,
	}
}

// publicProfile is the read-only view served on public pages; it never exposes
// the owner identity or onboarding state.
type publicProfile struct {
	ProfileID   string  `json:"profileId"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	XUsername   *string `json:"xUsername,omitempty"`
}

func publicView(p *profile.Profile) publicProfile {
	return publicProfile{
		ProfileID:   p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		Slug:        p.Slug,
		XUsername:   p.XUsername,
	}
}

// PublicByID handles GET /p/{profileID} — anyone can view, no session needed.
func (h *ProfileHandler) PublicByID(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	h.servePublic(w, r, "id:"+profileID, func() (*profile.Profile, error) {
		return h.service.GetByID(r.Context(), profileID)
	})
}

// PublicBySlug handles GET /s/{slug}.
func (h *ProfileHandler) PublicBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !profile.ValidSlug(slug) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	h.servePublic(w, r, "slug:"+slug, func() (*profile.Profile, error) {
		return h.service.GetBySlug(r.Context(), slug)
	})
}

func (h *ProfileHandler) servePublic(w http.ResponseWriter, r *http.Request, cacheKey string, lookup func() (*profile.Profile, error)) {
	if cached, ok := h.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	p, err := lookup()
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error("public profile lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	view := publicView(p)
	h.cache.Set(cacheKey, view, gocache.DefaultExpiration)
	writeJSON(w, http.StatusOK, view)
}

// Me handles GET /api/profile — the authenticated user's own profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	p, err := h.service.GetByOwner(r.Context(), claims.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PATCH /api/profile — partial update of displayName, bio, slug.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	raw := map[string]json.RawMessage{}
	if err := decodeJSONBody(w, r, &raw); err != nil {
		writeJSONError(w, err)
		return
	}

	var payload struct {
		DisplayName *string `json:"displayName"`
		Bio         *string `json:"bio"`
		Slug        *string `json:"slug"`
	}
	if err := decodeInto(raw, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := raw["displayName"]; ok {
		name := ""
		if payload.DisplayName != nil {
			name = *payload.DisplayName
		}
		if err := h.service.UpdateDisplayName(r.Context(), claims.UserID, name); err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	if _, ok := raw["bio"]; ok {
		bio := ""
		if payload.Bio != nil {
			bio = *payload.Bio
		}
		if err := h.service.UpdateBio(r.Context(), claims.UserID, bio); err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	if _, ok := raw["slug"]; ok {
		slug := ""
		if payload.Slug != nil {
			slug = *payload.Slug
		}
		if err := h.service.UpdateSlug(r.Context(), claims.UserID, slug); err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	// Public views may be cached under the old slug or display name.
	h.cache.Flush()

	p, err := h.service.GetByOwner(r.Context(), claims.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CompleteOnboarding handles POST /api/profile/onboarding.
func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	if err := h.service.CompleteOnboarding(r.Context(), claims.UserID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SlugSuggestion handles GET /api/profile/slug-suggestion — a best-effort slug
// candidate derived from the sign-in identity, never persisted. An empty
// suggestion means no usable candidate exists.
func (h *ProfileHandler) SlugSuggestion(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	cookie, err := r.Cookie(auth.AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		unauthorized(w)
		return
	}

	user, err := h.provider.FetchUser(r.Context(), cookie.Value)
	if err != nil {
		h.logger.Error("slug suggestion: user resolution failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not resolve identity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"suggestion": profile.SuggestSlug(user)})
}

func (h *ProfileHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "profile not found")
	case errors.Is(err, profile.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrSlugConflict):
		writeError(w, http.StatusConflict, "slug already taken")
	default:
		h.logger.Error("profile service error", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}
