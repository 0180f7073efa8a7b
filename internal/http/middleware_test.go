package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kemopage/internal/auth"
)

var testJWTSecret = []byte("middleware-test-secret")

func signTestAccessToken(t *testing.T, secret []byte, sub string, expiresAt time.Time) string {
	t.Helper()

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub":   sub,
		"email": "beast@example.com",
		"exp":   expiresAt.Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddlewareRejectsMissingCookie(t *testing.T) {
	mw := newAuthMiddleware(testJWTSecret, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run without a session")
	})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	mw := newAuthMiddleware(testJWTSecret, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run with a forged token")
	})

	forged := signTestAccessToken(t, []byte("some-other-secret"), uuid.NewString(), time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: forged})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	mw := newAuthMiddleware(testJWTSecret, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run with an expired token")
	})

	expired := signTestAccessToken(t, testJWTSecret, uuid.NewString(), time.Now().Add(-time.Minute))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: expired})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareInjectsClaims(t *testing.T) {
	mw := newAuthMiddleware(testJWTSecret, discardLogger())
	userID := uuid.New()

	var seen *auth.AccessClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	token := signTestAccessToken(t, testJWTSecret, userID.String(), time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("expected claims in the downstream context")
	}
	if seen.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, seen.UserID)
	}
	if seen.Email != "beast@example.com" {
		t.Fatalf("unexpected email claim %q", seen.Email)
	}
}

type fakeRefresher struct {
	session      *auth.Session
	refreshErr   error
	refreshCalls int
	lastToken    string
}

func (f *fakeRefresher) RefreshSession(_ context.Context, refreshToken string) (*auth.Session, []*http.Cookie, error) {
	f.refreshCalls++
	f.lastToken = refreshToken
	if f.refreshErr != nil {
		return nil, nil, f.refreshErr
	}
	return f.session, auth.SessionCookies(f.session), nil
}

func TestSessionRefreshSkipsValidAccessToken(t *testing.T) {
	refresher := &fakeRefresher{}
	mw := newSessionRefreshMiddleware(refresher, testJWTSecret, false, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	token := signTestAccessToken(t, testJWTSecret, uuid.NewString(), time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "still-good"})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if refresher.refreshCalls != 0 {
		t.Fatalf("expected no refresh for a valid session, got %d calls", refresher.refreshCalls)
	}
}

func TestSessionRefreshPassThroughWithoutRefreshCookie(t *testing.T) {
	refresher := &fakeRefresher{}
	mw := newSessionRefreshMiddleware(refresher, testJWTSecret, false, discardLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	if refresher.refreshCalls != 0 {
		t.Fatal("expected no refresh attempt without a refresh cookie")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies on pass-through")
	}
}

func TestSessionRefreshReissuesCookiesAndRewritesRequest(t *testing.T) {
	fresh := signTestAccessToken(t, testJWTSecret, uuid.NewString(), time.Now().Add(time.Hour))
	refresher := &fakeRefresher{session: &auth.Session{
		AccessToken:  fresh,
		RefreshToken: "rotated-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	mw := newSessionRefreshMiddleware(refresher, testJWTSecret, false, discardLogger())

	var downstreamAccess, downstreamRefresh string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(auth.AccessTokenCookie); err == nil {
			downstreamAccess = c.Value
		}
		if c, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
			downstreamRefresh = c.Value
		}
		w.WriteHeader(http.StatusOK)
	})

	expired := signTestAccessToken(t, testJWTSecret, uuid.NewString(), time.Now().Add(-time.Minute))
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: expired})
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "old-refresh"})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if refresher.refreshCalls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.refreshCalls)
	}
	if refresher.lastToken != "old-refresh" {
		t.Fatalf("expected refresh with stored token, got %q", refresher.lastToken)
	}

	if downstreamAccess != fresh {
		t.Fatal("expected downstream request to carry the refreshed access token")
	}
	if downstreamRefresh != "rotated-refresh" {
		t.Fatalf("expected downstream request to carry the rotated refresh token, got %q", downstreamRefresh)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected re-issued session cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.Path != "/" || c.SameSite != http.SameSiteLaxMode {
			t.Fatalf("expected hardened cookie %s", c.Name)
		}
	}
}

func TestSessionRefreshFailureFallsThrough(t *testing.T) {
	refresher := &fakeRefresher{refreshErr: errors.New("refresh token revoked")}
	mw := newSessionRefreshMiddleware(refresher, testJWTSecret, false, discardLogger())

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshTokenCookie, Value: "revoked"})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if !reached {
		t.Fatal("expected pass-through after failed refresh")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies after failed refresh")
	}
}

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	newSecurityHeadersMiddleware("development")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected nosniff header")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("expected no HSTS in development")
	}

	rec = httptest.NewRecorder()
	newSecurityHeadersMiddleware("production")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS outside development")
	}
}
