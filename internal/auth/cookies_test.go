package auth

import (
	"net/http"
	"testing"
	"time"
)

func TestHardenCookieFillsDefaults(t *testing.T) {
	raw := &http.Cookie{Name: AccessTokenCookie, Value: "tok"}

	hardened := HardenCookie(raw, false)

	if hardened.Path != "/" {
		t.Fatalf("expected default path /, got %q", hardened.Path)
	}
	if hardened.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", hardened.SameSite)
	}
	if hardened.Secure {
		t.Fatal("expected Secure to stay false outside production")
	}
	if raw.Path != "" {
		t.Fatal("expected original cookie to be untouched")
	}
}

func TestHardenCookieKeepsExplicitAttributes(t *testing.T) {
	raw := &http.Cookie{Name: "x", Value: "y", Path: "/auth", SameSite: http.SameSiteStrictMode}

	hardened := HardenCookie(raw, false)

	if hardened.Path != "/auth" {
		t.Fatalf("expected explicit path preserved, got %q", hardened.Path)
	}
	if hardened.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected explicit SameSite preserved, got %v", hardened.SameSite)
	}
}

func TestHardenCookieForcesSecureInProduction(t *testing.T) {
	hardened := HardenCookie(&http.Cookie{Name: "x", Value: "y"}, true)
	if !hardened.Secure {
		t.Fatal("expected Secure in production")
	}
}

func TestHardenCookieForcesSecureForSameSiteNone(t *testing.T) {
	hardened := HardenCookie(&http.Cookie{Name: "x", Value: "y", SameSite: http.SameSiteNoneMode}, false)
	if !hardened.Secure {
		t.Fatal("expected Secure whenever SameSite=None")
	}
}

func TestSessionCookiesCarryBothTokens(t *testing.T) {
	session := &Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	cookies := SessionCookies(session)
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	if cookies[0].Name != AccessTokenCookie || cookies[0].Value != "access" {
		t.Fatalf("unexpected access cookie %+v", cookies[0])
	}
	if cookies[1].Name != RefreshTokenCookie || cookies[1].Value != "refresh" {
		t.Fatalf("unexpected refresh cookie %+v", cookies[1])
	}
	if !cookies[0].HttpOnly || !cookies[1].HttpOnly {
		t.Fatal("session cookies must be HttpOnly")
	}
}

func TestSessionCookiesOmitEmptyRefreshToken(t *testing.T) {
	cookies := SessionCookies(&Session{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour)})
	if len(cookies) != 1 {
		t.Fatalf("expected access cookie only, got %d cookies", len(cookies))
	}
}

func TestClearSessionCookiesExpireBoth(t *testing.T) {
	for _, c := range ClearSessionCookies() {
		if c.MaxAge != -1 {
			t.Fatalf("expected MaxAge -1 on %s, got %d", c.Name, c.MaxAge)
		}
		if c.Value != "" {
			t.Fatalf("expected empty value on %s", c.Name)
		}
	}
}
