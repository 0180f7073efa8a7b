package auth

import (
	"net/http"
	"time"
)

// Cookie names issued for an established session.
const (
	AccessTokenCookie  = "kemopage_access_token"
	RefreshTokenCookie = "kemopage_refresh_token"
)

const refreshCookieTTL = 30 * 24 * time.Hour

// SessionCookies builds the cookies the provider asks the application to set for
// the given session. Attributes are minimal; HardenCookie fills safe defaults
// before the cookies reach a response.
func SessionCookies(session *Session) []*http.Cookie {
	accessMaxAge := int(time.Until(session.ExpiresAt).Seconds())
	if accessMaxAge < 0 {
		accessMaxAge = 0
	}

	cookies := []*http.Cookie{
		{
			Name:     AccessTokenCookie,
			Value:    session.AccessToken,
			HttpOnly: true,
			MaxAge:   accessMaxAge,
		},
	}

	if session.RefreshToken != "" {
		cookies = append(cookies, &http.Cookie{
			Name:     RefreshTokenCookie,
			Value:    session.RefreshToken,
			HttpOnly: true,
			MaxAge:   int(refreshCookieTTL.Seconds()),
		})
	}

	return cookies
}

// ClearSessionCookies returns expired session cookies for logout responses.
func ClearSessionCookies() []*http.Cookie {
	expired := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
		}
	}
	return []*http.Cookie{expired(AccessTokenCookie), expired(RefreshTokenCookie)}
}

// HardenCookie returns a copy of the cookie with safe attribute defaults: Path=/,
// SameSite=Lax, and Secure in production. SameSite=None always forces Secure.
func HardenCookie(c *http.Cookie, production bool) *http.Cookie {
	hardened := *c

	if hardened.Path == "" {
		hardened.Path = "/"
	}
	if hardened.SameSite == http.SameSiteDefaultMode || hardened.SameSite == 0 {
		hardened.SameSite = http.SameSiteLaxMode
	}
	if production {
		hardened.Secure = true
	}
	if hardened.SameSite == http.SameSiteNoneMode {
		hardened.Secure = true
	}

	return &hardened
}
