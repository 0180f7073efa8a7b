package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrRateLimited indicates the provider refused a request due to rate limiting.
var ErrRateLimited = errors.New("auth provider rate limited")

// Session is the opaque token pair issued by the hosted auth provider.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is a client for the hosted authentication provider. It terminates the
// redirect-based login flow (code-for-session exchange), resolves the current
// user, refreshes sessions, and relays magic-link requests.
type Provider struct {
	oidcProvider *oidc.Provider
	oauth        *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	client       *http.Client
	baseURL      string
}

// NewProvider discovers the issuer's endpoints and builds a Provider.
func NewProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*Provider, error) {
	oidcProvider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	return &Provider{
		oidcProvider: oidcProvider,
		oauth:        config,
		verifier:     oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
		client:       &http.Client{Timeout: 10 * time.Second},
		baseURL:      issuerURL,
	}, nil
}

// AuthorizeURL builds the provider's consent URL for the named upstream identity
// provider. The provider runs its own PKCE flow, so no local state is attached.
// redirectURI overrides the configured callback, carrying the next-path hint.
func (p *Provider) AuthorizeURL(providerName, redirectURI string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("provider", providerName)}
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}
	return p.oauth.AuthCodeURL("", opts...)
}

// ExchangeCode exchanges a one-time authorization code for a session. The second
// return value is the list of cookies the provider asks the application to set.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*Session, []*http.Cookie, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("token exchange: %w", err)
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		if _, err := p.verifier.Verify(ctx, rawIDToken); err != nil {
			return nil, nil, fmt.Errorf("verify id_token: %w", err)
		}
	}

	session := &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	return session, SessionCookies(session), nil
}

// FetchUser resolves the authenticated user behind an access token via the
// provider's userinfo endpoint.
func (p *Provider) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	info, err := p.oidcProvider.UserInfo(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}

	var claims userInfoClaims
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse userinfo claims: %w", err)
	}
	if claims.Sub == "" {
		claims.Sub = info.Subject
	}
	if claims.Email == "" {
		claims.Email = info.Email
	}

	return userFromClaims(claims)
}

// RefreshSession trades a refresh token for a fresh session.
func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (*Session, []*http.Cookie, error) {
	source := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh session: %w", err)
	}

	session := &Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	return session, SessionCookies(session), nil
}

// SendMagicLink asks the provider to email a one-time sign-in link. The provider
// owns delivery; redirectTo is where the link's callback should land.
func (p *Provider) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	payload, err := json.Marshal(map[string]any{
		"email":       email,
		"create_user": true,
		"redirect_to": redirectTo,
	})
	if err != nil {
		return fmt.Errorf("encode magic link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/otp", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build magic link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send magic link: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send magic link: provider returned %d", resp.StatusCode)
	}
	return nil
}

// SignOut revokes the session behind the access token.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// An already-dead session is fine; logout clears cookies regardless.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("sign out: provider returned %d", resp.StatusCode)
	}
	return nil
}
