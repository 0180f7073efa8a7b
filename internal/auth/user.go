package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// User is the authenticated identity resolved from the hosted auth provider for
// the duration of one request. It is never persisted by this service.
type User struct {
	ID       uuid.UUID
	Email    string
	Identity Identity
}

// Identity carries the per-provider sign-in metadata, decoded once at the
// provider boundary rather than probed field by field.
type Identity interface {
	Provider() string
}

// EmailIdentity is a passwordless (magic link) sign-in.
type EmailIdentity struct {
	Email string
}

// Provider implements Identity.
func (EmailIdentity) Provider() string { return "email" }

// OAuthIdentity is a social sign-in with provider-supplied profile metadata.
type OAuthIdentity struct {
	Name              string
	FullName          string
	DisplayName       string
	AvatarURL         string
	Picture           string
	Username          string
	PreferredUsername string
}

// Provider implements Identity.
func (o OAuthIdentity) Provider() string { return o.Name }

// userInfoClaims mirrors the provider's userinfo payload.
type userInfoClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
	UserMetadata struct {
		FullName          string `json:"full_name"`
		Name              string `json:"name"`
		AvatarURL         string `json:"avatar_url"`
		Picture           string `json:"picture"`
		UserName          string `json:"user_name"`
		PreferredUsername string `json:"preferred_username"`
	} `json:"user_metadata"`
}

func userFromClaims(claims userInfoClaims) (*User, error) {
	id, err := uuid.Parse(claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject %q: %w", claims.Sub, err)
	}

	user := &User{ID: id, Email: claims.Email}

	provider := claims.AppMetadata.Provider
	if provider == "" || provider == "email" {
		user.Identity = EmailIdentity{Email: claims.Email}
		return user, nil
	}

	user.Identity = OAuthIdentity{
		Name:              provider,
		FullName:          claims.UserMetadata.FullName,
		DisplayName:       claims.UserMetadata.Name,
		AvatarURL:         claims.UserMetadata.AvatarURL,
		Picture:           claims.UserMetadata.Picture,
		Username:          claims.UserMetadata.UserName,
		PreferredUsername: claims.UserMetadata.PreferredUsername,
	}
	return user, nil
}
