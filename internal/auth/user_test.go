package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestUserFromClaimsEmailSignIn(t *testing.T) {
	claims := userInfoClaims{
		Sub:   uuid.NewString(),
		Email: "beast@example.com",
	}

	user, err := userFromClaims(claims)
	if err != nil {
		t.Fatalf("userFromClaims returned error: %v", err)
	}

	identity, ok := user.Identity.(EmailIdentity)
	if !ok {
		t.Fatalf("expected EmailIdentity, got %T", user.Identity)
	}
	if identity.Email != "beast@example.com" {
		t.Fatalf("unexpected identity email %q", identity.Email)
	}
	if identity.Provider() != "email" {
		t.Fatalf("unexpected provider %q", identity.Provider())
	}
}

func TestUserFromClaimsOAuthSignIn(t *testing.T) {
	claims := userInfoClaims{
		Sub:   uuid.NewString(),
		Email: "beast@example.com",
	}
	claims.AppMetadata.Provider = "x"
	claims.UserMetadata.FullName = "Beast Friend"
	claims.UserMetadata.AvatarURL = "https://img.example.com/a.png"
	claims.UserMetadata.UserName = "beast_friend"

	user, err := userFromClaims(claims)
	if err != nil {
		t.Fatalf("userFromClaims returned error: %v", err)
	}

	identity, ok := user.Identity.(OAuthIdentity)
	if !ok {
		t.Fatalf("expected OAuthIdentity, got %T", user.Identity)
	}
	if identity.Provider() != "x" {
		t.Fatalf("unexpected provider %q", identity.Provider())
	}
	if identity.FullName != "Beast Friend" || identity.Username != "beast_friend" {
		t.Fatalf("metadata not carried over: %+v", identity)
	}
}

func TestUserFromClaimsRejectsBadSubject(t *testing.T) {
	claims := userInfoClaims{Sub: "not-a-uuid", Email: "x@example.com"}
	if _, err := userFromClaims(claims); err == nil {
		t.Fatal("expected error for non-uuid subject")
	}
}
