package profile

import (
	"testing"

	"github.com/google/uuid"

	"kemopage/internal/auth"
)

func TestSanitizeSlug(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"whitespace to underscore", "John Doe", "john_doe"},
		{"below minimum length", "ab", ""},
		{"leading digits stripped", "123abc", "abc"},
		{"mixed case and hyphen", "VALID_Name-1", "valid_name_1"},
		{"empty input", "", ""},
		{"symbols stripped", "p@w!print", "pwprint"},
		{"leading underscore stripped", "_under", "under"},
		{"too long discarded", "abcdefghijklmnopqrstuvwxyz", ""},
		{"already compliant", "beast_01", "beast_01"},
		{"only invalid characters", "@@@", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeSlug(tc.input)
			if got != tc.want {
				t.Fatalf("SanitizeSlug(%q) = %q, want %q", tc.input, got, tc.want)
			}
			if got != "" && !ValidSlug(got) {
				t.Fatalf("SanitizeSlug(%q) produced non-compliant slug %q", tc.input, got)
			}
		})
	}
}

func TestSuggestSlugPrefersProviderUsername(t *testing.T) {
	user := &auth.User{
		ID:    uuid.New(),
		Email: "fallback@example.com",
		Identity: auth.OAuthIdentity{
			Name:              "x",
			Username:          "Beast-Friend",
			PreferredUsername: "other@example.com",
			DisplayName:       "Someone Else",
		},
	}

	if got := SuggestSlug(user); got != "beast_friend" {
		t.Fatalf("expected provider username to win, got %q", got)
	}
}

func TestSuggestSlugFallsBackToPreferredUsernameLocalPart(t *testing.T) {
	user := &auth.User{
		ID:    uuid.New(),
		Email: "fallback@example.com",
		Identity: auth.OAuthIdentity{
			Name:              "google",
			PreferredUsername: "wild.beast@gmail.com",
		},
	}

	if got := SuggestSlug(user); got != "wildbeast" {
		t.Fatalf("expected preferred-username local part, got %q", got)
	}
}

func TestSuggestSlugUsesEmailLocalPartForMagicLink(t *testing.T) {
	user := &auth.User{
		ID:       uuid.New(),
		Email:    "quiet_fox@example.com",
		Identity: auth.EmailIdentity{Email: "quiet_fox@example.com"},
	}

	if got := SuggestSlug(user); got != "quiet_fox" {
		t.Fatalf("expected email local part, got %q", got)
	}
}

func TestSuggestSlugReturnsEmptyWhenNothingUsable(t *testing.T) {
	user := &auth.User{
		ID:       uuid.New(),
		Email:    "ab@example.com",
		Identity: auth.EmailIdentity{Email: "ab@example.com"},
	}

	if got := SuggestSlug(user); got != "" {
		t.Fatalf("expected no suggestion, got %q", got)
	}
}
