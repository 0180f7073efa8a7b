package profile

import (
	"regexp"
	"strings"

	"kemopage/internal/auth"
)

// Slugs are 3-20 characters, start with a lowercase letter, and contain only
// lowercase letters, digits, and underscores.
var (
	slugPattern    = regexp.MustCompile(`^[a-z][a-z0-9_]{2,19}$`)
	slugSeparators = regexp.MustCompile(`[\s-]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9_]`)
	slugLeading    = regexp.MustCompile(`^[^a-z]+`)
)

// ValidSlug reports whether s is a policy-compliant slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// SuggestSlug derives a best-effort slug candidate from the identity signals, in
// priority order: provider username, preferred-username local part, generic
// name, email local part. An empty result means "no suggestion".
func SuggestSlug(user *auth.User) string {
	var candidate string

	if identity, ok := user.Identity.(auth.OAuthIdentity); ok {
		switch {
		case identity.Username != "":
			candidate = identity.Username
		case identity.PreferredUsername != "":
			candidate, _, _ = strings.Cut(identity.PreferredUsername, "@")
		case identity.DisplayName != "":
			candidate = identity.DisplayName
		}
	}

	if candidate == "" && user.Email != "" {
		candidate, _, _ = strings.Cut(user.Email, "@")
	}

	return SanitizeSlug(candidate)
}

// SanitizeSlug coerces input toward the slug policy: lowercase, whitespace and
// hyphens collapsed to underscores, other characters stripped, leading
// characters removed until a lowercase letter starts the string. Candidates
// outside the 3-20 length window are discarded and "" is returned.
func SanitizeSlug(input string) string {
	if input == "" {
		return ""
	}

	slug := strings.ToLower(input)
	slug = slugSeparators.ReplaceAllString(slug, "_")
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugLeading.ReplaceAllString(slug, "")

	if len(slug) < 3 || len(slug) > 20 {
		return ""
	}
	return slug
}
