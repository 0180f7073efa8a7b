package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"kemopage/internal/auth"
)

// Service provides profile business logic: first-login provisioning with race
// recovery, and the user-initiated edit operations.
type Service struct {
	repo Repository
	// usernameFields maps a provider name to the metadata field carrying its
	// public username. Providers absent from the map contribute no username.
	usernameFields map[string]string
}

// Option configures the Service during construction.
type Option func(*Service)

// WithUsernameProviders overrides the provider-to-username-field mapping.
func WithUsernameProviders(mapping map[string]string) Option {
	return func(s *Service) {
		if mapping != nil {
			s.usernameFields = mapping
		}
	}
}

// NewService creates a profile Service.
func NewService(repo Repository, opts ...Option) *Service {
	svc := &Service{
		repo: repo,
		usernameFields: map[string]string{
			"x":       "user_name",
			"twitter": "user_name",
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// EnsureProfile returns the profile for the authenticated user, provisioning
// one on first login. The second return value reports whether this call created
// the profile.
//
// Provisioning is optimistic: the insert runs unconditionally and an
// owner-uniqueness violation means a concurrent callback won the race, in which
// case the winner's row is adopted via one fallback read. A primary-key
// collision on the generated id is retried exactly once with a fresh id.
func (s *Service) EnsureProfile(ctx context.Context, user *auth.User) (*Profile, bool, error) {
	existing, err := s.repo.FindByOwner(ctx, user.ID)
	if err != nil {
		return nil, false, fmt.Errorf("find profile: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	p, err := s.newProfile(user)
	if err != nil {
		return nil, false, err
	}

	err = s.repo.Insert(ctx, *p)
	if errors.Is(err, ErrIDConflict) {
		freshID, idErr := NewID()
		if idErr != nil {
			return nil, false, idErr
		}
		p.ID = freshID
		err = s.repo.Insert(ctx, *p)
	}

	if errors.Is(err, ErrOwnerConflict) {
		winner, findErr := s.repo.FindByOwner(ctx, user.ID)
		if findErr != nil {
			return nil, false, fmt.Errorf("adopt concurrent profile: %w", findErr)
		}
		if winner == nil {
			return nil, false, fmt.Errorf("adopt concurrent profile: winner row missing")
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert profile: %w", err)
	}

	return p, true, nil
}

// newProfile applies the provisioning policy: id generation plus display name,
// avatar, and external username derivation from the sign-in identity.
func (s *Service) newProfile(user *auth.User) (*Profile, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Profile{
		ID:          id,
		OwnerUserID: user.ID,
		DisplayName: DefaultDisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch identity := user.Identity.(type) {
	case auth.OAuthIdentity:
		if name := firstNonEmpty(identity.FullName, identity.DisplayName); name != "" {
			p.DisplayName = truncateRunes(name, DisplayNameMaxLen)
		}
		if avatar := firstNonEmpty(identity.AvatarURL, identity.Picture); avatar != "" {
			p.AvatarURL = &avatar
		}
		if field, ok := s.usernameFields[strings.ToLower(identity.Provider())]; ok {
			if username := usernameField(identity, field); username != "" {
				p.XUsername = &username
			}
		}
	default:
		if local, _, found := strings.Cut(user.Email, "@"); found && local != "" {
			p.DisplayName = truncateRunes(local, DisplayNameMaxLen)
		}
	}

	return p, nil
}

// UpdateDisplayName validates and persists a new display name (1-50 characters
// after trimming).
func (s *Service) UpdateDisplayName(ctx context.Context, owner uuid.UUID, displayName string) error {
	trimmed := strings.TrimSpace(displayName)
	if trimmed == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) > DisplayNameMaxLen {
		return fmt.Errorf("%w: display name must be at most %d characters", ErrValidation, DisplayNameMaxLen)
	}
	return s.repo.UpdateDisplayName(ctx, owner, trimmed)
}

// UpdateBio validates and persists a new bio; an empty bio is stored as null.
func (s *Service) UpdateBio(ctx context.Context, owner uuid.UUID, bio string) error {
	trimmed := strings.TrimSpace(bio)
	if utf8.RuneCountInString(trimmed) > BioMaxLen {
		return fmt.Errorf("%w: bio must be at most %d characters", ErrValidation, BioMaxLen)
	}

	var value *string
	if trimmed != "" {
		value = &trimmed
	}
	return s.repo.UpdateBio(ctx, owner, value)
}

// UpdateSlug validates and persists a new vanity slug; an empty slug clears it.
// A taken slug surfaces as ErrSlugConflict.
func (s *Service) UpdateSlug(ctx context.Context, owner uuid.UUID, slug string) error {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return s.repo.UpdateSlug(ctx, owner, nil)
	}
	if !ValidSlug(trimmed) {
		return fmt.Errorf("%w: slug must match %s", ErrValidation, slugPattern)
	}
	return s.repo.UpdateSlug(ctx, owner, &trimmed)
}

// CompleteOnboarding marks the owner's onboarding as done.
func (s *Service) CompleteOnboarding(ctx context.Context, owner uuid.UUID) error {
	return s.repo.CompleteOnboarding(ctx, owner)
}

// GetByOwner returns the owner's profile.
func (s *Service) GetByOwner(ctx context.Context, owner uuid.UUID) (*Profile, error) {
	p, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetByID returns a profile by public identifier.
func (s *Service) GetByID(ctx context.Context, profileID string) (*Profile, error) {
	return s.repo.FindByID(ctx, profileID)
}

// GetBySlug returns a profile by vanity slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Profile, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func usernameField(identity auth.OAuthIdentity, field string) string {
	switch field {
	case "user_name":
		return identity.Username
	case "preferred_username":
		return identity.PreferredUsername
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
