package profile

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Profile is the durable public record owned by one authenticated identity,
// created exactly once at first login and never deleted by this service.
type Profile struct {
	ID                  string    `db:"profile_id" json:"profileId"`
	OwnerUserID         uuid.UUID `db:"owner_user_id" json:"-"`
	DisplayName         string    `db:"display_name" json:"displayName"`
	AvatarURL           *string   `db:"avatar_url" json:"avatarUrl,omitempty"`
	Bio                 *string   `db:"bio" json:"bio,omitempty"`
	Slug                *string   `db:"slug" json:"slug,omitempty"`
	XUsername           *string   `db:"x_username" json:"xUsername,omitempty"`
	OnboardingCompleted bool      `db:"onboarding_completed" json:"onboardingCompleted"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Field limits enforced on writes and mirrored by database check constraints.
const (
	DisplayNameMaxLen = 50
	BioMaxLen         = 160
)

// DefaultDisplayName is used when no usable name can be derived at provisioning.
const DefaultDisplayName = "名無しのけもの"

var (
	// ErrNotFound is returned when no profile matches the lookup.
	ErrNotFound = errors.New("profile not found")
	// ErrValidation wraps all input validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrOwnerConflict signals the unique owner_user_id constraint: a concurrent
	// request already provisioned a profile for this identity.
	ErrOwnerConflict = errors.New("profile already exists for owner")
	// ErrIDConflict signals a primary-key collision on the generated profile id.
	ErrIDConflict = errors.New("profile id already taken")
	// ErrSlugConflict signals the unique slug constraint.
	ErrSlugConflict = errors.New("slug already taken")
)
