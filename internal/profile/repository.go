package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines profile persistence. Insert distinguishes constraint-kind
// failures (ErrOwnerConflict, ErrIDConflict, ErrSlugConflict) from other write
// errors; the provisioning race recovery depends on that distinction.
type Repository interface {
	// FindByOwner returns nil, nil when the owner has no profile yet.
	FindByOwner(ctx context.Context, owner uuid.UUID) (*Profile, error)
	FindByID(ctx context.Context, profileID string) (*Profile, error)
	FindBySlug(ctx context.Context, slug string) (*Profile, error)

	Insert(ctx context.Context, p Profile) error

	UpdateDisplayName(ctx context.Context, owner uuid.UUID, displayName string) error
	UpdateBio(ctx context.Context, owner uuid.UUID, bio *string) error
	UpdateSlug(ctx context.Context, owner uuid.UUID, slug *string) error
	CompleteOnboarding(ctx context.Context, owner uuid.UUID) error
}
