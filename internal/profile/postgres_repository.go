package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const baseSelect = `
	SELECT profile_id, owner_user_id, display_name, avatar_url, bio, slug, x_username,
	       onboarding_completed, created_at, updated_at
	FROM profiles
`

// FindByOwner looks up the profile owned by the given user identity.
func (r *PostgresRepository) FindByOwner(ctx context.Context, owner uuid.UUID) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, baseSelect+" WHERE owner_user_id = $1", owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find profile by owner: %w", err)
	}
	return &p, nil
}

// FindByID looks up a profile by its public identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, profileID string) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, baseSelect+" WHERE profile_id = $1", profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &p, nil
}

// FindBySlug looks up a profile by its vanity slug.
func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (*Profile, error) {
	var p Profile
	if err := r.db.GetContext(ctx, &p, baseSelect+" WHERE slug = $1", slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile by slug: %w", err)
	}
	return &p, nil
}

// Insert attempts to create the profile row. Unique-constraint violations are
// classified by constraint name so callers can tell the provisioning race apart
// from other failures.
func (r *PostgresRepository) Insert(ctx context.Context, p Profile) error {
	const query = `
		INSERT INTO profiles (profile_id, owner_user_id, display_name, avatar_url, bio, slug, x_username, onboarding_completed, created_at, updated_at)
		VALUES (:profile_id, :owner_user_id, :display_name, :avatar_url, :bio, :slug, :x_username, :onboarding_completed, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		if classified := classifyUniqueViolation(err); classified != nil {
			return classified
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// UpdateDisplayName sets the display name on the owner's profile.
func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, owner uuid.UUID, displayName string) error {
	return r.updateField(ctx, owner, `UPDATE profiles SET display_name = $2, updated_at = now() WHERE owner_user_id = $1`, displayName)
}

// UpdateBio sets or clears the bio on the owner's profile.
func (r *PostgresRepository) UpdateBio(ctx context.Context, owner uuid.UUID, bio *string) error {
	return r.updateField(ctx, owner, `UPDATE profiles SET bio = $2, updated_at = now() WHERE owner_user_id = $1`, bio)
}

// UpdateSlug sets or clears the vanity slug on the owner's profile.
func (r *PostgresRepository) UpdateSlug(ctx context.Context, owner uuid.UUID, slug *string) error {
	return r.updateField(ctx, owner, `UPDATE profiles SET slug = $2, updated_at = now() WHERE owner_user_id = $1`, slug)
}

// CompleteOnboarding marks the owner's onboarding as done.
func (r *PostgresRepository) CompleteOnboarding(ctx context.Context, owner uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE profiles SET onboarding_completed = TRUE, updated_at = now() WHERE owner_user_id = $1`, owner)
	if err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	return requireRow(result)
}

func (r *PostgresRepository) updateField(ctx context.Context, owner uuid.UUID, query string, value any) error {
	result, err := r.db.ExecContext(ctx, query, owner, value)
	if err != nil {
		if classified := classifyUniqueViolation(err); classified != nil {
			return classified
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const uniqueViolation = "23505"

// classifyUniqueViolation maps a Postgres unique violation to the sentinel for
// the violated constraint, or returns nil for any other error.
func classifyUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case "profiles_pkey":
		return ErrIDConflict
	case "profiles_owner_user_id_key":
		return ErrOwnerConflict
	case "profiles_slug_key":
		return ErrSlugConflict
	}
	return nil
}
