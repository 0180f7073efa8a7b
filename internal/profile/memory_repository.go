package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository stores profiles in an in-process map, ideal for local
// development or tests. It enforces the same uniqueness invariants as the
// Postgres schema, including the constraint-kind error contract.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]Profile
	byOwner  map[uuid.UUID]string
	slugToID map[string]string
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:     make(map[string]Profile),
		byOwner:  make(map[uuid.UUID]string),
		slugToID: make(map[string]string),
	}
}

// FindByOwner returns the owner's profile, or nil when none exists.
func (r *InMemoryRepository) FindByOwner(_ context.Context, owner uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOwner[owner]
	if !ok {
		return nil, nil
	}
	p := r.byID[id]
	return &p, nil
}

// FindByID returns a profile by public identifier.
func (r *InMemoryRepository) FindByID(_ context.Context, profileID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// FindBySlug returns a profile by vanity slug.
func (r *InMemoryRepository) FindBySlug(_ context.Context, slug string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugToID[slug]
	if !ok {
		return nil, ErrNotFound
	}
	p := r.byID[id]
	return &p, nil
}

// Insert stores a new profile, enforcing owner, id, and slug uniqueness.
func (r *InMemoryRepository) Insert(_ context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[p.OwnerUserID]; exists {
		return ErrOwnerConflict
	}
	if _, exists := r.byID[p.ID]; exists {
		return ErrIDConflict
	}
	if p.Slug != nil {
		if _, exists := r.slugToID[*p.Slug]; exists {
			return ErrSlugConflict
		}
	}

	r.byID[p.ID] = p
	r.byOwner[p.OwnerUserID] = p.ID
	if p.Slug != nil {
		r.slugToID[*p.Slug] = p.ID
	}
	return nil
}

// UpdateDisplayName sets the display name on the owner's profile.
func (r *InMemoryRepository) UpdateDisplayName(_ context.Context, owner uuid.UUID, displayName string) error {
	return r.mutate(owner, func(p *Profile) error {
		p.DisplayName = displayName
		return nil
	})
}

// UpdateBio sets or clears the bio on the owner's profile.
func (r *InMemoryRepository) UpdateBio(_ context.Context, owner uuid.UUID, bio *string) error {
	return r.mutate(owner, func(p *Profile) error {
		p.Bio = bio
		return nil
	})
}

// UpdateSlug sets or clears the vanity slug, enforcing slug uniqueness.
func (r *InMemoryRepository) UpdateSlug(_ context.Context, owner uuid.UUID, slug *string) error {
	return r.mutate(owner, func(p *Profile) error {
		if slug != nil {
			if takenBy, exists := r.slugToID[*slug]; exists && takenBy != p.ID {
				return ErrSlugConflict
			}
		}
		if p.Slug != nil {
			delete(r.slugToID, *p.Slug)
		}
		p.Slug = slug
		if slug != nil {
			r.slugToID[*slug] = p.ID
		}
		return nil
	})
}

// CompleteOnboarding marks the owner's onboarding as done.
func (r *InMemoryRepository) CompleteOnboarding(_ context.Context, owner uuid.UUID) error {
	return r.mutate(owner, func(p *Profile) error {
		p.OnboardingCompleted = true
		return nil
	})
}

func (r *InMemoryRepository) mutate(owner uuid.UUID, fn func(*Profile) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOwner[owner]
	if !ok {
		return ErrNotFound
	}

	p := r.byID[id]
	if err := fn(&p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	r.byID[id] = p
	return nil
}
