package cleaning

import (
	"context"
	"errors"

	"github.com/alexisbanda/operations-management-system/docstore"
)

// =============================================================================
// SETTINGS - The SystemConfig singleton (settings/main)
// =============================================================================

type SettingsRepository struct {
	store docstore.Store
}

func NewSettingsRepository(store docstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// Get returns the saved configuration, or DefaultConfig when none has been
// saved yet. The default is not persisted.
func (r *SettingsRepository) Get(ctx context.Context) (SystemConfig, error) {
	doc, err := r.store.Get(ctx, CollectionSettings, SettingsDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return SystemConfig{}, err
	}
	cfg := DefaultConfig()
	if _, err := decodeFields(doc.Fields, &cfg, false); err != nil {
		return SystemConfig{}, err
	}
	return cfg, nil
}

// Save replaces the configuration.
func (r *SettingsRepository) Save(ctx context.Context, cfg SystemConfig) (SystemConfig, error) {
	if err := validateStruct(cfg); err != nil {
		return cfg, err
	}
	if err := r.store.Set(ctx, CollectionSettings, SettingsDocID, cfg.fields()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// =============================================================================
// PROFILES - users/{subject}
// =============================================================================

type ProfileRepository struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Get returns the profile stored under subject, or a NotFoundError.
func (r *ProfileRepository) Get(ctx context.Context, subject string) (Profile, error) {
	var p Profile
	doc, err := r.store.Get(ctx, CollectionUsers, subject)
	if err != nil {
		return p, notFound("profile", subject, err)
	}
	if err := decodeDocument(doc, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Save creates or replaces the profile of p.Subject.
func (r *ProfileRepository) Save(ctx context.Context, p Profile) (Profile, error) {
	if p.Subject == "" {
		return p, invalid("id", "subject is required")
	}
	if !p.Role.Valid() {
		return p, invalid("role", "unknown role %q", p.Role)
	}
	if err := r.store.Set(ctx, CollectionUsers, p.Subject, p.fields()); err != nil {
		return p, err
	}
	return p, nil
}
