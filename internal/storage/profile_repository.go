package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/id-scanner/internal/models"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository stores user profiles and their metadata bag in Postgres
type ProfileRepository struct {
	db *PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *PostgresDB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the profile of userID, or nil when it does not exist
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	var metadata []byte

	err := r.db.Pool().QueryRow(ctx, `
		SELECT id, metadata, created_at, updated_at
		FROM user_profiles
		WHERE id = $1`, userID,
	).Scan(&profile.ID, &metadata, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &profile.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile metadata: %w", err)
		}
	}
	return &profile, nil
}

// UpdateMetadata merges patch into the metadata of userID, creating the
// profile when needed. Keys absent from patch are left untouched.
func (r *ProfileRepository) UpdateMetadata(ctx context.Context, userID string, patch map[string]json.RawMessage) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx, `
		INSERT INTO user_profiles (id, metadata, created_at, updated_at)
		VALUES ($1, $2::jsonb, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET metadata = user_profiles.metadata || EXCLUDED.metadata,
		    updated_at = NOW()`, userID, string(data))
	if err != nil {
		return fmt.Errorf("failed to update profile metadata: %w", err)
	}
	return nil
}
