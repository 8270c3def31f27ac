package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/id-scanner/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	profileKeyPrefix = "profile:"
	// reserved hash fields; metadata keys never start with "__"
	profileCreatedField = "__created_at"
	profileUpdatedField = "__updated_at"
)

// RedisProfileStore keeps each profile as a Redis hash: one field per
// metadata key holding its JSON value, plus two timestamp fields
type RedisProfileStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisProfileStore creates a profile store on cache's client
func NewRedisProfileStore(cache *RedisCache) *RedisProfileStore {
	return &RedisProfileStore{client: cache.Client(), now: time.Now}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

// GetProfile returns the profile of userID, or nil when it does not exist
func (s *RedisProfileStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	fields, err := s.client.HGetAll(ctx, profileKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	profile := &models.UserProfile{ID: userID, Metadata: map[string]json.RawMessage{}}
	for field, value := range fields {
		switch field {
		case profileCreatedField:
			profile.CreatedAt, _ = time.Parse(time.RFC3339Nano, value)
		case profileUpdatedField:
			profile.UpdatedAt, _ = time.Parse(time.RFC3339Nano, value)
		default:
			if !json.Valid([]byte(value)) {
				return nil, fmt.Errorf("profile %s field %s holds invalid JSON", userID, field)
			}
			profile.Metadata[field] = json.RawMessage(value)
		}
	}
	return profile, nil
}

// UpdateMetadata writes the keys of patch, leaving other keys untouched
func (s *RedisProfileStore) UpdateMetadata(ctx context.Context, userID string, patch map[string]json.RawMessage) error {
	values := make(map[string]interface{}, len(patch)+1)
	for field, raw := range patch {
		if strings.HasPrefix(field, "__") {
			return fmt.Errorf("metadata key %q is reserved", field)
		}
		values[field] = string(raw)
	}
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	values[profileUpdatedField] = stamp

	key := profileKey(userID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, profileCreatedField, stamp)
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update profile metadata: %w", err)
	}
	return nil
}
