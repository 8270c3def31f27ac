package storage

import (
	"net/url"
	"testing"
	"time"

	"github.com/id-scanner/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoStore_PresignsPathStyleURL(t *testing.T) {
	store, err := NewPhotoStore(testContext(t), &config.StorageConfig{
		Bucket:          "id-photos",
		Region:          "ap-southeast-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		PresignTTL:      10 * time.Minute,
	})
	require.NoError(t, err)

	raw, err := store.PhotoURL(testContext(t), "photo-123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/id-photos/photo-123", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-Credential"), "test-key/")
}

func TestPhotoStore_DefaultTTL(t *testing.T) {
	store, err := NewPhotoStore(testContext(t), &config.StorageConfig{
		Bucket:          "id-photos",
		Region:          "ap-southeast-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "k",
		SecretAccessKey: "s",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, store.ttl)
}
