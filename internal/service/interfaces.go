// Package service runs the scan, entitlement, upgrade and history flows on
// top of the pure parser, tracker and orchestrator packages and their
// external collaborators.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/id-scanner/internal/models"
)

// ProfileStore is the auth collaborator's per-user metadata bag
type ProfileStore interface {
	// GetProfile returns nil, nil when the user has no profile yet
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// UpdateMetadata merges patch into the stored metadata
	UpdateMetadata(ctx context.Context, userID string, patch map[string]json.RawMessage) error
}

// ScanEventRecorder appends one analytics event per performed scan
type ScanEventRecorder interface {
	Record(ctx context.Context, event *models.ScanEvent) error
}

// PhotoURLSigner turns a stored photo ID into a viewable URL
type PhotoURLSigner interface {
	PhotoURL(ctx context.Context, photoID string) (string, error)
}

// PaymentStore keeps the payment history
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	UpdateStatus(ctx context.Context, id, status string) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Payment, error)
}

// RecordStore is the read side of the record store used for history views
type RecordStore interface {
	ListRecent(ctx context.Context, limit int) ([]*models.ScanRecord, error)
	Search(ctx context.Context, term string, limit int) ([]*models.ScanRecord, error)
	AllForIDNumber(ctx context.Context, idNumber string) ([]*models.ScanRecord, error)
	Statistics(ctx context.Context, recent int) (*models.ScanStatistics, error)
}

// ScanAnalytics reads aggregated scan events
type ScanAnalytics interface {
	DailyCounts(ctx context.Context, since time.Time) ([]models.DailyScanCount, error)
}

// JSONCache caches JSON-encodable values by key
type JSONCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}
