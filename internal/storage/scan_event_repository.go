package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// ScanEventRepository appends scan events to ClickHouse
type ScanEventRepository struct {
	db *ClickHouseDB
}

// NewScanEventRepository creates a new scan event repository
func NewScanEventRepository(db *ClickHouseDB) *ScanEventRepository {
	return &ScanEventRepository{db: db}
}

// Record appends one event, assigning its ID when empty
func (r *ScanEventRepository) Record(ctx context.Context, event *models.ScanEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	eventID, err := uuid.Parse(event.EventID)
	if err != nil {
		return fmt.Errorf("invalid scan event id %q: %w", event.EventID, err)
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `INSERT INTO scan_events
		(event_id, user_id, plan, scan_source, id_type, verification_status, parse_success, scanned_at)`)
	if err != nil {
		return fmt.Errorf("failed to prepare scan event batch: %w", err)
	}
	err = batch.Append(
		eventID,
		event.UserID,
		string(event.Plan),
		string(event.ScanSource),
		string(event.IDType),
		event.VerificationStatus.String(),
		event.ParseSuccess,
		event.ScannedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send scan event: %w", err)
	}
	return nil
}

// DailyCounts returns per-day, per-type scan counts since since
func (r *ScanEventRepository) DailyCounts(ctx context.Context, since time.Time) ([]models.DailyScanCount, error) {
	rows, err := r.db.Conn().Query(ctx, `
		SELECT day, id_type, sum(scans)
		FROM scan_events_daily
		WHERE day >= ?
		GROUP BY day, id_type
		ORDER BY day, id_type`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily scan counts: %w", err)
	}
	defer rows.Close()

	counts := []models.DailyScanCount{}
	for rows.Next() {
		var c models.DailyScanCount
		var idType string
		if err := rows.Scan(&c.Day, &idType, &c.Scans); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		c.IDType = types.IDType(idType)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
