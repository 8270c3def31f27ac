package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/id-scanner/internal/errors"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/models"
)

const (
	// DefaultRecentLimit is the page size of Recent when none is given
	DefaultRecentLimit = 50
	// DefaultSearchLimit caps search results
	DefaultSearchLimit = 100
	// statisticsRecent is the number of recent records embedded in statistics
	statisticsRecent = 10

	statisticsCacheKey = "stats:summary"
)

// ExportFormat selects the export encoding
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts json and csv, case-insensitively. Empty means json.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return ExportJSON, nil
	case "csv":
		return ExportCSV, nil
	}
	return "", apperrors.NewInvalidParameterError("format", fmt.Sprintf("unsupported export format %q", s))
}

// ContentType returns the MIME type of the export format
func (f ExportFormat) ContentType() string {
	if f == ExportCSV {
		return "text/csv"
	}
	return "application/json"
}

// HistoryEntry is a stored record as shown to one user
type HistoryEntry struct {
	*models.ScanRecord
	PhotoURL *string `json:"photoUrl,omitempty"`
}

// HistoryService serves the record history views
type HistoryService struct {
	records      RecordStore
	entitlements *EntitlementService
	photos       PhotoURLSigner
	analytics    ScanAnalytics
	cache        JSONCache
	now          func() time.Time
	logger       *logging.Logger
}

// NewHistoryService creates a history service. photos, analytics and
// cache may be nil.
func NewHistoryService(records RecordStore, entitlements *EntitlementService, photos PhotoURLSigner, analytics ScanAnalytics, cache JSONCache) *HistoryService {
	return &HistoryService{
		records:      records,
		entitlements: entitlements,
		photos:       photos,
		analytics:    analytics,
		cache:        cache,
		now:          time.Now,
		logger:       logging.GetGlobalLogger().WithField("component", "history"),
	}
}

// Recent returns the newest records. A non-positive limit uses DefaultRecentLimit.
func (s *HistoryService) Recent(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	records, err := s.records.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list records", err)
	}
	return s.present(ctx, userID, records)
}

// Search matches term case-insensitively against names, ID number and ID type
func (s *HistoryService) Search(ctx context.Context, userID, term string) ([]HistoryEntry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.NewInvalidParameterError("q", "search term is required")
	}
	records, err := s.records.Search(ctx, term, DefaultSearchLimit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("search records", err)
	}
	return s.present(ctx, userID, records)
}

// AllForIDNumber returns every stored record of idNumber, newest first
func (s *HistoryService) AllForIDNumber(ctx context.Context, userID, idNumber string) ([]HistoryEntry, error) {
	idNumber = strings.TrimSpace(idNumber)
	if idNumber == "" {
		return nil, apperrors.NewInvalidParameterError("idNumber", "ID number is required")
	}
	records, err := s.records.AllForIDNumber(ctx, idNumber)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get records", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewNotFoundError("record", idNumber)
	}
	return s.present(ctx, userID, records)
}

// Statistics summarizes the record store for userID. The summary is cached
// plan-neutral; the photo policy is applied to every answer.
func (s *HistoryService) Statistics(ctx context.Context, userID string) (*models.ScanStatistics, error) {
	canView, err := s.entitlements.CanViewPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.summary(ctx)
	if err != nil {
		return nil, err
	}
	if canView {
		return stats, nil
	}

	redacted := *stats
	redacted.RecentScans = withoutPhotos(stats.RecentScans)
	return &redacted, nil
}

// summary reads the statistics through the cache. Cache failures fall
// through to the store.
func (s *HistoryService) summary(ctx context.Context) (*models.ScanStatistics, error) {
	if s.cache != nil {
		var cached models.ScanStatistics
		hit, err := s.cache.Get(ctx, statisticsCacheKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Statistics cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	stats, err := s.records.Statistics(ctx, statisticsRecent)
	if err != nil {
		return nil, apperrors.NewDatabaseError("statistics", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statisticsCacheKey, stats); err != nil {
			s.logger.WithError(err).Warn("Statistics cache write failed")
		}
	}
	return stats, nil
}

// DailyCounts returns per-day scan counts of the last days days
func (s *HistoryService) DailyCounts(ctx context.Context, days int) ([]models.DailyScanCount, error) {
	if s.analytics == nil {
		return nil, apperrors.NewServiceUnavailableError("scan analytics")
	}
	if days <= 0 {
		days = 30
	}
	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	counts, err := s.analytics.DailyCounts(ctx, since)
	if err != nil {
		return nil, apperrors.NewDatabaseError("daily counts", err)
	}
	return counts, nil
}

var exportHeader = []string{"id", "idType", "idNumber", "firstName", "lastName", "middleInitial", "birthday", "createdAt"}

// Export encodes the whole record history in format. Photo IDs are only
// included for plans that may view photos.
func (s *HistoryService) Export(ctx context.Context, userID string, format ExportFormat) ([]byte, error) {
	canView, err := s.entitlements.CanViewPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListRecent(ctx, 0)
	if err != nil {
		return nil, apperrors.NewDatabaseError("export records", err)
	}
	if !canView {
		records = withoutPhotos(records)
	}

	switch format {
	case ExportCSV:
		return encodeCSV(records)
	case ExportJSON, "":
		if records == nil {
			records = []*models.ScanRecord{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, apperrors.NewInternalError("encode export", err)
		}
		return data, nil
	}
	return nil, apperrors.NewInvalidParameterError("format", fmt.Sprintf("unsupported export format %q", format))
}

func encodeCSV(records []*models.ScanRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, apperrors.NewInternalError("encode export", err)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			string(r.IDType),
			r.IDNumber,
			deref(r.FirstName),
			deref(r.LastName),
			deref(r.MiddleInitial),
			deref(r.Birthday),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.NewInternalError("encode export", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewInternalError("encode export", err)
	}
	return buf.Bytes(), nil
}

// present applies the photo policy of userID to records
func (s *HistoryService) present(ctx context.Context, userID string, records []*models.ScanRecord) ([]HistoryEntry, error) {
	canView, err := s.entitlements.CanViewPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	if !canView {
		for _, r := range withoutPhotos(records) {
			entries = append(entries, HistoryEntry{ScanRecord: r})
		}
		return entries, nil
	}
	for _, r := range records {
		entry := HistoryEntry{ScanRecord: r}
		if r.PhotoID != nil && s.photos != nil {
			url, err := s.photos.PhotoURL(ctx, *r.PhotoID)
			if err != nil {
				s.logger.WithError(err).WithField("photoId", *r.PhotoID).Warn("Could not sign photo URL")
			} else {
				entry.PhotoURL = &url
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// withoutPhotos returns copies of records with PhotoID cleared. The
// stored records are left untouched.
func withoutPhotos(records []*models.ScanRecord) []*models.ScanRecord {
	if records == nil {
		return nil
	}
	out := make([]*models.ScanRecord, len(records))
	for i, r := range records {
		hidden := *r
		hidden.PhotoID = nil
		out[i] = &hidden
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
