package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
	"github.com/jackc/pgx/v5"
)

const scanRecordColumns = `id, user_id, id_number, id_type, first_name, last_name,
	middle_initial, birthday, photo_id, created_at, updated_at`

// lookupColumns lists the fields FindByExactField may filter on
var lookupColumns = map[string]string{
	lookup.FieldIDNumber: "id_number",
}

// ScanRecordRepository is the Postgres record store
type ScanRecordRepository struct {
	db *PostgresDB
}

// NewScanRecordRepository creates a new scan record repository
func NewScanRecordRepository(db *PostgresDB) *ScanRecordRepository {
	return &ScanRecordRepository{db: db}
}

// FindByExactField returns the first record whose field equals value, or
// nil when none matches. opts.Limit caps the rows considered and defaults to 1.
func (r *ScanRecordRepository) FindByExactField(ctx context.Context, field, value string, opts lookup.FindOptions) (*models.ScanRecord, error) {
	query, limit, err := exactFieldQuery(field, opts)
	if err != nil {
		return nil, err
	}

	record, err := scanRecord(r.db.Pool().QueryRow(ctx, query, value, limit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find record by %s: %w", field, err)
	}
	return record, nil
}

func exactFieldQuery(field string, opts lookup.FindOptions) (string, int, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return "", 0, fmt.Errorf("field %q cannot be looked up", field)
	}

	query := `SELECT ` + scanRecordColumns + ` FROM scanned_records WHERE ` + column + ` = $1`
	if opts.OrderByCreatedDesc {
		query += ` ORDER BY created_at DESC`
	}
	query += ` LIMIT $2`

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	return query, limit, nil
}

// ListRecent returns the newest records first. A limit of zero or less returns all.
func (r *ScanRecordRepository) ListRecent(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	query := `SELECT ` + scanRecordColumns + ` FROM scanned_records ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return r.queryRecords(ctx, "list records", query, args...)
}

// Search matches term case-insensitively as a substring of the names,
// ID number or ID type, newest first
func (r *ScanRecordRepository) Search(ctx context.Context, term string, limit int) ([]*models.ScanRecord, error) {
	query := `
		SELECT ` + scanRecordColumns + `
		FROM scanned_records
		WHERE first_name ILIKE $1 ESCAPE '\'
		   OR last_name ILIKE $1 ESCAPE '\'
		   OR id_number ILIKE $1 ESCAPE '\'
		   OR id_type ILIKE $1 ESCAPE '\'
		ORDER BY created_at DESC`
	args := []interface{}{"%" + escapeLike(term) + "%"}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.queryRecords(ctx, "search records", query, args...)
}

// AllForIDNumber returns every record stored under idNumber, newest first
func (r *ScanRecordRepository) AllForIDNumber(ctx context.Context, idNumber string) ([]*models.ScanRecord, error) {
	query := `SELECT ` + scanRecordColumns + ` FROM scanned_records WHERE id_number = $1 ORDER BY created_at DESC`
	return r.queryRecords(ctx, "list records for id number", query, idNumber)
}

// Statistics summarizes the record store, including the recent newest records
func (r *ScanRecordRepository) Statistics(ctx context.Context, recent int) (*models.ScanStatistics, error) {
	stats := &models.ScanStatistics{IDTypeBreakdown: map[types.IDType]int64{}}

	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM scanned_records`,
	).Scan(&stats.TotalScans, &stats.FirstScan, &stats.LastScan)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx,
		`SELECT COALESCE(NULLIF(id_type, ''), 'Unknown'), COUNT(*) FROM scanned_records GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to group records by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var idType string
		var count int64
		if err := rows.Scan(&idType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type breakdown: %w", err)
		}
		stats.IDTypeBreakdown[types.IDType(idType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read type breakdown: %w", err)
	}

	if recent > 0 {
		stats.RecentScans, err = r.ListRecent(ctx, recent)
		if err != nil {
			return nil, err
		}
	}
	if stats.RecentScans == nil {
		stats.RecentScans = []*models.ScanRecord{}
	}
	return stats, nil
}

// Create stores a new record, assigning its ID and timestamps
func (r *ScanRecordRepository) Create(ctx context.Context, record *models.ScanRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.IDType == "" {
		record.IDType = types.IDTypeUnknown
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO scanned_records (`+scanRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID,
		record.UserID,
		record.IDNumber,
		string(record.IDType),
		record.FirstName,
		record.LastName,
		record.MiddleInitial,
		record.Birthday,
		record.PhotoID,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

func (r *ScanRecordRepository) queryRecords(ctx context.Context, op, query string, args ...interface{}) ([]*models.ScanRecord, error) {
	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	records := []*models.ScanRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*models.ScanRecord, error) {
	var rec models.ScanRecord
	var idType string
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.IDNumber,
		&idType,
		&rec.FirstName,
		&rec.LastName,
		&rec.MiddleInitial,
		&rec.Birthday,
		&rec.PhotoID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.IDType = types.IDType(idType)
	return &rec, nil
}

// escapeLike escapes the ILIKE wildcards in term
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
