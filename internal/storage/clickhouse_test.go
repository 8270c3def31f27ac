package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id-scanner/internal/config"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// testClickHouse connects to the ClickHouse named by TEST_CLICKHOUSE_*
// variables and skips the test when it is unavailable or in -short mode
func testClickHouse(t *testing.T) *ClickHouseDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	cfg := &config.ClickHouseConfig{
		Host:     envOr("TEST_CLICKHOUSE_HOST", "localhost"),
		Port:     envOr("TEST_CLICKHOUSE_PORT", "9000"),
		Database: envOr("TEST_CLICKHOUSE_DB", "default"),
		User:     envOr("TEST_CLICKHOUSE_USER", "default"),
		Password: envOr("TEST_CLICKHOUSE_PASSWORD", ""),
	}
	db, err := NewClickHouseDB(testContext(t), cfg)
	if err != nil {
		t.Skipf("Skipping test - ClickHouse not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := RunClickHouseMigrations(testContext(t), db, "../../migrations/clickhouse"); err != nil {
		t.Skipf("Skipping test - migrations failed: %v", err)
	}
	return db
}

func TestClickHouseDB_Ping(t *testing.T) {
	db := testClickHouse(t)
	assert.NoError(t, db.Ping(testContext(t)))
}

func TestScanEventRepository_RecordAndCount(t *testing.T) {
	db := testClickHouse(t)
	ctx := testContext(t)
	repo := NewScanEventRepository(db)

	// a day far in the past keeps earlier runs out of the window
	day := time.Date(2001, 2, 3, 10, 0, 0, 0, time.UTC)
	idType := types.IDType("Test ID " + time.Now().Format("150405.000000"))

	for i := 0; i < 3; i++ {
		event := &models.ScanEvent{
			UserID:             "u1",
			Plan:               types.PlanFree,
			ScanSource:         types.SourceQR,
			IDType:             idType,
			VerificationStatus: types.StatusNewID,
			ParseSuccess:       true,
			ScannedAt:          day.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Record(ctx, event))
		assert.NotEmpty(t, event.EventID)
	}

	counts, err := repo.DailyCounts(ctx, day.Truncate(24*time.Hour))
	require.NoError(t, err)

	var total uint64
	for _, c := range counts {
		if c.IDType == idType {
			assert.Equal(t, day.Truncate(24*time.Hour), c.Day.UTC())
			total += c.Scans
		}
	}
	assert.Equal(t, uint64(3), total)
}

func TestScanEventRepository_RejectsBadEventID(t *testing.T) {
	repo := NewScanEventRepository(nil)

	err := repo.Record(testContext(t), &models.ScanEvent{EventID: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid scan event id")
}
