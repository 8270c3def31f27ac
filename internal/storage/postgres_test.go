package storage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func resetTables(t *testing.T, db *PostgresDB) {
	t.Helper()
	_, err := db.Pool().Exec(testContext(t), `TRUNCATE scanned_records, payments, user_profiles`)
	require.NoError(t, err)
}

func TestExactFieldQuery(t *testing.T) {
	tests := []struct {
		name      string
		opts      lookup.FindOptions
		wantLimit int
		wantOrder bool
	}{
		{name: "default limit", opts: lookup.FindOptions{}, wantLimit: 1},
		{name: "negative limit", opts: lookup.FindOptions{Limit: -3}, wantLimit: 1},
		{name: "bound limit", opts: lookup.FindOptions{Limit: 5}, wantLimit: 5},
		{name: "newest first", opts: lookup.FindOptions{OrderByCreatedDesc: true, Limit: 1}, wantLimit: 1, wantOrder: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, limit, err := exactFieldQuery(lookup.FieldIDNumber, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.True(t, strings.HasSuffix(query, "LIMIT $2"))
			assert.NotContains(t, query, "LIMIT 1")
			assert.Equal(t, tt.wantOrder, strings.Contains(query, "ORDER BY created_at DESC"))
		})
	}

	_, _, err := exactFieldQuery("lastName", lookup.FindOptions{})
	assert.Error(t, err)
}

func TestScanRecordRepository_FindAndSearch(t *testing.T) {
	db := testPostgres(t)
	resetTables(t, db)
	repo := NewScanRecordRepository(db)
	ctx := testContext(t)

	older := &models.ScanRecord{IDNumber: "N01-12-345678", IDType: types.IDTypePhilippineDriversLicense,
		FirstName: strPtr("JUAN"), LastName: strPtr("DELA CRUZ")}
	require.NoError(t, repo.Create(ctx, older))
	newer := &models.ScanRecord{IDNumber: "N01-12-345678", IDType: types.IDTypePhilippineDriversLicense,
		FirstName: strPtr("JUAN"), LastName: strPtr("DELA CRUZ"), PhotoID: strPtr("photo-2")}
	require.NoError(t, repo.Create(ctx, newer))
	other := &models.ScanRecord{IDNumber: "1234-5678-9012", IDType: types.IDTypeNationalID,
		FirstName: strPtr("MARIA_100%"), LastName: strPtr("SANTOS")}
	require.NoError(t, repo.Create(ctx, other))

	found, err := repo.FindByExactField(ctx, lookup.FieldIDNumber, "N01-12-345678",
		lookup.FindOptions{OrderByCreatedDesc: true, Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, newer.ID, found.ID)
	assert.Equal(t, "photo-2", *found.PhotoID)

	first, err := repo.FindByExactField(ctx, lookup.FieldIDNumber, "N01-12-345678",
		lookup.FindOptions{OrderByCreatedDesc: true, Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, newer.ID, first.ID)

	missing, err := repo.FindByExactField(ctx, lookup.FieldIDNumber, "nope", lookup.FindOptions{})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.FindByExactField(ctx, "lastName", "SANTOS", lookup.FindOptions{})
	assert.Error(t, err)

	all, err := repo.AllForIDNumber(ctx, "N01-12-345678")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hits, err := repo.Search(ctx, "santos", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, other.ID, hits[0].ID)

	hits, err = repo.Search(ctx, "_100%", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = repo.Search(ctx, "national", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	stats, err := repo.Statistics(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalScans)
	assert.Equal(t, int64(2), stats.IDTypeBreakdown[types.IDTypePhilippineDriversLicense])
	assert.Len(t, stats.RecentScans, 2)
	require.NotNil(t, stats.FirstScan)
	require.NotNil(t, stats.LastScan)
	assert.False(t, stats.LastScan.Before(*stats.FirstScan))
}

func TestProfileRepository_MergesMetadata(t *testing.T) {
	db := testPostgres(t)
	resetTables(t, db)
	repo := NewProfileRepository(db)
	ctx := testContext(t)

	profile, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, repo.UpdateMetadata(ctx, "u1", map[string]json.RawMessage{
		"theme":        json.RawMessage(`"dark"`),
		"subscription": json.RawMessage(`{"plan":"free","dailyScans":{"count":1,"lastResetDate":"2026-03-01"},"expiresAt":null}`),
	}))
	require.NoError(t, repo.UpdateMetadata(ctx, "u1", map[string]json.RawMessage{
		"subscription": json.RawMessage(`{"plan":"yearly_pro","dailyScans":{"count":0,"lastResetDate":"2026-03-02"},"expiresAt":"2027-03-02"}`),
	}))

	profile, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.JSONEq(t, `"dark"`, string(profile.Metadata["theme"]))

	state, err := profile.Subscription()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, types.PlanYearlyPro, state.Plan)
	require.NotNil(t, state.ExpiresAt)
	assert.Equal(t, types.Date("2027-03-02"), *state.ExpiresAt)
}

func TestPaymentRepository_History(t *testing.T) {
	db := testPostgres(t)
	resetTables(t, db)
	repo := NewPaymentRepository(db)
	ctx := testContext(t)

	p := &models.Payment{UserID: "u1", Plan: types.PlanMonthlyPro, Amount: 19900, Currency: "PHP",
		Method: "gcash", Status: "pending", Reference: "src_1", RedirectURL: strPtr("https://pay.example")}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.UpdateStatus(ctx, p.ID, "succeeded"))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "succeeded", got.Status)
	assert.Equal(t, types.PlanMonthlyPro, got.Plan)

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	none, err := repo.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Error(t, repo.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", "failed"))
}
