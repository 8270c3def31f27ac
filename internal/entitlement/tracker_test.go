package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

const (
	today     types.Date = "2024-06-15"
	yesterday types.Date = "2024-06-14"
)

var now = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func freeState(count int, lastReset types.Date) models.SubscriptionState {
	return models.SubscriptionState{
		Plan:       types.PlanFree,
		DailyScans: models.DailyScans{Count: count, LastResetDate: lastReset},
	}
}

func datePtr(d types.Date) *types.Date { return &d }

func TestInitialize(t *testing.T) {
	fresh := Initialize(nil, now)
	assert.Equal(t, types.PlanFree, fresh.Plan)
	assert.Equal(t, models.DailyScans{Count: 0, LastResetDate: today}, fresh.DailyScans)
	assert.Nil(t, fresh.ExpiresAt)
	require.NotNil(t, fresh.CreatedAt)

	again := Initialize(&fresh, now.Add(48*time.Hour))
	assert.Equal(t, fresh, again, "initialize must not touch an existing state")
}

func TestNormalize(t *testing.T) {
	s := Normalize(nil, today)
	assert.Equal(t, types.PlanFree, s.Plan)
	assert.Equal(t, today, s.DailyScans.LastResetDate)

	bogus := models.SubscriptionState{Plan: "platinum", ExpiresAt: datePtr("2030-01-01")}
	s = Normalize(&bogus, today)
	assert.Equal(t, types.PlanFree, s.Plan)
	assert.Nil(t, s.ExpiresAt)
}

func TestCheckExpiration(t *testing.T) {
	tests := []struct {
		name        string
		state       models.SubscriptionState
		wantExpired bool
		wantPlan    types.Plan
	}{
		{
			name:     "free never expires",
			state:    freeState(1, today),
			wantPlan: types.PlanFree,
		},
		{
			name:        "monthly expired yesterday",
			state:       models.SubscriptionState{Plan: types.PlanMonthlyPro, ExpiresAt: datePtr(yesterday), DailyScans: models.DailyScans{Count: 9, LastResetDate: yesterday}},
			wantExpired: true,
			wantPlan:    types.PlanFree,
		},
		{
			name:     "expiring today is still active",
			state:    models.SubscriptionState{Plan: types.PlanYearlyPro, ExpiresAt: datePtr(today)},
			wantPlan: types.PlanYearlyPro,
		},
		{
			name:     "future expiry",
			state:    models.SubscriptionState{Plan: types.PlanMonthlyPro, ExpiresAt: datePtr("2024-07-01")},
			wantPlan: types.PlanMonthlyPro,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expired, s := CheckExpiration(tt.state, today)
			assert.Equal(t, tt.wantExpired, expired)
			assert.Equal(t, tt.wantPlan, s.Plan)
			if tt.wantExpired {
				assert.Nil(t, s.ExpiresAt)
				assert.Equal(t, models.DailyScans{Count: 0, LastResetDate: today}, s.DailyScans)
			}
		})
	}
}

func TestCanPerformScan_Quota(t *testing.T) {
	tests := []struct {
		name  string
		state models.SubscriptionState
		want  ScanAllowance
	}{
		{"fresh day", freeState(0, today), ScanAllowance{true, 2}},
		{"one used", freeState(1, today), ScanAllowance{true, 1}},
		{"limit reached", freeState(2, today), ScanAllowance{false, 0}},
		{"over limit clamps to zero", freeState(5, today), ScanAllowance{false, 0}},
		{"rollover", freeState(2, yesterday), ScanAllowance{true, DailyLimit - 1}},
		{
			"unlimited",
			models.SubscriptionState{Plan: types.PlanYearlyPro, ExpiresAt: datePtr("2025-06-15"), DailyScans: models.DailyScans{Count: 500, LastResetDate: today}},
			ScanAllowance{true, Unlimited},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := CanPerformScan(tt.state, today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanPerformScan_RolloverIsNotCommitted(t *testing.T) {
	state := freeState(2, yesterday)

	allowance, after := CanPerformScan(state, today)
	assert.True(t, allowance.CanScan)
	assert.Equal(t, 2, after.DailyScans.Count)
	assert.Equal(t, yesterday, after.DailyScans.LastResetDate)

	after = IncrementScanCount(after, today)
	assert.Equal(t, models.DailyScans{Count: 1, LastResetDate: today}, after.DailyScans)
}

func TestCanPerformScan_ExpiredPaidPlanFallsBackToQuota(t *testing.T) {
	state := models.SubscriptionState{
		Plan:       types.PlanMonthlyPro,
		ExpiresAt:  datePtr(yesterday),
		DailyScans: models.DailyScans{Count: 40, LastResetDate: today},
	}

	allowance, after := CanPerformScan(state, today)
	assert.Equal(t, ScanAllowance{CanScan: true, RemainingScans: DailyLimit}, allowance)
	assert.Equal(t, types.PlanFree, after.Plan)
	assert.Nil(t, after.ExpiresAt)
}

func TestIncrementScanCount_NoGuard(t *testing.T) {
	s := freeState(2, today)
	s = IncrementScanCount(s, today)
	assert.Equal(t, 3, s.DailyScans.Count)
}

func TestUpdateSubscriptionPlan(t *testing.T) {
	s := freeState(2, today)

	allowance, _ := CanPerformScan(s, today)
	require.False(t, allowance.CanScan)

	monthly, err := UpdateSubscriptionPlan(s, types.PlanMonthlyPro, now)
	require.NoError(t, err)
	assert.Equal(t, types.PlanMonthlyPro, monthly.Plan)
	require.NotNil(t, monthly.ExpiresAt)
	assert.Equal(t, types.Date("2024-07-15"), *monthly.ExpiresAt)
	assert.Equal(t, models.DailyScans{Count: 0, LastResetDate: today}, monthly.DailyScans)
	require.NotNil(t, monthly.UpdatedAt)
	assert.True(t, monthly.UpdatedAt.Equal(now))

	allowance, _ = CanPerformScan(monthly, today)
	assert.Equal(t, ScanAllowance{CanScan: true, RemainingScans: Unlimited}, allowance)

	yearly, err := UpdateSubscriptionPlan(s, types.PlanYearlyPro, now)
	require.NoError(t, err)
	assert.Equal(t, types.Date("2025-06-15"), *yearly.ExpiresAt)

	free, err := UpdateSubscriptionPlan(yearly, types.PlanFree, now)
	require.NoError(t, err)
	assert.Nil(t, free.ExpiresAt)

	// free to free still restarts the counter
	reset, err := UpdateSubscriptionPlan(freeState(2, today), types.PlanFree, now)
	require.NoError(t, err)
	assert.Zero(t, reset.DailyScans.Count)

	_, err = UpdateSubscriptionPlan(s, "gold", now)
	assert.Error(t, err)
}

func TestCanViewPhotos(t *testing.T) {
	assert.False(t, CanViewPhotos(freeState(0, today)))
	assert.True(t, CanViewPhotos(models.SubscriptionState{Plan: types.PlanMonthlyPro}))
	assert.True(t, CanViewPhotos(models.SubscriptionState{Plan: types.PlanYearlyPro}))
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		name     string
		expires  *types.Date
		plan     types.Plan
		want     ExpirationState
		daysLeft int
		message  string
	}{
		{"free", nil, types.PlanFree, ExpirationNone, 0, "No expiration"},
		{"expired", datePtr("2024-06-10"), types.PlanMonthlyPro, ExpirationExpired, 0, "Expired on 2024-06-10"},
		{"today", datePtr(today), types.PlanMonthlyPro, ExpirationExpiringSoon, 0, "Expires today"},
		{"tomorrow", datePtr("2024-06-16"), types.PlanMonthlyPro, ExpirationExpiringSoon, 1, "Expires in 1 day"},
		{"edge of window", datePtr("2024-06-22"), types.PlanMonthlyPro, ExpirationExpiringSoon, 7, "Expires in 7 days"},
		{"active", datePtr("2024-07-15"), types.PlanYearlyPro, ExpirationActive, 30, "Active until 2024-07-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Expiration(models.SubscriptionState{Plan: tt.plan, ExpiresAt: tt.expires}, today, DefaultExpiringSoonDays)
			assert.Equal(t, tt.want, st.Status)
			assert.Equal(t, tt.daysLeft, st.DaysLeft)
			assert.Equal(t, tt.message, st.Message)
		})
	}
}

func TestPlanCatalog(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, "Free", catalog[0].Name)
	assert.Equal(t, int64(19900), catalog[1].Amount)
	assert.Equal(t, "per year", catalog[2].Period)
	assert.Contains(t, catalog[2].Features, "2 months free!")
	assert.Contains(t, catalog[0].Features, "2 daily scans")

	// callers cannot mutate the catalog through a returned value
	d := DetailsFor(types.PlanMonthlyPro)
	d.Features[0] = "tampered"
	assert.Equal(t, "Unlimited scans", DetailsFor(types.PlanMonthlyPro).Features[0])

	assert.Equal(t, "Free", DetailsFor("unknown").Name)
	assert.Equal(t, LimitsFor(types.PlanFree), LimitsFor("unknown"))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "∞", FormatRemaining(Unlimited))
	assert.Equal(t, "0", FormatRemaining(0))
	assert.Equal(t, "2", FormatRemaining(2))
}
