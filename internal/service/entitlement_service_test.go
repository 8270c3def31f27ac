package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id-scanner/internal/entitlement"
	apperrors "github.com/id-scanner/internal/errors"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEntitlements(store *memProfileStore) *EntitlementService {
	s := NewEntitlementService(store, 0)
	s.now = fixedClock(testNow)
	return s
}

func paidState(plan types.Plan, expires types.Date) models.SubscriptionState {
	return models.SubscriptionState{
		Plan:       plan,
		DailyScans: models.DailyScans{Count: 7, LastResetDate: types.DateOf(testNow)},
		ExpiresAt:  &expires,
	}
}

func TestEntitlementInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a fresh free plan", func(t *testing.T) {
		store := newMemProfileStore()
		state, err := newTestEntitlements(store).Initialize(ctx, "u1")
		require.NoError(t, err)

		assert.Equal(t, types.PlanFree, state.Plan)
		assert.Equal(t, 0, state.DailyScans.Count)
		assert.Equal(t, types.Date("2026-03-10"), state.DailyScans.LastResetDate)
		assert.Nil(t, state.ExpiresAt)
		require.NotNil(t, store.state("u1"))
	})

	t.Run("keeps an existing state", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", paidState(types.PlanYearlyPro, "2026-12-01"))

		state, err := newTestEntitlements(store).Initialize(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, types.PlanYearlyPro, state.Plan)
		assert.Equal(t, 0, store.writes)
	})
}

func TestEntitlementGetSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("missing profile reads as free without writing", func(t *testing.T) {
		store := newMemProfileStore()
		view, err := newTestEntitlements(store).GetSubscription(ctx, "nobody")
		require.NoError(t, err)

		assert.Equal(t, types.PlanFree, view.State.Plan)
		assert.Equal(t, entitlement.DailyLimit, view.RemainingScans)
		assert.Equal(t, "2", view.Remaining)
		assert.True(t, view.CanScan)
		assert.False(t, view.Downgraded)
		assert.Equal(t, 0, store.writes)
	})

	t.Run("expired plan is downgraded and persisted", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", paidState(types.PlanMonthlyPro, "2026-03-09"))

		view, err := newTestEntitlements(store).GetSubscription(ctx, "u1")
		require.NoError(t, err)

		assert.True(t, view.Downgraded)
		assert.Equal(t, types.PlanFree, view.State.Plan)
		assert.Equal(t, types.PlanFree, store.state("u1").Plan)
		assert.Nil(t, store.state("u1").ExpiresAt)
	})

	t.Run("plan expiring today is still active", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", paidState(types.PlanMonthlyPro, "2026-03-10"))

		view, err := newTestEntitlements(store).GetSubscription(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, view.Downgraded)
		assert.Equal(t, entitlement.Unlimited, view.RemainingScans)
		assert.Equal(t, "∞", view.Remaining)
	})

	t.Run("malformed subscription reads as free", func(t *testing.T) {
		store := newMemProfileStore()
		store.profiles["u1"] = map[string]json.RawMessage{
			models.SubscriptionMetadataKey: json.RawMessage(`"not an object"`),
		}
		view, err := newTestEntitlements(store).GetSubscription(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, types.PlanFree, view.State.Plan)
	})

	t.Run("store read failure is a database error", func(t *testing.T) {
		store := newMemProfileStore()
		store.failReads = true
		_, err := newTestEntitlements(store).GetSubscription(ctx, "u1")
		require.Error(t, err)
		assert.Equal(t, "DATABASE_ERROR", apperrors.Categorize(err).Code)
	})
}

func TestEntitlementCanPerformScan(t *testing.T) {
	ctx := context.Background()
	today := types.DateOf(testNow)

	tests := []struct {
		name          string
		state         *models.SubscriptionState
		wantCanScan   bool
		wantRemaining int
	}{
		{name: "no state", state: nil, wantCanScan: true, wantRemaining: 2},
		{
			name:          "one scan used today",
			state:         &models.SubscriptionState{Plan: types.PlanFree, DailyScans: models.DailyScans{Count: 1, LastResetDate: today}},
			wantCanScan:   true,
			wantRemaining: 1,
		},
		{
			name:          "limit reached",
			state:         &models.SubscriptionState{Plan: types.PlanFree, DailyScans: models.DailyScans{Count: 2, LastResetDate: today}},
			wantCanScan:   false,
			wantRemaining: 0,
		},
		{
			name:          "limit reached yesterday",
			state:         &models.SubscriptionState{Plan: types.PlanFree, DailyScans: models.DailyScans{Count: 2, LastResetDate: "2026-03-09"}},
			wantCanScan:   true,
			wantRemaining: 1,
		},
		{
			name:          "pro plan",
			state:         func() *models.SubscriptionState { s := paidState(types.PlanYearlyPro, "2027-01-01"); return &s }(),
			wantCanScan:   true,
			wantRemaining: entitlement.Unlimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemProfileStore()
			if tt.state != nil {
				store.put("u1", *tt.state)
			}
			allowance, _, err := newTestEntitlements(store).CanPerformScan(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCanScan, allowance.CanScan)
			assert.Equal(t, tt.wantRemaining, allowance.RemainingScans)
			assert.Equal(t, 0, store.writes, "rollover must not be persisted")
		})
	}
}

func TestEntitlementIncrementScanCount(t *testing.T) {
	ctx := context.Background()

	t.Run("counts on a new day start from one", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", models.SubscriptionState{Plan: types.PlanFree, DailyScans: models.DailyScans{Count: 2, LastResetDate: "2026-03-09"}})

		state, err := newTestEntitlements(store).IncrementScanCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, state.DailyScans.Count)
		assert.Equal(t, types.Date("2026-03-10"), store.state("u1").DailyScans.LastResetDate)
	})

	t.Run("pro plans are counted too", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", paidState(types.PlanMonthlyPro, "2026-04-01"))

		state, err := newTestEntitlements(store).IncrementScanCount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 8, state.DailyScans.Count)
	})

	t.Run("write failure is a persistence error", func(t *testing.T) {
		store := newMemProfileStore()
		store.failWrites = true

		_, err := newTestEntitlements(store).IncrementScanCount(ctx, "u1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrPersistence))
	})
}

func TestEntitlementUpdatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("monthly expires in thirty days", func(t *testing.T) {
		store := newMemProfileStore()
		state, err := newTestEntitlements(store).UpdatePlan(ctx, "u1", types.PlanMonthlyPro)
		require.NoError(t, err)

		require.NotNil(t, state.ExpiresAt)
		assert.Equal(t, types.Date("2026-04-09"), *state.ExpiresAt)
		require.NotNil(t, state.CreatedAt)
		assert.Equal(t, types.PlanMonthlyPro, store.state("u1").Plan)
	})

	t.Run("yearly expires in 365 days", func(t *testing.T) {
		store := newMemProfileStore()
		state, err := newTestEntitlements(store).UpdatePlan(ctx, "u1", types.PlanYearlyPro)
		require.NoError(t, err)
		assert.Equal(t, types.Date("2027-03-10"), *state.ExpiresAt)
	})

	t.Run("free clears expiry and counter", func(t *testing.T) {
		store := newMemProfileStore()
		store.put("u1", paidState(types.PlanYearlyPro, "2026-12-01"))

		state, err := newTestEntitlements(store).UpdatePlan(ctx, "u1", types.PlanFree)
		require.NoError(t, err)
		assert.Nil(t, state.ExpiresAt)
		assert.Equal(t, 0, state.DailyScans.Count)
	})

	t.Run("unknown plan is rejected without a write", func(t *testing.T) {
		store := newMemProfileStore()
		_, err := newTestEntitlements(store).UpdatePlan(ctx, "u1", types.Plan("platinum"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidPlan))
		assert.Equal(t, 0, store.writes)
	})
}

func TestEntitlementExpirationAndPhotos(t *testing.T) {
	ctx := context.Background()
	store := newMemProfileStore()
	store.put("soon", paidState(types.PlanMonthlyPro, "2026-03-13"))
	store.put("expired", paidState(types.PlanMonthlyPro, "2026-03-01"))
	svc := newTestEntitlements(store)

	status, err := svc.ExpirationStatus(ctx, "soon")
	require.NoError(t, err)
	assert.Equal(t, entitlement.ExpirationExpiringSoon, status.Status)
	assert.Equal(t, 3, status.DaysLeft)

	canView, err := svc.CanViewPhotos(ctx, "soon")
	require.NoError(t, err)
	assert.True(t, canView)

	canView, err = svc.CanViewPhotos(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, canView)
	assert.Equal(t, types.PlanMonthlyPro, store.state("expired").Plan, "photo check must not persist")
}
