package entitlement

import (
	"fmt"
	"time"

	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// ScanAllowance is the answer to "may this user scan right now"
type ScanAllowance struct {
	CanScan        bool `json:"canScan"`
	RemainingScans int  `json:"remainingScans"`
}

// NewState returns a fresh free-plan state created at now
func NewState(now time.Time) models.SubscriptionState {
	created := now.UTC()
	return models.SubscriptionState{
		Plan:       types.PlanFree,
		DailyScans: models.DailyScans{Count: 0, LastResetDate: types.DateOf(now)},
		ExpiresAt:  nil,
		CreatedAt:  &created,
		UpdatedAt:  &created,
	}
}

// Initialize returns state unchanged if one exists, otherwise a fresh free-plan state
func Initialize(state *models.SubscriptionState, now time.Time) models.SubscriptionState {
	if state != nil {
		return *state
	}
	return NewState(now)
}

// Normalize applies the reader defaults: a missing state reads as a fresh
// free plan and an unknown plan reads as free.
func Normalize(state *models.SubscriptionState, today types.Date) models.SubscriptionState {
	if state == nil {
		return models.SubscriptionState{
			Plan:       types.PlanFree,
			DailyScans: models.DailyScans{LastResetDate: today},
		}
	}
	s := *state
	if !s.Plan.Valid() {
		s.Plan = types.PlanFree
		s.ExpiresAt = nil
	}
	return s
}

// CheckExpiration downgrades an expired paid plan to free. A plan is
// expired once today is strictly after its expiry date. The returned
// bool reports whether a downgrade happened.
func CheckExpiration(state models.SubscriptionState, today types.Date) (bool, models.SubscriptionState) {
	if state.Plan == types.PlanFree || state.ExpiresAt == nil {
		return false, state
	}
	if !today.After(*state.ExpiresAt) {
		return false, state
	}

	state.Plan = types.PlanFree
	state.ExpiresAt = nil
	state.DailyScans = models.DailyScans{Count: 0, LastResetDate: today}
	return true, state
}

// CanPerformScan reports whether one more scan is allowed today. It applies
// CheckExpiration first; the returned state carries a downgrade if one
// happened and must be persisted by the caller. A day rollover is reported
// but not committed; IncrementScanCount commits it.
func CanPerformScan(state models.SubscriptionState, today types.Date) (ScanAllowance, models.SubscriptionState) {
	_, state = CheckExpiration(state, today)

	limits := LimitsFor(state.Plan)
	if limits.Unlimited {
		return ScanAllowance{CanScan: true, RemainingScans: Unlimited}, state
	}

	if state.DailyScans.LastResetDate != today {
		return ScanAllowance{CanScan: true, RemainingScans: limits.DailyScans - 1}, state
	}

	remaining := limits.DailyScans - state.DailyScans.Count
	if remaining < 0 {
		remaining = 0
	}
	return ScanAllowance{CanScan: remaining > 0, RemainingScans: remaining}, state
}

// IncrementScanCount records one performed scan, resetting the counter
// first when the stored day is not today. It does not enforce the quota.
func IncrementScanCount(state models.SubscriptionState, today types.Date) models.SubscriptionState {
	if state.DailyScans.LastResetDate != today {
		state.DailyScans = models.DailyScans{Count: 0, LastResetDate: today}
	}
	state.DailyScans.Count++
	return state
}

// UpdateSubscriptionPlan moves state to plan as of now. Paid plans expire
// 30 or 365 days from today; free has no expiry. The daily counter restarts.
func UpdateSubscriptionPlan(state models.SubscriptionState, plan types.Plan, now time.Time) (models.SubscriptionState, error) {
	if !plan.Valid() {
		return state, fmt.Errorf("unknown plan %q", plan)
	}

	today := types.DateOf(now)
	updated := now.UTC()

	state.Plan = plan
	state.UpdatedAt = &updated
	state.ExpiresAt = nil
	if days, ok := durationDays(plan); ok {
		expires := today.AddDays(days)
		state.ExpiresAt = &expires
	}
	state.DailyScans = models.DailyScans{Count: 0, LastResetDate: today}
	if state.CreatedAt == nil {
		state.CreatedAt = &updated
	}
	return state, nil
}

// CanViewPhotos reports whether the plan of state includes photo access
func CanViewPhotos(state models.SubscriptionState) bool {
	return LimitsFor(state.Plan).ShowPhoto
}

// ExpirationState classifies how close a plan is to its expiry
type ExpirationState string

const (
	// ExpirationNone applies to plans that never expire
	ExpirationNone         ExpirationState = "none"
	ExpirationActive       ExpirationState = "active"
	ExpirationExpiringSoon ExpirationState = "expiring_soon"
	ExpirationExpired      ExpirationState = "expired"
)

// DefaultExpiringSoonDays is the window in which a paid plan counts as expiring soon
const DefaultExpiringSoonDays = 7

// ExpirationStatus describes the expiry of a plan for display
type ExpirationStatus struct {
	Status    ExpirationState `json:"status"`
	DaysLeft  int             `json:"daysLeft"`
	ExpiresAt *types.Date     `json:"expiresAt,omitempty"`
	Message   string          `json:"message"`
}

// Expiration reports the expiry status of state as of today. Plans
// expiring within window days (inclusive) are expiring soon.
func Expiration(state models.SubscriptionState, today types.Date, window int) ExpirationStatus {
	if state.Plan == types.PlanFree || state.ExpiresAt == nil {
		return ExpirationStatus{Status: ExpirationNone, Message: "No expiration"}
	}

	expires := *state.ExpiresAt
	days := today.DaysUntil(expires)
	st := ExpirationStatus{DaysLeft: days, ExpiresAt: &expires}
	switch {
	case days < 0:
		st.Status = ExpirationExpired
		st.DaysLeft = 0
		st.Message = fmt.Sprintf("Expired on %s", expires)
	case days == 0:
		st.Status = ExpirationExpiringSoon
		st.Message = "Expires today"
	case days <= window:
		st.Status = ExpirationExpiringSoon
		st.Message = fmt.Sprintf("Expires in %d day%s", days, plural(days))
	default:
		st.Status = ExpirationActive
		st.Message = fmt.Sprintf("Active until %s", expires)
	}
	return st
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
