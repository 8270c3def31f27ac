package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/id-scanner/internal/entitlement"
	apperrors "github.com/id-scanner/internal/errors"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// EntitlementService loads, evaluates and persists subscription state
type EntitlementService struct {
	profiles         ProfileStore
	expiringSoonDays int
	now              func() time.Time
	logger           *logging.Logger
}

// NewEntitlementService creates a new entitlement service. A non-positive
// window uses entitlement.DefaultExpiringSoonDays.
func NewEntitlementService(profiles ProfileStore, expiringSoonDays int) *EntitlementService {
	if expiringSoonDays <= 0 {
		expiringSoonDays = entitlement.DefaultExpiringSoonDays
	}
	return &EntitlementService{
		profiles:         profiles,
		expiringSoonDays: expiringSoonDays,
		now:              time.Now,
		logger:           logging.GetGlobalLogger().WithField("component", "entitlement"),
	}
}

// SubscriptionView is the subscription summary shown to a user
type SubscriptionView struct {
	State          models.SubscriptionState     `json:"state"`
	Details        entitlement.PlanDetails      `json:"details"`
	Limits         entitlement.Limits           `json:"limits"`
	RemainingScans int                          `json:"remainingScans"`
	Remaining      string                       `json:"remaining"`
	CanScan        bool                         `json:"canScan"`
	Expiration     entitlement.ExpirationStatus `json:"expiration"`
	Downgraded     bool                         `json:"downgraded"`
}

// load reads the stored state. Missing or unreadable subscription data
// reads as a fresh free plan; stored reports whether a state was found.
func (s *EntitlementService) load(ctx context.Context, userID string, today types.Date) (state models.SubscriptionState, stored bool, err error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return state, false, apperrors.NewDatabaseError("get profile", err)
	}

	current, err := profile.Subscription()
	if err != nil {
		s.logger.WithError(err).WithField("userId", userID).Warn("Stored subscription is malformed, treating as free plan")
		current = nil
	}
	return entitlement.Normalize(current, today), current != nil, nil
}

// save writes state under the subscription metadata key
func (s *EntitlementService) save(ctx context.Context, op, userID string, state models.SubscriptionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewInternalError("encode subscription", err)
	}
	patch := map[string]json.RawMessage{models.SubscriptionMetadataKey: raw}
	if err := s.profiles.UpdateMetadata(ctx, userID, patch); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"userId":    userID,
			"operation": op,
		}).Error("Failed to persist subscription")
		return apperrors.NewPersistenceError(op, err)
	}
	return nil
}

// Initialize stores a fresh free plan for userID unless one already exists
func (s *EntitlementService) Initialize(ctx context.Context, userID string) (models.SubscriptionState, error) {
	now := s.now()
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return models.SubscriptionState{}, apperrors.NewDatabaseError("get profile", err)
	}
	current, err := profile.Subscription()
	if err == nil && current != nil {
		return *current, nil
	}

	state := entitlement.Initialize(nil, now)
	if err := s.save(ctx, "initialize", userID, state); err != nil {
		return models.SubscriptionState{}, err
	}
	return state, nil
}

// GetSubscription returns the subscription summary of userID, persisting
// an expiry downgrade when one is due
func (s *EntitlementService) GetSubscription(ctx context.Context, userID string) (*SubscriptionView, error) {
	today := types.DateOf(s.now())
	state, _, err := s.load(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	downgraded, state := entitlement.CheckExpiration(state, today)
	if downgraded {
		if err := s.save(ctx, "check expiration", userID, state); err != nil {
			return nil, err
		}
	}

	allowance, _ := entitlement.CanPerformScan(state, today)
	return &SubscriptionView{
		State:          state,
		Details:        entitlement.DetailsFor(state.Plan),
		Limits:         entitlement.LimitsFor(state.Plan),
		RemainingScans: allowance.RemainingScans,
		Remaining:      entitlement.FormatRemaining(allowance.RemainingScans),
		CanScan:        allowance.CanScan,
		Expiration:     entitlement.Expiration(state, today, s.expiringSoonDays),
		Downgraded:     downgraded,
	}, nil
}

// CanPerformScan reports whether userID may scan now. An expiry downgrade
// is persisted before answering; the day rollover is not.
func (s *EntitlementService) CanPerformScan(ctx context.Context, userID string) (entitlement.ScanAllowance, models.SubscriptionState, error) {
	today := types.DateOf(s.now())
	state, _, err := s.load(ctx, userID, today)
	if err != nil {
		return entitlement.ScanAllowance{}, state, err
	}

	downgraded, state := entitlement.CheckExpiration(state, today)
	if downgraded {
		if err := s.save(ctx, "check expiration", userID, state); err != nil {
			return entitlement.ScanAllowance{}, state, err
		}
		s.logger.WithField("userId", userID).Info("Expired subscription downgraded to free")
	}

	allowance, state := entitlement.CanPerformScan(state, today)
	return allowance, state, nil
}

// IncrementScanCount records one performed scan for userID on any plan.
// On a persistence error the scan must be treated as not counted.
func (s *EntitlementService) IncrementScanCount(ctx context.Context, userID string) (models.SubscriptionState, error) {
	today := types.DateOf(s.now())
	state, _, err := s.load(ctx, userID, today)
	if err != nil {
		return state, err
	}

	state = entitlement.IncrementScanCount(state, today)
	if err := s.save(ctx, "increment scan count", userID, state); err != nil {
		return state, err
	}
	return state, nil
}

// UpdatePlan moves userID to plan starting today
func (s *EntitlementService) UpdatePlan(ctx context.Context, userID string, plan types.Plan) (models.SubscriptionState, error) {
	if !plan.Valid() {
		return models.SubscriptionState{}, apperrors.NewInvalidPlanError(string(plan))
	}
	now := s.now()
	state, stored, err := s.load(ctx, userID, types.DateOf(now))
	if err != nil {
		return state, err
	}
	if !stored {
		state = entitlement.Initialize(nil, now)
	}

	state, err = entitlement.UpdateSubscriptionPlan(state, plan, now)
	if err != nil {
		return state, apperrors.NewInvalidPlanError(string(plan))
	}
	if err := s.save(ctx, "update plan", userID, state); err != nil {
		return state, err
	}
	s.logger.WithFields(map[string]interface{}{
		"userId": userID,
		"plan":   plan,
	}).Info("Subscription plan updated")
	return state, nil
}

// ExpirationStatus reports how close the plan of userID is to expiring
func (s *EntitlementService) ExpirationStatus(ctx context.Context, userID string) (entitlement.ExpirationStatus, error) {
	today := types.DateOf(s.now())
	state, _, err := s.load(ctx, userID, today)
	if err != nil {
		return entitlement.ExpirationStatus{}, err
	}
	return entitlement.Expiration(state, today, s.expiringSoonDays), nil
}

// CanViewPhotos reports whether the current plan of userID shows photos
func (s *EntitlementService) CanViewPhotos(ctx context.Context, userID string) (bool, error) {
	today := types.DateOf(s.now())
	state, _, err := s.load(ctx, userID, today)
	if err != nil {
		return false, err
	}
	_, state = entitlement.CheckExpiration(state, today)
	return entitlement.CanViewPhotos(state), nil
}
