package service

import (
	"context"
	"time"

	"github.com/id-scanner/internal/entitlement"
	apperrors "github.com/id-scanner/internal/errors"
	"github.com/id-scanner/internal/idparser"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// ScanService runs one quota-checked scan: entitlement check, parse and
// lookup, quota bookkeeping, analytics and photo gating
type ScanService struct {
	entitlements *EntitlementService
	orchestrator *lookup.Orchestrator
	events       ScanEventRecorder
	photos       PhotoURLSigner
	monitor      *LookupMonitor
	now          func() time.Time
	logger       *logging.Logger
}

// NewScanService creates a scan service. events and photos may be nil:
// without them no analytics are recorded and no photo URLs are signed.
func NewScanService(
	entitlements *EntitlementService,
	orchestrator *lookup.Orchestrator,
	events ScanEventRecorder,
	photos PhotoURLSigner,
	monitor *LookupMonitor,
) *ScanService {
	if monitor == nil {
		monitor = NewLookupMonitor()
	}
	return &ScanService{
		entitlements: entitlements,
		orchestrator: orchestrator,
		events:       events,
		photos:       photos,
		monitor:      monitor,
		now:          time.Now,
		logger:       logging.GetGlobalLogger().WithField("component", "scan"),
	}
}

// ScanOutcome is the answer to one performed scan
type ScanOutcome struct {
	Result         *models.LookupResult `json:"result"`
	RemainingScans int                  `json:"remainingScans"`
	Remaining      string               `json:"remaining"`
	CanViewPhotos  bool                 `json:"canViewPhotos"`
}

// Scan performs one scan for userID. A denied scan returns a quota error
// and leaves the stored state untouched. When the scan cannot be counted
// the lookup result is discarded and the persistence error returned.
func (s *ScanService) Scan(ctx context.Context, userID, raw string, source types.ScanSource) (*ScanOutcome, error) {
	allowance, state, err := s.entitlements.CanPerformScan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowance.CanScan {
		s.logger.WithFields(map[string]interface{}{
			"userId": userID,
			"plan":   state.Plan,
		}).Info("Scan denied, daily limit reached")
		return nil, apperrors.NewQuotaExceededError(state.Plan, entitlement.LimitsFor(state.Plan).DailyScans)
	}

	start := s.now()
	result := s.orchestrator.Lookup(ctx, raw, source)
	s.monitor.Record(s.now().Sub(start), result.VerificationStatus)

	updated, err := s.entitlements.IncrementScanCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, userID, updated.Plan, source, result)

	canView := entitlement.CanViewPhotos(updated)
	s.applyPhotoPolicy(ctx, result, canView)

	after, _ := entitlement.CanPerformScan(updated, types.DateOf(s.now()))
	return &ScanOutcome{
		Result:         result,
		RemainingScans: after.RemainingScans,
		Remaining:      entitlement.FormatRemaining(after.RemainingScans),
		CanViewPhotos:  canView,
	}, nil
}

// Parse runs the parser alone. It does not touch the quota.
func (s *ScanService) Parse(raw string, source types.ScanSource) (*models.ParsedIDRecord, idparser.Validation) {
	parsed := idparser.Parse(raw, source)
	return parsed, idparser.Validate(parsed, false)
}

// Verify compares a scan with the stored record of its ID number. It does
// not consume quota; stored photos are hidden from plans without photo access.
func (s *ScanService) Verify(ctx context.Context, userID, raw string, source types.ScanSource) (*lookup.Verification, error) {
	canView, err := s.entitlements.CanViewPhotos(ctx, userID)
	if err != nil {
		return nil, err
	}

	verification := s.orchestrator.Verify(ctx, idparser.Parse(raw, source))
	if verification.Record != nil && !canView {
		record := *verification.Record
		record.PhotoID = nil
		verification.Record = &record
	}
	return verification, nil
}

// LookupStats exposes the lookup monitor snapshot
func (s *ScanService) LookupStats() LookupStats {
	return s.monitor.Stats()
}

func (s *ScanService) applyPhotoPolicy(ctx context.Context, result *models.LookupResult, canView bool) {
	if !canView {
		result.ClearPhoto()
		return
	}
	if result.PhotoID == nil || s.photos == nil {
		return
	}
	url, err := s.photos.PhotoURL(ctx, *result.PhotoID)
	if err != nil {
		s.logger.WithError(err).WithField("photoId", *result.PhotoID).Warn("Could not sign photo URL")
		return
	}
	result.PhotoURL = &url
}

// recordEvent appends the analytics event. Failures are logged only.
func (s *ScanService) recordEvent(ctx context.Context, userID string, plan types.Plan, source types.ScanSource, result *models.LookupResult) {
	if s.events == nil {
		return
	}
	event := &models.ScanEvent{
		UserID:             userID,
		Plan:               plan,
		ScanSource:         source,
		IDType:             result.IDType,
		VerificationStatus: result.VerificationStatus,
		ParseSuccess:       result.ParseSuccess,
		ScannedAt:          s.now().UTC(),
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("userId", userID).Warn("Failed to record scan event")
	}
}
