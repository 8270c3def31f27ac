// Package lookup matches parsed IDs against the record store.
package lookup

import (
	"context"
	"time"

	"github.com/id-scanner/internal/idparser"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// FieldIDNumber is the only field the orchestrator looks records up by
const FieldIDNumber = "idNumber"

// FindOptions controls ordering and size of an exact-match query
type FindOptions struct {
	OrderByCreatedDesc bool
	Limit              int
}

// RecordFinder is the record store contract used for lookups.
// A nil record with a nil error means no match.
type RecordFinder interface {
	FindByExactField(ctx context.Context, field, value string, opts FindOptions) (*models.ScanRecord, error)
}

// Orchestrator parses raw scans and resolves them against the record store
type Orchestrator struct {
	finder  RecordFinder
	timeout time.Duration
	logger  *logging.Logger
}

// NewOrchestrator creates an orchestrator. A zero timeout leaves the
// caller's context deadline as the only bound on the lookup call.
func NewOrchestrator(finder RecordFinder, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		finder:  finder,
		timeout: timeout,
		logger:  logging.GetGlobalLogger().WithField("component", "lookup"),
	}
}

// Lookup parses raw and resolves the extracted ID number with exactly one
// record store call. Store failures are reported in the result as
// LOOKUP_ERROR and are never retried.
func (o *Orchestrator) Lookup(ctx context.Context, raw string, source types.ScanSource) *models.LookupResult {
	parsed := idparser.Parse(raw, source)
	return o.Resolve(ctx, parsed)
}

// Resolve runs the record store half of Lookup for an already parsed record
func (o *Orchestrator) Resolve(ctx context.Context, parsed *models.ParsedIDRecord) *models.LookupResult {
	if !parsed.HasIDNumber() {
		return fromParsed(parsed, types.StatusNoIDNumber)
	}

	record, err := o.find(ctx, *parsed.IDNumber)
	if err != nil {
		o.logger.WithError(err).WithField("idType", string(parsed.IDType)).Warn("Record lookup failed")
		result := fromParsed(parsed, types.StatusLookupError)
		msg := err.Error()
		result.LookupError = &msg
		return result
	}
	if record == nil {
		return fromParsed(parsed, types.StatusNewID)
	}
	return fromRecord(record)
}

func (o *Orchestrator) find(ctx context.Context, idNumber string) (*models.ScanRecord, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.finder.FindByExactField(ctx, FieldIDNumber, idNumber, FindOptions{
		OrderByCreatedDesc: true,
		Limit:              1,
	})
}

func fromParsed(parsed *models.ParsedIDRecord, status types.VerificationStatus) *models.LookupResult {
	result := &models.LookupResult{
		ParsedIDRecord:     *parsed,
		VerificationStatus: status,
	}
	result.ScanSource = types.SourceLiveScan
	return result
}

// fromRecord builds a result whose displayed fields all come from the stored record
func fromRecord(rec *models.ScanRecord) *models.LookupResult {
	idType := rec.IDType
	if idType.IsUnknown() || idType == "Unknown" {
		idType = idparser.Classify(rec.IDNumber)
	}

	idNumber := rec.IDNumber
	recordID := rec.ID
	updated := rec.UpdatedAt
	result := &models.LookupResult{
		ParsedIDRecord: models.ParsedIDRecord{
			IDNumber:      &idNumber,
			FirstName:     rec.FirstName,
			LastName:      rec.LastName,
			MiddleInitial: rec.MiddleInitial,
			Birthday:      rec.Birthday,
			IDType:        idType,
			ParseSuccess:  true,
			ScanSource:    types.SourceDatabaseLookup,
		},
		VerificationStatus: types.StatusFoundInDB,
		IsFromDatabase:     true,
		RecordID:           &recordID,
		LastUpdated:        &updated,
		PhotoID:            rec.PhotoID,
	}
	return result
}
