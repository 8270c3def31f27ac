package lookup

import (
	"context"
	"strings"

	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

// Discrepancy is one field where the scanned ID disagrees with the stored record
type Discrepancy struct {
	Field   string `json:"field"`
	Scanned string `json:"scanned"`
	Stored  string `json:"stored"`
}

// Verification is the outcome of checking a scanned ID against its stored record
type Verification struct {
	Status        types.AuthenticityStatus `json:"status"`
	Message       string                   `json:"message"`
	Discrepancies []Discrepancy            `json:"discrepancies,omitempty"`
	Record        *models.ScanRecord       `json:"record,omitempty"`
}

// Verify compares the names and birthday of parsed with the most recent
// stored record for its ID number. Names compare case-insensitively.
func (o *Orchestrator) Verify(ctx context.Context, parsed *models.ParsedIDRecord) *Verification {
	if !parsed.HasIDNumber() {
		return &Verification{Status: types.AuthenticityUnknownID, Message: "No ID number to verify"}
	}

	record, err := o.find(ctx, *parsed.IDNumber)
	if err != nil {
		o.logger.WithError(err).Warn("Verification lookup failed")
		return &Verification{Status: types.AuthenticityError, Message: err.Error()}
	}
	if record == nil {
		return &Verification{Status: types.AuthenticityUnknownID, Message: "ID not found in database"}
	}

	var found []Discrepancy
	check := func(field string, scanned, stored *string, fold bool) {
		if scanned == nil || stored == nil {
			return
		}
		same := *scanned == *stored
		if fold {
			same = strings.EqualFold(*scanned, *stored)
		}
		if !same {
			found = append(found, Discrepancy{Field: field, Scanned: *scanned, Stored: *stored})
		}
	}
	check("firstName", parsed.FirstName, record.FirstName, true)
	check("lastName", parsed.LastName, record.LastName, true)
	check("birthday", parsed.Birthday, record.Birthday, false)

	if len(found) > 0 {
		return &Verification{
			Status:        types.AuthenticityDiscrepancyFound,
			Message:       "Scanned data does not match the stored record",
			Discrepancies: found,
			Record:        record,
		}
	}
	return &Verification{Status: types.AuthenticityVerified, Message: "ID verified", Record: record}
}
