// Package models provides data models for the ID scanner system.
package models

import (
	"time"

	"github.com/id-scanner/internal/types"
)

// ParsedIDRecord is the result of parsing one raw scanned string.
// Optional fields are nil when they could not be extracted.
type ParsedIDRecord struct {
	IDNumber       *string          `json:"idNumber,omitempty"`
	FirstName      *string          `json:"firstName,omitempty"`
	LastName       *string          `json:"lastName,omitempty"`
	MiddleInitial  *string          `json:"middleInitial,omitempty"`
	Birthday       *string          `json:"birthday,omitempty"`
	IDType         types.IDType     `json:"idType"`
	AdditionalInfo *string          `json:"additionalInfo,omitempty"`
	ParseSuccess   bool             `json:"parseSuccess"`
	ScanSource     types.ScanSource `json:"scanSource"`
}

// HasIDNumber reports whether an ID number was extracted
func (r *ParsedIDRecord) HasIDNumber() bool {
	return r != nil && r.IDNumber != nil && *r.IDNumber != ""
}

// LookupResult is a parsed record merged with the outcome of the record store lookup
type LookupResult struct {
	ParsedIDRecord
	VerificationStatus types.VerificationStatus `json:"verificationStatus"`
	IsFromDatabase     bool                     `json:"isFromDatabase"`
	RecordID           *string                  `json:"recordId,omitempty"`
	LastUpdated        *time.Time               `json:"lastUpdated,omitempty"`
	PhotoID            *string                  `json:"photoId,omitempty"`
	PhotoURL           *string                  `json:"photoUrl,omitempty"`
	LookupError        *string                  `json:"lookupError,omitempty"`
}

// ClearPhoto strips every photo reference from the result
func (r *LookupResult) ClearPhoto() {
	r.PhotoID = nil
	r.PhotoURL = nil
}
