// Package types provides common type definitions for the ID scanner system.
package types

import (
	"fmt"
	"time"
)

// ScanSource records how a raw ID string reached the system
type ScanSource string

const (
	// SourceQR represents data decoded from a QR code or barcode
	SourceQR ScanSource = "qr"
	// SourceManual represents an ID number typed in by the user
	SourceManual ScanSource = "manual"
	// SourceLiveScan represents a scan result that was not matched to a stored record
	SourceLiveScan ScanSource = "live_scan"
	// SourceDatabaseLookup represents a result served from the record store
	SourceDatabaseLookup ScanSource = "database_lookup"
)

// IDType is the human-readable classification of an identity document
type IDType string

const (
	IDTypePhilippineDriversLicense IDType = "Philippine Driver's License"
	IDTypeNationalID               IDType = "Philippine National ID"
	IDTypeSSS                      IDType = "SSS ID"
	IDTypeUMID                     IDType = "UMID"
	IDTypePRC                      IDType = "PRC License"
	IDTypePostal                   IDType = "Postal ID"
	IDTypeTIN                      IDType = "TIN ID"
	IDTypePhilHealth               IDType = "PhilHealth ID"
	IDTypeGSIS                     IDType = "GSIS ID"
	IDTypeSeniorCitizen            IDType = "Senior Citizen ID"
	IDTypePWD                      IDType = "PWD ID"
	IDTypeVoters                   IDType = "Voter's ID"
	IDTypePhilippinePassport       IDType = "Philippine Passport"
	IDTypeOFW                      IDType = "OFW ID"
	IDTypeGovernmentID             IDType = "Philippine Government ID"
	IDTypePhilippineID             IDType = "Philippine ID"
	IDTypeUSDriversLicense         IDType = "US Driver's License"
	IDTypeGeneric                  IDType = "Generic ID"
	// IDTypeUnknown is used whenever no better classification exists
	IDTypeUnknown IDType = "Unknown ID Type"
)

// IsUnknown reports whether the type carries no usable classification
func (t IDType) IsUnknown() bool {
	return t == "" || t == IDTypeUnknown
}

// VerificationStatus is the outcome of matching a parsed ID against the record store
type VerificationStatus int

const (
	// StatusNoIDNumber means parsing produced no ID number, so no lookup was attempted
	StatusNoIDNumber VerificationStatus = iota
	// StatusNewID means the lookup succeeded but no record exists
	StatusNewID
	// StatusFoundInDB means a stored record was returned
	StatusFoundInDB
	// StatusLookupError means the record store call failed
	StatusLookupError
)

var verificationStatusNames = [...]string{
	StatusNoIDNumber:  "NO_ID_NUMBER",
	StatusNewID:       "NEW_ID",
	StatusFoundInDB:   "FOUND_IN_DB",
	StatusLookupError: "LOOKUP_ERROR",
}

func (s VerificationStatus) String() string {
	if s < 0 || int(s) >= len(verificationStatusNames) {
		return fmt.Sprintf("VerificationStatus(%d)", int(s))
	}
	return verificationStatusNames[s]
}

// MarshalText encodes the status by name
func (s VerificationStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(verificationStatusNames) {
		return nil, fmt.Errorf("invalid verification status %d", int(s))
	}
	return []byte(verificationStatusNames[s]), nil
}

// UnmarshalText decodes a status name
func (s *VerificationStatus) UnmarshalText(text []byte) error {
	for i, name := range verificationStatusNames {
		if name == string(text) {
			*s = VerificationStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown verification status %q", string(text))
}

// AuthenticityStatus is the outcome of comparing scanned fields with a stored record
type AuthenticityStatus string

const (
	AuthenticityVerified         AuthenticityStatus = "VERIFIED"
	AuthenticityDiscrepancyFound AuthenticityStatus = "DISCREPANCY_FOUND"
	AuthenticityUnknownID        AuthenticityStatus = "UNKNOWN_ID"
	AuthenticityError            AuthenticityStatus = "VERIFICATION_ERROR"
)

// Plan represents the subscription plan of a user
type Plan string

const (
	// PlanFree represents the default plan with a daily scan quota
	PlanFree Plan = "free"
	// PlanMonthlyPro represents the 30-day paid plan
	PlanMonthlyPro Plan = "monthly_pro"
	// PlanYearlyPro represents the 365-day paid plan
	PlanYearlyPro Plan = "yearly_pro"
)

// Valid reports whether p is one of the known plans
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanMonthlyPro, PlanYearlyPro:
		return true
	}
	return false
}

// IsPaid reports whether p is a paid plan
func (p Plan) IsPaid() bool {
	return p == PlanMonthlyPro || p == PlanYearlyPro
}

// AllPlans returns the known plans in display order
func AllPlans() []Plan {
	return []Plan{PlanFree, PlanMonthlyPro, PlanYearlyPro}
}

// DateLayout is the calendar date format used for quota and expiry bookkeeping
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. Lexicographic order equals date order.
type Date string

// DateOf returns the UTC calendar date of t
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// Today returns the current UTC calendar date
func Today() Date {
	return DateOf(time.Now())
}

// AddDays returns the date n days after d. An unparsable date is returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// DaysUntil returns the number of whole days from d to other (negative when other is earlier)
func (d Date) DaysUntil(other Date) int {
	from, err1 := time.Parse(DateLayout, string(d))
	to, err2 := time.Parse(DateLayout, string(other))
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d < other
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d > other
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
