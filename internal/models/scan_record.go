package models

import (
	"time"

	"github.com/id-scanner/internal/types"
)

// ScanRecord is a stored, previously scanned ID
type ScanRecord struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"userId" db:"user_id"`
	IDNumber      string       `json:"idNumber" db:"id_number"`
	IDType        types.IDType `json:"idType" db:"id_type"`
	FirstName     *string      `json:"firstName,omitempty" db:"first_name"`
	LastName      *string      `json:"lastName,omitempty" db:"last_name"`
	MiddleInitial *string      `json:"middleInitial,omitempty" db:"middle_initial"`
	Birthday      *string      `json:"birthday,omitempty" db:"birthday"`
	PhotoID       *string      `json:"photoId,omitempty" db:"photo_id"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}

// ScanStatistics summarizes the stored scan history
type ScanStatistics struct {
	TotalScans      int64                  `json:"totalScans"`
	IDTypeBreakdown map[types.IDType]int64 `json:"idTypeBreakdown"`
	RecentScans     []*ScanRecord          `json:"recentScans"`
	FirstScan       *time.Time             `json:"firstScan,omitempty"`
	LastScan        *time.Time             `json:"lastScan,omitempty"`
}

// ScanEvent is one performed scan, appended to the analytics store
type ScanEvent struct {
	EventID            string                   `json:"eventId" ch:"event_id"`
	UserID             string                   `json:"userId" ch:"user_id"`
	Plan               types.Plan               `json:"plan" ch:"plan"`
	ScanSource         types.ScanSource         `json:"scanSource" ch:"scan_source"`
	IDType             types.IDType             `json:"idType" ch:"id_type"`
	VerificationStatus types.VerificationStatus `json:"verificationStatus" ch:"verification_status"`
	ParseSuccess       bool                     `json:"parseSuccess" ch:"parse_success"`
	ScannedAt          time.Time                `json:"scannedAt" ch:"scanned_at"`
}

// DailyScanCount is the number of scans of one ID type on one day
type DailyScanCount struct {
	Day    time.Time    `json:"day"`
	IDType types.IDType `json:"idType"`
	Scans  uint64       `json:"scans"`
}
