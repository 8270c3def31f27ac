package models

import (
	"encoding/json"
	"time"

	"github.com/id-scanner/internal/types"
)

// SubscriptionMetadataKey is the profile metadata key holding the subscription state
const SubscriptionMetadataKey = "subscription"

// DailyScans tracks the scan counter for one calendar day
type DailyScans struct {
	Count         int        `json:"count"`
	LastResetDate types.Date `json:"lastResetDate"`
}

// SubscriptionState is the per-user entitlement record stored in profile metadata
type SubscriptionState struct {
	Plan       types.Plan  `json:"plan"`
	DailyScans DailyScans  `json:"dailyScans"`
	ExpiresAt  *types.Date `json:"expiresAt"`
	CreatedAt  *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time  `json:"updatedAt,omitempty"`
}

// UserProfile is a user record with its mutable metadata bag
type UserProfile struct {
	ID        string                     `json:"id" db:"id"`
	Metadata  map[string]json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt time.Time                  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time                  `json:"updatedAt" db:"updated_at"`
}

// Subscription decodes the stored subscription state. It returns nil when none is stored.
func (p *UserProfile) Subscription() (*SubscriptionState, error) {
	if p == nil || p.Metadata == nil {
		return nil, nil
	}
	raw, ok := p.Metadata[SubscriptionMetadataKey]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var state SubscriptionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
