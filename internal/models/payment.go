package models

import (
	"time"

	"github.com/id-scanner/internal/types"
)

// Payment is one charge attempt for a plan upgrade
type Payment struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Plan        types.Plan `json:"plan" db:"plan"`
	Amount      int64      `json:"amount" db:"amount"` // centavos
	Currency    string     `json:"currency" db:"currency"`
	Method      string     `json:"method" db:"method"`
	Status      string     `json:"status" db:"status"`
	Reference   string     `json:"reference" db:"reference"`
	RedirectURL *string    `json:"redirectUrl,omitempty" db:"redirect_url"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
