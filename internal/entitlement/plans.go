// Package entitlement tracks per-user plan entitlements: the daily scan
// quota of the free plan, expiry of paid plans, and photo access.
//
// Every function is pure. Callers pass the current date explicitly and
// persist the returned state themselves.
package entitlement

import (
	"strconv"

	"github.com/id-scanner/internal/types"
)

const (
	// DailyLimit is the number of scans the free plan allows per calendar day
	DailyLimit = 2
	// Unlimited is the remaining-scans sentinel for plans without a quota
	Unlimited = -1

	monthlyPlanDays = 30
	yearlyPlanDays  = 365

	// Currency is the ISO code plan prices are charged in
	Currency = "PHP"
)

// Limits are the capabilities granted by a plan
type Limits struct {
	DailyScans int  `json:"dailyScans"`
	ShowPhoto  bool `json:"showPhoto"`
	Unlimited  bool `json:"unlimited"`
}

// LimitsFor returns the limits of plan. Unknown plans get the free limits.
func LimitsFor(plan types.Plan) Limits {
	switch plan {
	case types.PlanMonthlyPro, types.PlanYearlyPro:
		return Limits{DailyScans: Unlimited, ShowPhoto: true, Unlimited: true}
	default:
		return Limits{DailyScans: DailyLimit, ShowPhoto: false, Unlimited: false}
	}
}

// PlanDetails describes a plan for display and billing
type PlanDetails struct {
	Plan     types.Plan `json:"plan"`
	Name     string     `json:"name"`
	Price    string     `json:"price"`
	Amount   int64      `json:"amount"` // centavos
	Currency string     `json:"currency"`
	Period   string     `json:"period"`
	Features []string   `json:"features"`
	Savings  string     `json:"savings,omitempty"`
}

// DetailsFor returns the catalog entry of plan. Unknown plans get the free entry.
// The returned value is a fresh copy.
func DetailsFor(plan types.Plan) PlanDetails {
	switch plan {
	case types.PlanMonthlyPro:
		return PlanDetails{
			Plan:     types.PlanMonthlyPro,
			Name:     "Monthly Pro",
			Price:    "₱199",
			Amount:   19900,
			Currency: Currency,
			Period:   "per month",
			Features: proFeatures(),
		}
	case types.PlanYearlyPro:
		return PlanDetails{
			Plan:     types.PlanYearlyPro,
			Name:     "Yearly Pro",
			Price:    "₱1,999",
			Amount:   199900,
			Currency: Currency,
			Period:   "per year",
			Features: append(proFeatures(), "2 months free!"),
			Savings:  "Save ₱389",
		}
	default:
		return PlanDetails{
			Plan:     types.PlanFree,
			Name:     "Free",
			Price:    "₱0",
			Amount:   0,
			Currency: Currency,
			Period:   "forever",
			Features: []string{
				strconv.Itoa(DailyLimit) + " daily scans",
				"QR code scanning",
				"Manual ID lookup",
			},
		}
	}
}

func proFeatures() []string {
	return []string{
		"Unlimited scans",
		"Photo viewing",
		"QR code scanning",
		"Manual ID lookup",
		"Priority support",
	}
}

// Catalog returns every plan in display order
func Catalog() []PlanDetails {
	plans := types.AllPlans()
	out := make([]PlanDetails, 0, len(plans))
	for _, p := range plans {
		out = append(out, DetailsFor(p))
	}
	return out
}

// durationDays is the validity of a paid plan from the day of purchase
func durationDays(plan types.Plan) (int, bool) {
	switch plan {
	case types.PlanMonthlyPro:
		return monthlyPlanDays, true
	case types.PlanYearlyPro:
		return yearlyPlanDays, true
	}
	return 0, false
}

// FormatRemaining renders a remaining-scans count, "∞" for Unlimited
func FormatRemaining(remaining int) string {
	if remaining == Unlimited {
		return "∞"
	}
	return strconv.Itoa(remaining)
}
