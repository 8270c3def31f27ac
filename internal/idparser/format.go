package idparser

import (
	"strings"

	"github.com/id-scanner/internal/models"
)

// FormatName renders a display name such as "JUAN D. CRUZ". Absent parts are skipped.
func FormatName(firstName, middleInitial, lastName string) string {
	parts := make([]string, 0, 3)
	if firstName != "" {
		parts = append(parts, firstName)
	}
	if middleInitial != "" {
		parts = append(parts, middleInitial+".")
	}
	if lastName != "" {
		parts = append(parts, lastName)
	}
	return strings.Join(parts, " ")
}

// Validation reports how complete a parsed record is
type Validation struct {
	IsValid       bool     `json:"isValid"`
	Completeness  float64  `json:"completeness"`
	MissingFields []string `json:"missingFields"`
}

// completenessFields is the number of fields counted towards completeness, photo included
const completenessFields = 6

// Validate checks a parsed record for the minimum identifying information.
// hasPhoto tells whether a photo accompanies the record.
func Validate(r *models.ParsedIDRecord, hasPhoto bool) Validation {
	if r == nil {
		r = &models.ParsedIDRecord{}
	}

	present := 0
	for _, f := range []*string{r.IDNumber, r.FirstName, r.LastName, r.MiddleInitial, r.Birthday} {
		if f != nil && *f != "" {
			present++
		}
	}
	if hasPhoto {
		present++
	}

	missing := []string{}
	if r.IDNumber == nil {
		missing = append(missing, "ID Number")
	}
	if r.FirstName == nil {
		missing = append(missing, "First Name")
	}
	if r.LastName == nil {
		missing = append(missing, "Last Name")
	}
	if r.Birthday == nil {
		missing = append(missing, "Birthday")
	}

	return Validation{
		IsValid:       r.IDNumber != nil || r.FirstName != nil || r.LastName != nil,
		Completeness:  float64(present) / completenessFields,
		MissingFields: missing,
	}
}
