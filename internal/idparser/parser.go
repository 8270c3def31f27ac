// Package idparser classifies raw scanned ID strings and extracts the
// holder's name, birthdate and ID number.
//
// Parsing is pure: no I/O, no shared mutable state, and malformed input
// degrades to absent fields instead of an error.
package idparser

import (
	"regexp"
	"strings"

	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

var (
	reLineBreaks = regexp.MustCompile(`[\n\r]+`)

	reDLPrefix        = regexp.MustCompile(`^[A-Z]\d{2}-\d{2}-\d{6}`)
	reNationalPrefix  = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}`)
	reSSSPrefix       = regexp.MustCompile(`^\d{2}-\d{7}-\d`)
	reGovernmentStart = regexp.MustCompile(`^[A-Z]{1,3}\d{8,12}`)
	reGovernmentLine  = regexp.MustCompile(`^[A-Z]{1,3}\d{8,12}$`)
)

// dateFormats are the birthdate shapes recognized anywhere in a line
var dateFormats = []*regexp.Regexp{
	regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`), // MM/DD/YYYY
	regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), // MM-DD-YYYY
	regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})`), // YYYY/MM/DD
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`), // YYYY-MM-DD
	regexp.MustCompile(`(\d{2})(\d{2})(\d{4})`),   // MMDDYYYY
	regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`),   // YYYYMMDD
}

// driversLicenseKeywords mark a payload as a Philippine driver's license
var driversLicenseKeywords = []string{"DRIVER", "LICENSE", "REPUBLIC OF THE PHILIPPINES"}

// layout identifies which extraction strategy handles a payload
type layout int

const (
	layoutUS layout = iota
	layoutDriversLicense
	layoutOtherPhilippine
	layoutGeneric
)

// Parse classifies raw and extracts whatever fields it can. It never fails:
// input with nothing extractable yields a record with only IDType set to
// "Unknown ID Type".
func Parse(raw string, source types.ScanSource) *models.ParsedIDRecord {
	if strings.TrimSpace(raw) == "" {
		return unrecognized(source)
	}

	var b *recordBuilder
	kind := detectLayout(raw)
	switch kind {
	case layoutUS:
		b = parseUSLicense(raw)
	case layoutDriversLicense:
		b = parseDriversLicense(raw)
	case layoutOtherPhilippine:
		b = parseOtherPhilippineID(raw)
	default:
		b = parseGeneric(raw)
	}

	record := b.build(source)
	// a generic payload with only a birthday stays Generic ID with its raw text
	if kind == layoutGeneric && !record.ParseSuccess && record.Birthday == nil {
		return unrecognized(source)
	}

	// The ID-number shape is authoritative and overrides keyword guesses
	if record.HasIDNumber() {
		record.IDType = Classify(*record.IDNumber)
	} else if record.IDType == "" {
		record.IDType = types.IDTypeUnknown
	}
	return record
}

func unrecognized(source types.ScanSource) *models.ParsedIDRecord {
	return &models.ParsedIDRecord{
		IDType:     types.IDTypeUnknown,
		ScanSource: source,
	}
}

func detectLayout(raw string) layout {
	if strings.Contains(raw, "ANSI") || strings.Contains(raw, "PDF417") {
		return layoutUS
	}
	for _, kw := range driversLicenseKeywords {
		if strings.Contains(raw, kw) {
			return layoutDriversLicense
		}
	}
	if reDLPrefix.MatchString(raw) || reDLCompact.MatchString(firstLine(raw)) {
		return layoutDriversLicense
	}
	if reNationalPrefix.MatchString(raw) || reSSSPrefix.MatchString(raw) || reGovernmentStart.MatchString(raw) {
		return layoutOtherPhilippine
	}
	return layoutGeneric
}

func firstLine(raw string) string {
	return strings.TrimSpace(reLineBreaks.Split(raw, 2)[0])
}

// nonEmptyLines splits on line breaks and returns trimmed, non-blank lines
func nonEmptyLines(raw string) []string {
	var lines []string
	for _, l := range reLineBreaks.Split(raw, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func matchesDate(line string) bool {
	for _, f := range dateFormats {
		if f.MatchString(line) {
			return true
		}
	}
	return false
}

// recordBuilder accumulates fields with first-match-wins semantics
type recordBuilder struct {
	idNumber       string
	firstName      string
	lastName       string
	middleInitial  string
	birthday       string
	idType         types.IDType
	additionalInfo []string
}

func setOnce(field *string, value string) {
	if *field == "" {
		*field = strings.TrimSpace(value)
	}
}

func (b *recordBuilder) appendInfo(line string) {
	b.additionalInfo = append(b.additionalInfo, line)
}

func (b *recordBuilder) build(source types.ScanSource) *models.ParsedIDRecord {
	r := &models.ParsedIDRecord{
		IDNumber:      optional(b.idNumber),
		FirstName:     optional(b.firstName),
		LastName:      optional(b.lastName),
		MiddleInitial: optional(b.middleInitial),
		Birthday:      optional(b.birthday),
		IDType:        b.idType,
		ScanSource:    source,
	}
	if len(b.additionalInfo) > 0 {
		r.AdditionalInfo = optional(strings.Join(b.additionalInfo, "\n"))
	}
	r.ParseSuccess = r.IDNumber != nil || r.FirstName != nil || r.LastName != nil
	return r
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstRune returns the first character of s, or "" when s is empty
func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
