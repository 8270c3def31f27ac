package idparser

import (
	"regexp"
	"strings"

	"github.com/id-scanner/internal/types"
)

// classifierRule maps one ID-number shape to a type. Rules are evaluated in order.
type classifierRule struct {
	idType types.IDType
	match  func(id string) bool
}

func anyPattern(patterns ...*regexp.Regexp) func(string) bool {
	return func(id string) bool {
		for _, p := range patterns {
			if p.MatchString(id) {
				return true
			}
		}
		return false
	}
}

func containsAny(words ...string) func(string) bool {
	return func(id string) bool {
		for _, w := range words {
			if strings.Contains(id, w) {
				return true
			}
		}
		return false
	}
}

var (
	reDLDashed      = regexp.MustCompile(`^[A-Z]\d{2}-\d{2}-\d{6}$`)
	reDLCompact     = regexp.MustCompile(`^[A-Z]\d{8,11}$`)
	reNationalDash  = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	reTwelveDigits  = regexp.MustCompile(`^\d{12}$`)
	reSSSDash       = regexp.MustCompile(`^\d{2}-\d{7}-\d$`)
	reTenDigits     = regexp.MustCompile(`^\d{10}$`)
	reUMIDDash      = regexp.MustCompile(`^\d{4}-\d{7}-\d$`)
	rePRC           = regexp.MustCompile(`^[A-Z]\d{8,10}[A-Z]?$`)
	reTINDash       = regexp.MustCompile(`^\d{3}-\d{3}-\d{3}$`)
	reNineDigits    = regexp.MustCompile(`^\d{9}$`)
	rePhilHealth    = regexp.MustCompile(`^\d{2}-\d{9}-\d$`)
	reGSIS          = regexp.MustCompile(`^1\d{10}$`)
	reVoters        = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{4}$`)
	rePassport      = regexp.MustCompile(`^[A-Z]\d{7}[A-Z]?$`)
	rePassportP     = regexp.MustCompile(`^P\d{7}[A-Z]$`)
	reGovernmentAny = regexp.MustCompile(`^[A-Z0-9-]{6,20}$`)
)

var classifierRules = []classifierRule{
	{types.IDTypePhilippineDriversLicense, anyPattern(reDLDashed, reDLCompact)},
	{types.IDTypeNationalID, anyPattern(reNationalDash, reTwelveDigits)},
	{types.IDTypeSSS, anyPattern(reSSSDash, reTenDigits)},
	// 12 plain digits never reach UMID or PhilHealth; National ID claims them first
	{types.IDTypeUMID, anyPattern(reUMIDDash, reTwelveDigits)},
	{types.IDTypePRC, func(id string) bool { return rePRC.MatchString(id) || strings.HasPrefix(id, "PRC") }},
	{types.IDTypePostal, containsAny("POST")},
	{types.IDTypeTIN, anyPattern(reTINDash, reNineDigits)},
	{types.IDTypePhilHealth, anyPattern(rePhilHealth, reTwelveDigits)},
	{types.IDTypeGSIS, anyPattern(reGSIS)},
	{types.IDTypeSeniorCitizen, containsAny("SENIOR", "SC")},
	{types.IDTypePWD, containsAny("PWD", "DISABILITY")},
	{types.IDTypeVoters, anyPattern(reVoters)},
	{types.IDTypePhilippinePassport, anyPattern(rePassport, rePassportP)},
	{types.IDTypeOFW, containsAny("OFW", "OWWA")},
	{types.IDTypeGovernmentID, anyPattern(reGovernmentAny)},
}

// Classify returns the ID type implied by the shape of an ID number.
// The first matching rule wins; an empty number is "Unknown ID Type".
func Classify(idNumber string) types.IDType {
	clean := strings.ToUpper(strings.TrimSpace(idNumber))
	if clean == "" {
		return types.IDTypeUnknown
	}
	for _, rule := range classifierRules {
		if rule.match(clean) {
			return rule.idType
		}
	}
	return types.IDTypePhilippineID
}
