package idparser

import (
	"regexp"
	"strings"

	"github.com/id-scanner/internal/types"
)

var (
	reUSFieldSeparator = regexp.MustCompile(`[,\n]`)
	reAllCapsToken     = regexp.MustCompile(`^[A-Z]+\.?$`)
	reNameSeparator    = regexp.MustCompile(`[\s,]+`)

	reLooseID    = regexp.MustCompile(`(?i)(?:ID|NUMBER|#)?\s*:?\s*([A-Z0-9-]{6,20})`)
	reLooseName  = regexp.MustCompile(`(?i)NAME\s*:?\s*([A-Z\s,.]+)`)
	reLooseBirth = regexp.MustCompile(`(?i)(?:BIRTH|DOB|BIRTHDAY)?\s*:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`)
)

// parseUSLicense maps AAMVA field codes from a PDF417 payload
func parseUSLicense(raw string) *recordBuilder {
	b := &recordBuilder{idType: types.IDTypeUSDriversLicense}
	if !strings.Contains(raw, "ANSI") {
		return b
	}

	for _, field := range reUSFieldSeparator.Split(raw, -1) {
		field = strings.TrimSpace(field)
		switch {
		case strings.HasPrefix(field, "DCS"):
			setOnce(&b.lastName, field[3:])
		case strings.HasPrefix(field, "DCT"):
			setOnce(&b.firstName, field[3:])
		case strings.HasPrefix(field, "DCU"):
			setOnce(&b.middleInitial, firstRune(field[3:]))
		case strings.HasPrefix(field, "DBB"):
			// MMDDYYYY
			if dob := field[3:]; len(dob) == 8 {
				setOnce(&b.birthday, dob[0:2]+"/"+dob[2:4]+"/"+dob[4:8])
			}
		case strings.HasPrefix(field, "DAQ"):
			setOnce(&b.idNumber, field[3:])
		}
	}
	return b
}

// parseDriversLicense walks a Philippine driver's license line by line
func parseDriversLicense(raw string) *recordBuilder {
	b := &recordBuilder{}

	for _, line := range nonEmptyLines(raw) {
		if b.idNumber == "" && (reDLPrefix.MatchString(line) || reDLCompact.MatchString(line)) {
			b.idNumber = line
			b.idType = types.IDTypePhilippineDriversLicense
			continue
		}

		if b.birthday == "" && matchesDate(line) {
			b.birthday = line
		}

		if b.lastName == "" && strings.Contains(line, ",") {
			// LASTNAME, FIRSTNAME [MIDDLE...]; the last token carries the middle initial
			last, rest := splitCommaName(line)
			setOnce(&b.lastName, last)
			if len(rest) > 0 {
				setOnce(&b.firstName, rest[0])
				if len(rest) > 1 {
					setOnce(&b.middleInitial, firstRune(rest[len(rest)-1]))
				}
			}
			continue
		}

		if b.firstName == "" {
			// FIRSTNAME [MIDDLE] LASTNAME in two or three all-caps tokens
			if tokens := strings.Fields(line); (len(tokens) == 2 || len(tokens) == 3) && allCaps(tokens) {
				b.firstName = tokens[0]
				if len(tokens) == 3 {
					setOnce(&b.middleInitial, strings.Replace(tokens[1], ".", "", 1))
				}
				setOnce(&b.lastName, tokens[len(tokens)-1])
				continue
			}
		}

		for _, kw := range driversLicenseKeywords {
			if strings.Contains(line, kw) {
				b.idType = types.IDTypePhilippineDriversLicense
				b.appendInfo(line)
				break
			}
		}
	}
	return b
}

// parseOtherPhilippineID handles National ID, SSS and letter-prefixed government numbers
func parseOtherPhilippineID(raw string) *recordBuilder {
	b := &recordBuilder{}

	for _, line := range nonEmptyLines(raw) {
		if b.idNumber == "" {
			switch {
			case reNationalPrefix.MatchString(line):
				b.idNumber, b.idType = line, types.IDTypeNationalID
				continue
			case reSSSPrefix.MatchString(line):
				b.idNumber, b.idType = line, types.IDTypeSSS
				continue
			case reGovernmentLine.MatchString(line):
				b.idNumber = line
				continue
			}
		}

		if b.birthday == "" && matchesDate(line) {
			b.birthday = line
		}

		if b.lastName == "" && strings.Contains(line, ",") {
			// here the second token carries the middle initial
			last, rest := splitCommaName(line)
			setOnce(&b.lastName, last)
			if len(rest) > 0 {
				setOnce(&b.firstName, rest[0])
				if len(rest) > 1 {
					setOnce(&b.middleInitial, firstRune(rest[1]))
				}
			}
		}
	}
	return b
}

// parseGeneric is the loose fallback for free-form text
func parseGeneric(raw string) *recordBuilder {
	b := &recordBuilder{idType: types.IDTypeGeneric}

	for _, line := range nonEmptyLines(raw) {
		if b.idNumber == "" {
			if m := reLooseID.FindStringSubmatch(line); m != nil {
				b.idNumber = m[1]
			}
		}

		if b.firstName == "" {
			if m := reLooseName.FindStringSubmatch(line); m != nil {
				parts := splitNonEmpty(reNameSeparator, m[1])
				if len(parts) >= 1 {
					b.firstName = parts[0]
				}
				if len(parts) >= 2 {
					setOnce(&b.lastName, parts[len(parts)-1])
				}
				if len(parts) >= 3 {
					setOnce(&b.middleInitial, firstRune(parts[1]))
				}
			}
		}

		if b.birthday == "" {
			if m := reLooseBirth.FindStringSubmatch(line); m != nil {
				b.birthday = m[1]
			}
		}
	}

	b.appendInfo(raw)
	return b
}

// splitCommaName splits "LAST, FIRST MIDDLE" into the family name and the given-name tokens
func splitCommaName(line string) (string, []string) {
	parts := strings.Split(line, ",")
	last := strings.TrimSpace(parts[0])
	var rest []string
	if len(parts) > 1 {
		rest = strings.Fields(parts[1])
	}
	return last, rest
}

func allCaps(tokens []string) bool {
	for _, t := range tokens {
		if !reAllCapsToken.MatchString(t) {
			return false
		}
	}
	return true
}

func splitNonEmpty(sep *regexp.Regexp, s string) []string {
	var out []string
	for _, p := range sep.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
