package idparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
)

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func TestParse_PhilippineDriversLicense(t *testing.T) {
	raw := "REPUBLIC OF THE PHILIPPINES\nDRIVER'S LICENSE\nN01-12-345678\nDELA CRUZ, JUAN SANTOS\n01/15/1990"

	r := Parse(raw, types.SourceQR)

	require.True(t, r.ParseSuccess)
	assert.Equal(t, "N01-12-345678", str(r.IDNumber))
	assert.Equal(t, types.IDTypePhilippineDriversLicense, r.IDType)
	assert.Equal(t, "JUAN", str(r.FirstName))
	assert.Equal(t, "DELA CRUZ", str(r.LastName))
	assert.Equal(t, "S", str(r.MiddleInitial))
	assert.Equal(t, "01/15/1990", str(r.Birthday))
	assert.Equal(t, "REPUBLIC OF THE PHILIPPINES\nDRIVER'S LICENSE", str(r.AdditionalInfo))
	assert.Equal(t, types.SourceQR, r.ScanSource)
}

func TestParse_DriversLicenseCompactNumberOnFirstLine(t *testing.T) {
	r := Parse("N0123456789\nCRUZ, JUAN", types.SourceManual)

	assert.Equal(t, "N0123456789", str(r.IDNumber))
	assert.Equal(t, types.IDTypePhilippineDriversLicense, r.IDType)
	assert.Equal(t, "CRUZ", str(r.LastName))
	assert.Equal(t, "JUAN", str(r.FirstName))
	assert.Nil(t, r.MiddleInitial)
}

func TestParse_DriversLicenseAllCapsName(t *testing.T) {
	r := Parse("LICENSE\nJUAN D. CRUZ", types.SourceQR)

	assert.Nil(t, r.IDNumber)
	assert.Equal(t, "JUAN", str(r.FirstName))
	assert.Equal(t, "D", str(r.MiddleInitial))
	assert.Equal(t, "CRUZ", str(r.LastName))
	// no ID number, so the keyword guess stands
	assert.Equal(t, types.IDTypePhilippineDriversLicense, r.IDType)
	assert.True(t, r.ParseSuccess)
}

func TestParse_FirstMatchWins(t *testing.T) {
	r := Parse("DRIVER\nCRUZ, JUAN\nSANTOS, PEDRO\n01/02/1980\n03/04/1990", types.SourceQR)

	assert.Equal(t, "CRUZ", str(r.LastName))
	assert.Equal(t, "JUAN", str(r.FirstName))
	assert.Equal(t, "01/02/1980", str(r.Birthday))
}

func TestParse_USDriversLicense(t *testing.T) {
	raw := "@\nANSI 636014040002DL\nDCSSMITH\nDCTJOHN\nDCUMICHAEL\nDBB01151990\nDAQD1234567"

	r := Parse(raw, types.SourceQR)

	assert.Equal(t, "SMITH", str(r.LastName))
	assert.Equal(t, "JOHN", str(r.FirstName))
	assert.Equal(t, "M", str(r.MiddleInitial))
	assert.Equal(t, "01/15/1990", str(r.Birthday))
	assert.Equal(t, "D1234567", str(r.IDNumber))
	// the ID-number shape overrides the US layout guess
	assert.Equal(t, types.IDTypePhilippinePassport, r.IDType)
}

func TestParse_USDriversLicenseWithoutNumberKeepsLayoutType(t *testing.T) {
	r := Parse("ANSI,DCSSMITH,DCTJOHN,DBB123", types.SourceQR)

	assert.Nil(t, r.IDNumber)
	assert.Nil(t, r.Birthday, "DBB must be exactly eight digits")
	assert.Equal(t, types.IDTypeUSDriversLicense, r.IDType)
	assert.True(t, r.ParseSuccess)
}

func TestParse_PDF417MarkerWithoutANSI(t *testing.T) {
	r := Parse("PDF417 DCSSMITH", types.SourceQR)

	assert.False(t, r.ParseSuccess)
	assert.Nil(t, r.LastName)
	assert.Equal(t, types.IDTypeUSDriversLicense, r.IDType)
}

func TestParse_OtherPhilippineIDs(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantID     string
		wantType   types.IDType
		wantFirst  string
		wantLast   string
		wantMiddle string
		wantBirth  string
	}{
		{
			name:       "national id",
			raw:        "1234-5678-9012\nDELA CRUZ, MARIA CLARA REYES\n1990-03-25",
			wantID:     "1234-5678-9012",
			wantType:   types.IDTypeNationalID,
			wantFirst:  "MARIA",
			wantLast:   "DELA CRUZ",
			wantMiddle: "C",
			wantBirth:  "1990-03-25",
		},
		{
			name:      "sss id",
			raw:       "12-3456789-0\nSANTOS, ANA",
			wantID:    "12-3456789-0",
			wantType:  types.IDTypeSSS,
			wantFirst: "ANA",
			wantLast:  "SANTOS",
		},
		{
			name:     "letter prefixed government number",
			raw:      "AB123456789",
			wantID:   "AB123456789",
			wantType: types.IDTypeGovernmentID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.raw, types.SourceQR)
			assert.Equal(t, tt.wantID, str(r.IDNumber))
			assert.Equal(t, tt.wantType, r.IDType)
			assert.Equal(t, tt.wantFirst, str(r.FirstName))
			assert.Equal(t, tt.wantLast, str(r.LastName))
			assert.Equal(t, tt.wantMiddle, str(r.MiddleInitial))
			assert.Equal(t, tt.wantBirth, str(r.Birthday))
			assert.True(t, r.ParseSuccess)
		})
	}
}

func TestParse_GenericFallback(t *testing.T) {
	raw := "ID: ABC123456"

	r := Parse(raw, types.SourceManual)

	assert.Equal(t, "ABC123456", str(r.IDNumber))
	assert.Equal(t, types.IDTypeGovernmentID, r.IDType)
	assert.Equal(t, raw, str(r.AdditionalInfo))
	assert.True(t, r.ParseSuccess)
}

func TestParse_GenericNameNeedsLabel(t *testing.T) {
	r := Parse("JUAN DELA CRUZ", types.SourceManual)

	assert.Nil(t, r.IDNumber)
	assert.Nil(t, r.FirstName)
	assert.False(t, r.ParseSuccess)
	assert.Equal(t, types.IDTypeUnknown, r.IDType)
}

func TestParse_GenericLabelledFields(t *testing.T) {
	r := Parse("NAME: JUAN D CRUZ\nDOB: 1/2/1985", types.SourceManual)

	assert.Nil(t, r.IDNumber)
	assert.Equal(t, "JUAN", str(r.FirstName))
	assert.Equal(t, "D", str(r.MiddleInitial))
	assert.Equal(t, "CRUZ", str(r.LastName))
	assert.Equal(t, "1/2/1985", str(r.Birthday))
	assert.Equal(t, types.IDTypeGeneric, r.IDType)
	assert.True(t, r.ParseSuccess)
}

func TestParse_GenericBirthdayOnly(t *testing.T) {
	raw := "DOB: 01/02/1990"
	r := Parse(raw, types.SourceManual)

	assert.Equal(t, types.IDTypeGeneric, r.IDType)
	assert.False(t, r.ParseSuccess)
	assert.Nil(t, r.IDNumber)
	assert.Equal(t, "01/02/1990", str(r.Birthday))
	assert.Equal(t, raw, str(r.AdditionalInfo))
}

func TestParse_Unrecognized(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n", "!!!", "12345", "?? ~~"} {
		t.Run(raw, func(t *testing.T) {
			r := Parse(raw, types.SourceQR)
			assert.Equal(t, &models.ParsedIDRecord{IDType: types.IDTypeUnknown, ScanSource: types.SourceQR}, r)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		id   string
		want types.IDType
	}{
		{"A01-23-456789", types.IDTypePhilippineDriversLicense},
		{"a01-23-456789", types.IDTypePhilippineDriversLicense},
		{"A123456789", types.IDTypePhilippineDriversLicense},
		{"1234-5678-9012", types.IDTypeNationalID},
		{"123456789012", types.IDTypeNationalID},
		{"12-3456789-0", types.IDTypeSSS},
		{"1234567890", types.IDTypeSSS},
		{"1234-5678901-2", types.IDTypeUMID},
		{"PRC-1234567", types.IDTypePRC},
		{"POST-1234-567890", types.IDTypePostal},
		{"123-456-789", types.IDTypeTIN},
		{"123456789", types.IDTypeTIN},
		{"12-345678901-2", types.IDTypePhilHealth},
		{"12345678901", types.IDTypeGSIS},
		{"SENIOR-001", types.IDTypeSeniorCitizen},
		{"SC-12345", types.IDTypeSeniorCitizen},
		{"PWD-12345", types.IDTypePWD},
		{"1234-5678-9012-3456", types.IDTypeVoters},
		{"P1234567A", types.IDTypePhilippinePassport},
		{"OFW-998877", types.IDTypeOFW},
		{"XYZ-77", types.IDTypeGovernmentID},
		{"AB", types.IDTypePhilippineID},
		{"  ", types.IDTypeUnknown},
		{"", types.IDTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.id))
		})
	}
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "JUAN D. CRUZ", FormatName("JUAN", "D", "CRUZ"))
	assert.Equal(t, "JUAN CRUZ", FormatName("JUAN", "", "CRUZ"))
	assert.Equal(t, "CRUZ", FormatName("", "", "CRUZ"))
	assert.Equal(t, "", FormatName("", "", ""))
}

func TestValidate(t *testing.T) {
	full := Parse("N01-12-345678\nDELA CRUZ, JUAN SANTOS\n01/15/1990\nLICENSE", types.SourceQR)
	v := Validate(full, true)
	assert.True(t, v.IsValid)
	assert.InDelta(t, 1.0, v.Completeness, 1e-9)
	assert.Empty(t, v.MissingFields)

	v = Validate(full, false)
	assert.InDelta(t, 5.0/6.0, v.Completeness, 1e-9)

	empty := Validate(Parse("", types.SourceQR), false)
	assert.False(t, empty.IsValid)
	assert.Zero(t, empty.Completeness)
	assert.Equal(t, []string{"ID Number", "First Name", "Last Name", "Birthday"}, empty.MissingFields)
}
