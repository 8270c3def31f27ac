package idparser

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/id-scanner/internal/types"
)

var noiseRunes = []rune("!@$%^&*()+=~?")

func TestParseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("idType is never empty", prop.ForAll(
		func(raw string) bool {
			return Parse(raw, types.SourceQR).IDType != ""
		},
		gen.AnyString(),
	))

	properties.Property("parseSuccess iff id number or a name was extracted", prop.ForAll(
		func(raw string) bool {
			r := Parse(raw, types.SourceQR)
			return r.ParseSuccess == (r.IDNumber != nil || r.FirstName != nil || r.LastName != nil)
		},
		gen.AnyString(),
	))

	properties.Property("id number shape decides the type", prop.ForAll(
		func(raw string) bool {
			r := Parse(raw, types.SourceQR)
			if !r.HasIDNumber() {
				return true
			}
			return r.IDType == Classify(*r.IDNumber)
		},
		gen.OneGenOf(gen.AnyString(), gen.RegexMatch(`[a-zA-Z0-9]*`), gen.RegexMatch(`[A-Z]\d{2}-\d{2}-\d{6}\n[A-Z ,]{3,20}`)),
	))

	properties.Property("parse is deterministic", prop.ForAll(
		func(raw string) bool {
			a := Parse(raw, types.SourceManual)
			b := Parse(raw, types.SourceManual)
			return str(a.IDNumber) == str(b.IDNumber) &&
				str(a.FirstName) == str(b.FirstName) &&
				str(a.LastName) == str(b.LastName) &&
				a.IDType == b.IDType
		},
		gen.AnyString(),
	))

	properties.Property("noise is unrecognized", prop.ForAll(
		func(idx []int) bool {
			var sb strings.Builder
			for _, i := range idx {
				sb.WriteRune(noiseRunes[i])
			}
			r := Parse(sb.String(), types.SourceQR)
			return r.IDType == types.IDTypeUnknown && !r.ParseSuccess && r.IDNumber == nil
		},
		gen.SliceOf(gen.IntRange(0, len(noiseRunes)-1)),
	))

	properties.Property("classification ignores case and padding", prop.ForAll(
		func(id string) bool {
			return Classify(strings.ToLower(id)) == Classify("  "+id+" ")
		},
		gen.RegexMatch(`[a-zA-Z0-9]*`),
	))

	properties.TestingRun(t)
}
