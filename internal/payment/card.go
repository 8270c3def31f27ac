package payment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// maxExpiryYears bounds how far in the future a card expiry may be
const maxExpiryYears = 20

// CardDetails is the card a payer submits. Number may contain spaces.
type CardDetails struct {
	Number   string `json:"number" validate:"required,numeric,min=13,max=19,credit_card"`
	ExpMonth int    `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear  int    `json:"expYear" validate:"required"`
	CVC      string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
}

var cardValidator = validator.New()

// ValidationError lists every problem found in a card
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid card details: " + strings.Join(e.Problems, "; ")
}

// Normalized returns a copy of c with spaces stripped from the number and
// surrounding whitespace trimmed from the other text fields
func (c CardDetails) Normalized() CardDetails {
	c.Number = stripSpaces(c.Number)
	c.CVC = strings.TrimSpace(c.CVC)
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	return c
}

// Validate checks c as of now and returns a *ValidationError listing
// every problem, or nil
func (c CardDetails) Validate(now time.Time) error {
	card := c.Normalized()

	var problems []string
	if err := cardValidator.Struct(card); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describeField(fe))
		}
	}

	year := now.Year()
	switch {
	case card.ExpYear < year || card.ExpYear > year+maxExpiryYears:
		problems = append(problems, "invalid expiry year")
	case card.ExpYear == year && card.ExpMonth >= 1 && card.ExpMonth < int(now.Month()):
		problems = append(problems, "card has expired")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	switch fe.Field() {
	case "Number":
		return "invalid card number"
	case "ExpMonth":
		return "expiry month must be between 01 and 12"
	case "ExpYear":
		return "expiry year is required"
	case "CVC":
		return "CVC must be 3 or 4 digits"
	case "Name":
		return "cardholder name is required"
	case "Email":
		return "valid email address is required"
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

var cardPrefixes = []struct {
	brand string
	re    *regexp.Regexp
}{
	{"visa", regexp.MustCompile(`^4`)},
	{"mastercard", regexp.MustCompile(`^5[1-5]`)},
	{"amex", regexp.MustCompile(`^3[47]`)},
	{"discover", regexp.MustCompile(`^6`)},
}

// CardType returns the card brand of number, or "unknown"
func CardType(number string) string {
	clean := stripSpaces(number)
	for _, p := range cardPrefixes {
		if p.re.MatchString(clean) {
			return p.brand
		}
	}
	return "unknown"
}

// FormatCardNumber groups the digits of number in blocks of four
func FormatCardNumber(number string) string {
	clean := stripSpaces(number)
	var b strings.Builder
	for i, r := range clean {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
