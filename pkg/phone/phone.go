// Package phone normalizes shopper phone numbers to E.164 so blacklist
// lookups compare like with like.
package phone

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultCountryCode is applied to numbers written in national format.
const DefaultCountryCode = "213"

var (
	ErrInvalid = errors.New("invalid phone number")

	validate = validator.New()
)

// Normalize strips formatting characters and converts national numbers
// (leading 0) and 00-prefixed international numbers to +E.164.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalid
		}
	}

	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "+"):
	case strings.HasPrefix(digits, "00"):
		digits = "+" + digits[2:]
	case strings.HasPrefix(digits, "0"):
		digits = "+" + DefaultCountryCode + digits[1:]
	default:
		return "", ErrInvalid
	}

	if err := validate.Var(digits, "required,e164"); err != nil {
		return "", ErrInvalid
	}
	if strings.HasPrefix(digits, "+"+DefaultCountryCode) && len(digits) != len("+213")+9 {
		return "", ErrInvalid
	}
	return digits, nil
}
