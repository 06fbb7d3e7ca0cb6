package phone

import (
	"errors"
	"strings"
)

// Normalize canonicalizes a phone number to a comparable key used for
// duplicate detection. The rules are intentionally simple:
// - strip spaces, dashes, dots, parentheses
// - "00" international prefix becomes "+"
// - a leading "0" trunk prefix is kept as-is (no country inference)
// - the result must be 7..15 digits, optionally prefixed with "+"
//
// Two leads are considered duplicates when their normalized keys match.
var ErrInvalidPhone = errors.New("phone: invalid number")

func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidPhone
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, drop
		default:
			return "", ErrInvalidPhone
		}
	}

	out := b.String()
	if strings.HasPrefix(out, "00") {
		out = "+" + out[2:]
	}

	digits := strings.TrimPrefix(out, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return out, nil
}

// Valid reports whether raw normalizes successfully.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
