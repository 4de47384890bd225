package domain

import (
	"strings"
)

// CountryPrefix is the Kenyan dialing prefix every M-Pesa number carries
const CountryPrefix = "254"

// NormalizePhone coerces a Kenyan mobile number into the 12-digit 254XXXXXXXXX form.
//
// Accepted inputs: 254XXXXXXXXX, +254XXXXXXXXX, 0XXXXXXXXX and XXXXXXXXX
// (spaces and dashes are ignored). Anything else returns ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
		case r == '+' && i == 0:
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, CountryPrefix):
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		digits = CountryPrefix + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		digits = CountryPrefix + digits
	default:
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// IsPaymentPhone reports whether phone is already in the strict 254 form
func IsPaymentPhone(phone string) bool {
	if len(phone) != 12 || !strings.HasPrefix(phone, CountryPrefix) {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
