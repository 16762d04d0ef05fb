package utils

import (
	"fmt"
	"regexp"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	controlPattern  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateAmountCents validates a request amount in cents
func ValidateAmountCents(amountCents int64) error {
	if amountCents <= 0 {
		return fmt.Errorf("amount must be positive: %d", amountCents)
	}
	return nil
}

// ValidateCurrency validates an ISO 4217 currency code
func ValidateCurrency(currency string) error {
	if !currencyPattern.MatchString(currency) {
		return fmt.Errorf("invalid currency code: %s", currency)
	}
	return nil
}

// SanitizeString strips control characters from user-supplied text
func SanitizeString(s string) string {
	return controlPattern.ReplaceAllString(s, "")
}
