// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxTickerLength        = 12
	MaxCurrencyCodeLength  = 3
	MaxNotesLength         = 1024
	MaxSharesDecimalPlaces = 4
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// --- Numeric Validators ---

// ValidateDecimalString parses a string into a decimal and checks sign rules.
func ValidateDecimalString(s, fieldName string, allowNegative bool) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s ('%s') is not a valid number: %v", ErrValidationFailed, fieldName, s, err)
	}
	if !allowNegative && val.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s cannot be negative", ErrValidationFailed, fieldName)
	}
	return val, nil
}

// ValidatePositiveDecimalString parses a string into a strictly positive decimal.
func ValidatePositiveDecimalString(s, fieldName string) (decimal.Decimal, error) {
	val, err := ValidateDecimalString(s, fieldName, false)
	if err != nil {
		return decimal.Zero, err
	}
	if !val.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be greater than zero", ErrValidationFailed, fieldName)
	}
	return val, nil
}

// ValidateShares parses a share quantity, enforcing the 4 decimal place limit
// fractional shares are stored with.
func ValidateShares(s, fieldName string) (decimal.Decimal, error) {
	val, err := ValidatePositiveDecimalString(s, fieldName)
	if err != nil {
		return decimal.Zero, err
	}
	if val.Exponent() < -MaxSharesDecimalPlaces {
		return decimal.Zero, fmt.Errorf("%w: %s supports at most %d decimal places", ErrValidationFailed, fieldName, MaxSharesDecimalPlaces)
	}
	return val, nil
}

// --- Date Validator ---

// ValidateDateString checks if a string is a valid date in "DD-MM-YYYY" format.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("02-01-2006", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is not a valid date (expected DD-MM-YYYY): %v", ErrValidationFailed, fieldName, s, err)
	}
	if t.Format("02-01-2006") != trimmed {
		return time.Time{}, fmt.Errorf("%w: %s ('%s') is an invalid date (e.g., day/month mismatch)", ErrValidationFailed, fieldName, s)
	}
	return t, nil
}

// --- Specific Format Validators ---

var (
	tickerRegex       = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)
	currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// ValidateTicker checks if a string is a plausible stock symbol. Taiwanese
// numeric codes (2330), US tickers (AAPL), and LSE suffixed symbols (HSBA.L)
// all pass.
func ValidateTicker(s string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if err := ValidateStringNotEmpty(trimmed, "Ticker"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, MaxTickerLength, "Ticker"); err != nil {
		return err
	}
	return ValidateStringRegex(trimmed, tickerRegex, "Ticker", "letters, digits, dots, hyphens")
}

// ValidateCurrencyCode checks if currency code is 3 uppercase letters.
func ValidateCurrencyCode(s string) error {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return fmt.Errorf("%w: Currency Code cannot be empty", ErrValidationFailed)
	}
	if !currencyCodeRegex.MatchString(trimmed) {
		return fmt.Errorf("%w: Currency Code ('%s') is not in the expected format (3 uppercase letters)", ErrValidationFailed, s)
	}
	return nil
}
