package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDecimalString(t *testing.T) {
	val, err := ValidateDecimalString("123.45", "Amount", false)
	require.NoError(t, err)
	assert.Equal(t, "123.45", val.String())

	val, err = ValidateDecimalString(" -10.5 ", "Amount", true)
	require.NoError(t, err)
	assert.Equal(t, "-10.5", val.String())

	_, err = ValidateDecimalString("-10.5", "Amount", false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateDecimalString("", "Amount", false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateDecimalString("12.3.4", "Amount", false)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidatePositiveDecimalString(t *testing.T) {
	_, err := ValidatePositiveDecimalString("0", "Price")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidatePositiveDecimalString("0.00", "Price")
	assert.ErrorIs(t, err, ErrValidationFailed)

	val, err := ValidatePositiveDecimalString("0.01", "Price")
	require.NoError(t, err)
	assert.Equal(t, "0.01", val.String())
}

func TestValidateShares(t *testing.T) {
	val, err := ValidateShares("10.5", "Shares")
	require.NoError(t, err)
	assert.Equal(t, "10.5", val.String())

	_, err = ValidateShares("0.1234", "Shares")
	assert.NoError(t, err)

	_, err = ValidateShares("0.12345", "Shares")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "decimal places")

	_, err = ValidateShares("-1", "Shares")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateDateString(t *testing.T) {
	d, err := ValidateDateString("15-01-2024", "Date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	// Day/month swapped relative to the expected layout.
	_, err = ValidateDateString("2024-01-15", "Date")
	assert.ErrorIs(t, err, ErrValidationFailed)

	// 31st of a 30-day month.
	_, err = ValidateDateString("31-04-2024", "Date")
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Non-padded days normalize differently and are rejected.
	_, err = ValidateDateString("5-01-2024", "Date")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateDateString("  ", "Date")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateTicker(t *testing.T) {
	assert.NoError(t, ValidateTicker("2330"))
	assert.NoError(t, ValidateTicker("AAPL"))
	assert.NoError(t, ValidateTicker("HSBA.L"))
	assert.NoError(t, ValidateTicker("BRK-B"))
	assert.NoError(t, ValidateTicker(" aapl "))

	assert.ErrorIs(t, ValidateTicker(""), ErrValidationFailed)
	assert.ErrorIs(t, ValidateTicker(".AAPL"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateTicker("AA PL"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateTicker("VERYLONGTICKER"), ErrValidationFailed)
}

func TestValidateCurrencyCode(t *testing.T) {
	assert.NoError(t, ValidateCurrencyCode("TWD"))
	assert.NoError(t, ValidateCurrencyCode("usd"))
	assert.NoError(t, ValidateCurrencyCode(" GBP "))

	assert.ErrorIs(t, ValidateCurrencyCode(""), ErrValidationFailed)
	assert.ErrorIs(t, ValidateCurrencyCode("TW"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateCurrencyCode("TWDD"), ErrValidationFailed)
	assert.ErrorIs(t, ValidateCurrencyCode("T1D"), ErrValidationFailed)
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", SanitizeForFormulaInjection("=SUM(A1)"))
	assert.Equal(t, "'+1234", SanitizeForFormulaInjection("+1234"))
	assert.Equal(t, "'@cmd", SanitizeForFormulaInjection("@cmd"))
	assert.Equal(t, "plain notes", SanitizeForFormulaInjection("plain notes"))
	assert.Empty(t, SanitizeForFormulaInjection(""))
}

func TestSanitizeTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello", SanitizeText("<script>x</script>hello"))
	assert.Equal(t, "bold", SanitizeText("<b>bold</b>"))
}
