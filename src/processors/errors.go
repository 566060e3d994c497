// backend/src/processors/errors.go
package processors

import (
	"errors"
	"fmt"
)

// Argument errors fail before any computation; business-rule errors are
// distinguishable from them via errors.Is so callers can decide whether to
// surface or retry with corrected input. "Not computable" numeric outcomes are
// not errors at all: those return nil results.
var (
	ErrNilArgument = errors.New("required argument is nil")

	ErrBusinessRule           = errors.New("business rule violation")
	ErrCurrencyMismatch       = fmt.Errorf("%w: currency mismatch", ErrBusinessRule)
	ErrInvalidTransactionType = fmt.Errorf("%w: transaction type not valid for ledger", ErrBusinessRule)
	ErrInsufficientBalance    = fmt.Errorf("%w: insufficient ledger balance", ErrBusinessRule)
)
