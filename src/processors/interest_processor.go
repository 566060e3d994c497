// backend/src/processors/interest_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// interestProcessorImpl implements the InterestProcessor interface.
type interestProcessorImpl struct{}

// NewInterestProcessor creates a new instance of InterestProcessor.
func NewInterestProcessor() InterestProcessor {
	return &interestProcessorImpl{}
}

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Calculate projects the monthly and yearly interest of a bank account over
// the capped principal min(totalAssets, interestCap). The two figures are
// computed and rounded to 2 decimal places independently: yearly is its own
// expression, not monthly*12, so their rounding can differ. A non-positive
// cap means the account is uncapped.
func (p *interestProcessorImpl) Calculate(account models.BankAccount) models.InterestEstimate {
	if account.InterestRate.IsZero() {
		return models.InterestEstimate{
			MonthlyInterest: decimal.Zero,
			YearlyInterest:  decimal.Zero,
		}
	}

	principal := account.TotalAssets
	if account.InterestCap.IsPositive() && account.InterestCap.LessThan(principal) {
		principal = account.InterestCap
	}

	annualRate := account.InterestRate.Div(hundred)
	monthly := principal.Mul(annualRate).Div(twelve).Round(2)
	yearly := principal.Mul(annualRate).Round(2)

	return models.InterestEstimate{
		MonthlyInterest: monthly,
		YearlyInterest:  yearly,
	}
}
