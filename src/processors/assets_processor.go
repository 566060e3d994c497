// backend/src/processors/assets_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// assetsProcessorImpl implements the AssetsProcessor interface.
type assetsProcessorImpl struct {
	interestProcessor InterestProcessor
}

// NewAssetsProcessor creates a new instance of AssetsProcessor.
func NewAssetsProcessor(interestProcessor InterestProcessor) AssetsProcessor {
	return &assetsProcessorImpl{interestProcessor: interestProcessor}
}

// Calculate rolls investment and bank totals into the dashboard summary.
// Percentages are component/grandTotal*100 and both zero when the grand total
// is zero. Interest totals sum the per-account interest estimates.
func (p *assetsProcessorImpl) Calculate(investmentTotal decimal.Decimal, bankAccounts []models.BankAccount) models.TotalAssetsSummary {
	bankTotal := decimal.Zero
	totalMonthlyInterest := decimal.Zero
	totalYearlyInterest := decimal.Zero

	for _, account := range bankAccounts {
		bankTotal = bankTotal.Add(account.TotalAssets)
		estimate := p.interestProcessor.Calculate(account)
		totalMonthlyInterest = totalMonthlyInterest.Add(estimate.MonthlyInterest)
		totalYearlyInterest = totalYearlyInterest.Add(estimate.YearlyInterest)
	}

	grandTotal := investmentTotal.Add(bankTotal)
	investmentPct := decimal.Zero
	bankPct := decimal.Zero
	if !grandTotal.IsZero() {
		investmentPct = investmentTotal.Div(grandTotal).Mul(hundred)
		bankPct = bankTotal.Div(grandTotal).Mul(hundred)
	}

	return models.TotalAssetsSummary{
		InvestmentTotal:      investmentTotal,
		BankTotal:            bankTotal,
		GrandTotal:           grandTotal,
		InvestmentPercentage: investmentPct,
		BankPercentage:       bankPct,
		TotalMonthlyInterest: totalMonthlyInterest,
		TotalYearlyInterest:  totalYearlyInterest,
	}
}
