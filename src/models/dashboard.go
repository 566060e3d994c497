// backend/src/models/dashboard.go
package models

import "github.com/shopspring/decimal"

// FundsSummary is the dashboard roll-up of available funds.
type FundsSummary struct {
	TotalBankAssets          decimal.Decimal `json:"total_bank_assets"`
	FixedDepositsPrincipal   decimal.Decimal `json:"fixed_deposits_principal"`
	UnpaidInstallmentBalance decimal.Decimal `json:"unpaid_installment_balance"`
	AvailableFunds           decimal.Decimal `json:"available_funds"`
}

// InterestEstimate is the projected interest for a single bank account.
// Monthly and yearly figures are computed and rounded independently; yearly is
// not simply monthly multiplied by twelve.
type InterestEstimate struct {
	MonthlyInterest decimal.Decimal `json:"monthly_interest"`
	YearlyInterest  decimal.Decimal `json:"yearly_interest"`
}

// TotalAssetsSummary is the dashboard roll-up of investment vs. bank assets.
type TotalAssetsSummary struct {
	InvestmentTotal      decimal.Decimal `json:"investment_total"`
	BankTotal            decimal.Decimal `json:"bank_total"`
	GrandTotal           decimal.Decimal `json:"grand_total"`
	InvestmentPercentage decimal.Decimal `json:"investment_percentage"`
	BankPercentage       decimal.Decimal `json:"bank_percentage"`
	TotalMonthlyInterest decimal.Decimal `json:"total_monthly_interest"`
	TotalYearlyInterest  decimal.Decimal `json:"total_yearly_interest"`
}

// PerformanceResult bundles the return metrics for a portfolio over a period.
// Nil pointers mean "not computable" for that metric (e.g. non-positive
// Modified Dietz denominator), which is an expected outcome, not an error.
type PerformanceResult struct {
	XIRR               *decimal.Decimal `json:"xirr,omitempty"`
	ModifiedDietz      *decimal.Decimal `json:"modified_dietz,omitempty"`
	TimeWeightedReturn *decimal.Decimal `json:"time_weighted_return,omitempty"`
	StartValue         decimal.Decimal  `json:"start_value"`
	EndValue           decimal.Decimal  `json:"end_value"`
	ExternalFlowCount  int              `json:"external_flow_count"`
}

// ImportRowError is one structured diagnostic for a rejected CSV row. Row
// numbers are 1-based and offset past the header row.
type ImportRowError struct {
	RowNumber          int    `json:"row_number"`
	FieldName          string `json:"field_name"`
	InvalidValue       string `json:"invalid_value"`
	ErrorCode          string `json:"error_code"`
	Message            string `json:"message"`
	CorrectionGuidance string `json:"correction_guidance"`
}

// ImportResult reports the outcome of a CSV import. Imports are atomic: on any
// invalid row zero rows are committed and Errors carries one entry per invalid
// row (never just the first).
type ImportResult struct {
	RowsImported int              `json:"rows_imported"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}
