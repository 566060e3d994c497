// backend/src/processors/interfaces.go
package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// Every processor in this package is a pure function over its arguments: no
// I/O, no shared state, safe for concurrent use. Ordering guarantees are
// caller-supplied where the algorithm assumes chronological replay.

// PositionProcessor derives stock positions and P&L from transaction history.
type PositionProcessor interface {
	CalculatePosition(ticker string, transactions []models.StockTransaction) models.Position
	CalculateUnrealizedPnl(position models.Position, currentPrice, currentExchangeRate decimal.Decimal) models.UnrealizedPnl
	CalculateRealizedPnl(position models.Position, sellTx models.StockTransaction) decimal.Decimal
}

// SplitProcessor normalizes historical shares/prices for stock splits.
type SplitProcessor interface {
	CumulativeSplitRatio(symbol string, market models.Market, asOf time.Time, splits []models.StockSplit) decimal.Decimal
	AdjustedShares(shares decimal.Decimal, symbol string, market models.Market, date time.Time, splits []models.StockSplit) decimal.Decimal
	AdjustedPrice(price decimal.Decimal, symbol string, market models.Market, date time.Time, splits []models.StockSplit) decimal.Decimal
	DetectMarket(symbol string) models.Market
}

// LedgerProcessor replays a currency ledger's typed transaction stream.
type LedgerProcessor interface {
	CalculateBalance(transactions []models.CurrencyTransaction) decimal.Decimal
	CalculateTotalCost(transactions []models.CurrencyTransaction) decimal.Decimal
	CalculateWeightedAverageCost(transactions []models.CurrencyTransaction) decimal.Decimal
	CalculateRealizedPnl(transactions []models.CurrencyTransaction) decimal.Decimal
	ValidateSpend(transactions []models.CurrencyTransaction, amount decimal.Decimal) bool
}

// ReturnProcessor computes period returns over an externally supplied
// valuation baseline. Nil results mean "not computable", not failure.
type ReturnProcessor interface {
	CalculateModifiedDietz(startValue, endValue decimal.Decimal, periodStart, periodEnd time.Time, cashFlows []models.CashFlowEvent) *decimal.Decimal
	CalculateTimeWeightedReturn(startValue, endValue decimal.Decimal, snapshots []models.ValuationSnapshot) *decimal.Decimal
}

// XirrProcessor solves the internal rate of return of a dated cash-flow series.
type XirrProcessor interface {
	CalculateXirr(cashFlows []models.CashFlowEvent) *decimal.Decimal
}

// FundsProcessor rolls up ledgers, bank accounts and installment liabilities
// into the available-funds summary as of a given date. The rate function
// converts a non-home currency code to a home-currency multiplier; it must
// never be called for home-currency amounts.
type FundsProcessor interface {
	Calculate(ledgers []models.CurrencyLedger, bankAccounts []models.BankAccount, installments []models.Installment, asOf time.Time, getExchangeRate func(currency string) (decimal.Decimal, error)) (*models.FundsSummary, error)
}

// InterestProcessor projects bank-account interest under the account's cap.
type InterestProcessor interface {
	Calculate(account models.BankAccount) models.InterestEstimate
}

// AssetsProcessor rolls investment and bank totals into the dashboard summary.
type AssetsProcessor interface {
	Calculate(investmentTotal decimal.Decimal, bankAccounts []models.BankAccount) models.TotalAssetsSummary
}

// CashFlowStrategy extracts explicit-external cash-flow events for return
// calculation from one source (stock transactions or a bound currency ledger).
type CashFlowStrategy interface {
	CashFlowEvents(portfolio models.Portfolio, fromDate, toDate time.Time, stockTransactions []models.StockTransaction, ledgers []models.CurrencyLedger, currencyTransactions []models.CurrencyTransaction) []models.CashFlowEvent
}
