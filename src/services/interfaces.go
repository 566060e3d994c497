// backend/src/services/interfaces.go
package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// Common service errors.
var (
	ErrParsingFailed = errors.New("csv parsing failed")
	ErrNotFound      = errors.New("resource not found")
	ErrRateLookup    = errors.New("exchange rate lookup failed")
)

// ImportValidationError is returned when a CSV import has invalid rows. It
// carries one diagnostic per bad row; the import commits nothing.
type ImportValidationError struct {
	RowErrors []models.ImportRowError
}

func (e *ImportValidationError) Error() string {
	rows := make([]string, 0, len(e.RowErrors))
	for _, re := range e.RowErrors {
		rows = append(rows, fmt.Sprintf("row %d: %s", re.RowNumber, re.Message))
	}
	return fmt.Sprintf("import validation failed (%d rows): %s", len(e.RowErrors), strings.Join(rows, "; "))
}

// RateSource fetches the conversion rate from one currency into another.
// Implementations may consult a remote provider or a cache.
type RateSource interface {
	Rate(fromCurrency, toCurrency string) (decimal.Decimal, error)
}

// RateService converts foreign amounts into the home currency.
type RateService interface {
	RateToHome(currency string) (decimal.Decimal, error)
	// RateFunc adapts the service to the plain function the processors take.
	RateFunc() func(currency string) (decimal.Decimal, error)
}

// LedgerSummary is the derived view of one ledger the report service returns.
type LedgerSummary struct {
	Ledger              models.CurrencyLedger `json:"ledger"`
	Balance             decimal.Decimal       `json:"balance"`
	TotalCost           decimal.Decimal       `json:"total_cost"`
	WeightedAverageCost decimal.Decimal       `json:"weighted_average_cost"`
	RealizedPnl         decimal.Decimal       `json:"realized_pnl"`
}

// PositionReport is one ticker's position with optional valuation.
type PositionReport struct {
	Position   models.Position       `json:"position"`
	Unrealized *models.UnrealizedPnl `json:"unrealized,omitempty"`
}

// ReportService derives dashboard aggregates from stored transactions. All
// figures are recomputed from history (optionally through a short-lived
// cache); nothing is read from persisted running totals.
type ReportService interface {
	GetPositions(userID, portfolioID int64) ([]PositionReport, error)
	GetLedgerSummaries(userID int64) ([]LedgerSummary, error)
	GetAvailableFunds(userID int64) (*models.FundsSummary, error)
	GetTotalAssets(userID int64) (*models.TotalAssetsSummary, error)
	GetPerformance(userID, portfolioID int64, fromDate, toDate time.Time) (*models.PerformanceResult, error)
	InvalidateUserCache(userID int64)
}

// ImportService ingests ledger transaction CSV files atomically.
type ImportService interface {
	ImportCurrencyTransactions(fileReader io.Reader, userID, ledgerID int64) (*models.ImportResult, error)
}

// LinkingService mirrors stock trades into the portfolio's bound ledger.
type LinkingService interface {
	LinkBuy(userID int64, stockTx *models.StockTransaction) (*models.CurrencyTransaction, error)
	LinkSell(userID int64, stockTx *models.StockTransaction, proceeds decimal.Decimal) (*models.CurrencyTransaction, error)
}
