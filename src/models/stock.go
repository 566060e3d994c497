// backend/src/models/stock.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market identifies the exchange a ticker trades on. It controls the
// rounding convention applied to sale proceeds.
type Market string

const (
	MarketTaiwan Market = "TW"
	MarketUS     Market = "US"
	MarketUK     Market = "UK"
)

// StockTransactionType enumerates the supported stock transaction kinds.
// Splits are not transactions: they live in the split registry (StockSplit)
// and are applied during position replay.
type StockTransactionType string

const (
	StockBuy        StockTransactionType = "BUY"
	StockSell       StockTransactionType = "SELL"
	StockAdjustment StockTransactionType = "ADJUSTMENT"
)

// StockTransaction is a single buy/sell/adjustment record for a ticker.
// Shares carry at most 4 decimal places; Price and Fees are in the source
// currency. ExchangeRate is nil when no home-currency conversion applies
// (home-market trades).
type StockTransaction struct {
	ID                 int64                `json:"id,omitempty"`
	PortfolioID        int64                `json:"portfolio_id"`
	Ticker             string               `json:"ticker"`
	Market             Market               `json:"market"`
	Type               StockTransactionType `json:"type"`
	Shares             decimal.Decimal      `json:"shares"`
	Price              decimal.Decimal      `json:"price"`
	ExchangeRate       *decimal.Decimal     `json:"exchange_rate,omitempty"`
	Fees               decimal.Decimal      `json:"fees"`
	Date               time.Time            `json:"date"`
	LinkedCurrencyTxID *int64               `json:"linked_currency_tx_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at,omitempty"`
}

// RateOrOne returns the transaction's exchange rate, or 1 when none is set.
func (t StockTransaction) RateOrOne() decimal.Decimal {
	if t.ExchangeRate == nil {
		return decimal.NewFromInt(1)
	}
	return *t.ExchangeRate
}

// Position is the derived state of a ticker holding: total shares, total cost
// in home currency, and the moving weighted-average cost per share. All three
// are zero when the position is flat.
type Position struct {
	Ticker          string          `json:"ticker"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	TotalCostHome   decimal.Decimal `json:"total_cost_home"`
	AverageCostHome decimal.Decimal `json:"average_cost_home"`
}

// UnrealizedPnl is the valuation of an open position at a current price.
type UnrealizedPnl struct {
	CurrentValueHome decimal.Decimal `json:"current_value_home"`
	Pnl              decimal.Decimal `json:"pnl"`
	PnlPercentage    decimal.Decimal `json:"pnl_percentage"`
}

// StockSplit is a registered split event. Transactions dated strictly before
// SplitDate are adjusted by Ratio; transactions on or after are not.
type StockSplit struct {
	ID        int64           `json:"id,omitempty"`
	Symbol    string          `json:"symbol"`
	Market    Market          `json:"market"`
	SplitDate time.Time       `json:"split_date"`
	Ratio     decimal.Decimal `json:"ratio"`
	Note      string          `json:"note,omitempty"`
}
