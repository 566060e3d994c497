// backend/src/processors/position_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// positionProcessorImpl implements the PositionProcessor interface.
type positionProcessorImpl struct{}

// NewPositionProcessor creates a new instance of PositionProcessor.
func NewPositionProcessor() PositionProcessor {
	return &positionProcessorImpl{}
}

// CalculatePosition replays the transaction history for a ticker and returns
// the derived position. The moving weighted-average method is used: each buy
// adds (shares*price + fees) * exchangeRate to the home-currency cost; each
// sell removes cost at the pre-sale average cost per share, so the average for
// the remaining shares is unchanged. Transactions must be supplied in
// chronological order; the caller's order is trusted.
//
// An empty history yields an all-zero position for the ticker.
func (p *positionProcessorImpl) CalculatePosition(ticker string, transactions []models.StockTransaction) models.Position {
	shares := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range transactions {
		if tx.Ticker != ticker {
			continue
		}
		switch tx.Type {
		case models.StockBuy:
			cost := tx.Shares.Mul(tx.Price).Add(tx.Fees).Mul(tx.RateOrOne())
			shares = shares.Add(tx.Shares)
			totalCost = totalCost.Add(cost)
		case models.StockSell:
			if shares.IsZero() {
				continue
			}
			avgCost := totalCost.Div(shares)
			costRemoved := tx.Shares.Mul(avgCost)
			totalCost = totalCost.Sub(costRemoved)
			shares = shares.Sub(tx.Shares)
		}
	}

	position := models.Position{
		Ticker:        ticker,
		TotalShares:   shares,
		TotalCostHome: totalCost,
	}
	if shares.IsPositive() {
		position.AverageCostHome = totalCost.Div(shares)
	} else {
		// A flat position carries no cost. Guard against residual dust from
		// division so the zero-shares/zero-cost invariant holds.
		position.TotalShares = decimal.Zero
		position.TotalCostHome = decimal.Zero
		position.AverageCostHome = decimal.Zero
	}
	return position
}

// CalculateUnrealizedPnl values the position at the given current price and
// exchange rate and returns the unrealized profit, the current home-currency
// value, and the profit percentage. The percentage is zero when the position
// carries no cost.
func (p *positionProcessorImpl) CalculateUnrealizedPnl(position models.Position, currentPrice, currentExchangeRate decimal.Decimal) models.UnrealizedPnl {
	currentValue := position.TotalShares.Mul(currentPrice).Mul(currentExchangeRate)
	pnl := currentValue.Sub(position.TotalCostHome)

	percentage := decimal.Zero
	if position.TotalCostHome.IsPositive() {
		percentage = pnl.Div(position.TotalCostHome).Mul(decimal.NewFromInt(100))
	}

	return models.UnrealizedPnl{
		CurrentValueHome: currentValue,
		Pnl:              pnl,
		PnlPercentage:    percentage,
	}
}

// CalculateRealizedPnl computes the realized profit of a sell against the
// pre-sale position: proceeds minus the cost basis removed at the pre-sale
// average cost per share.
//
// Proceeds follow the market's settlement convention: for Taiwan-market
// tickers the source-currency subtotal (shares*price) is floored to an
// integer before fees are subtracted and the exchange rate applied; all other
// markets keep full decimal precision. Fees reduce proceeds in the source
// currency, before conversion.
func (p *positionProcessorImpl) CalculateRealizedPnl(position models.Position, sellTx models.StockTransaction) decimal.Decimal {
	if !position.TotalShares.IsPositive() {
		return decimal.Zero
	}
	avgCost := position.TotalCostHome.Div(position.TotalShares)
	costBasis := sellTx.Shares.Mul(avgCost)

	subtotal := sellTx.Shares.Mul(sellTx.Price)
	if sellTx.Market == models.MarketTaiwan {
		subtotal = subtotal.Floor()
	}
	proceeds := subtotal.Sub(sellTx.Fees).Mul(sellTx.RateOrOne())

	return proceeds.Sub(costBasis)
}
