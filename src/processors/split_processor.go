// backend/src/processors/split_processor.go
package processors

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// splitProcessorImpl implements the SplitProcessor interface.
type splitProcessorImpl struct{}

// NewSplitProcessor creates a new instance of SplitProcessor.
func NewSplitProcessor() SplitProcessor {
	return &splitProcessorImpl{}
}

// CumulativeSplitRatio returns the product of the ratios of every split for
// (symbol, market) dated strictly after asOf. A transaction on or after a
// split date is unaffected by that split; a transaction before it compounds
// every later split multiplicatively.
func (p *splitProcessorImpl) CumulativeSplitRatio(symbol string, market models.Market, asOf time.Time, splits []models.StockSplit) decimal.Decimal {
	ratio := decimal.NewFromInt(1)
	for _, s := range splits {
		if s.Symbol != symbol || s.Market != market {
			continue
		}
		if s.SplitDate.After(asOf) {
			ratio = ratio.Mul(s.Ratio)
		}
	}
	return ratio
}

// AdjustedShares scales a historical share count by the cumulative split ratio.
func (p *splitProcessorImpl) AdjustedShares(shares decimal.Decimal, symbol string, market models.Market, date time.Time, splits []models.StockSplit) decimal.Decimal {
	return shares.Mul(p.CumulativeSplitRatio(symbol, market, date, splits))
}

// AdjustedPrice divides a historical price by the cumulative split ratio. No
// flooring is applied: adjustedShares*adjustedPrice must equal shares*price
// exactly, including non-integer results (163 / 4 = 40.75).
func (p *splitProcessorImpl) AdjustedPrice(price decimal.Decimal, symbol string, market models.Market, date time.Time, splits []models.StockSplit) decimal.Decimal {
	ratio := p.CumulativeSplitRatio(symbol, market, date, splits)
	if ratio.IsZero() {
		return price
	}
	return price.Div(ratio)
}

// DetectMarket infers the market from the ticker's shape: a leading digit
// means Taiwan (e.g. "0050", "2330"), a ".L" suffix means London, anything
// else alphabetic defaults to the US market.
func (p *splitProcessorImpl) DetectMarket(symbol string) models.Market {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return models.MarketUS
	}
	if unicode.IsDigit(rune(trimmed[0])) {
		return models.MarketTaiwan
	}
	if strings.HasSuffix(strings.ToUpper(trimmed), ".L") {
		return models.MarketUK
	}
	return models.MarketUS
}
