package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/processors"
)

func newTestStockHandler() *StockHandler {
	return &StockHandler{splitProcessor: processors.NewSplitProcessor()}
}

func TestParseMarketAcceptsKnownCodes(t *testing.T) {
	h := newTestStockHandler()

	for raw, want := range map[string]models.Market{
		"TW":  models.MarketTaiwan,
		"us":  models.MarketUS,
		" uk": models.MarketUK,
	} {
		market, err := h.parseMarket(raw, "AAPL")
		require.NoError(t, err, "market %q", raw)
		assert.Equal(t, want, market)
	}
}

func TestParseMarketDetectsFromTickerWhenBlank(t *testing.T) {
	h := newTestStockHandler()

	market, err := h.parseMarket("", "2330")
	require.NoError(t, err)
	assert.Equal(t, models.MarketTaiwan, market)
}

func TestParseMarketRejectsUnknownCode(t *testing.T) {
	h := newTestStockHandler()

	_, err := h.parseMarket("TWN", "2330")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market must be")
}

func TestBuildTransactionRejectsUnknownType(t *testing.T) {
	h := newTestStockHandler()

	base := stockTransactionRequest{
		Ticker: "AAPL",
		Market: "US",
		Shares: "10",
		Price:  "150",
		Date:   "15-01-2024",
	}

	base.Type = "BUY"
	tx, err := h.buildTransaction(1, base)
	require.NoError(t, err)
	assert.Equal(t, models.StockBuy, tx.Type)

	// Splits are registry entries, not transactions.
	for _, bad := range []string{"SPLIT", "SHORT", ""} {
		base.Type = bad
		_, err := h.buildTransaction(1, base)
		require.Error(t, err, "type %q", bad)
		assert.Contains(t, err.Error(), "type must be")
	}
}
