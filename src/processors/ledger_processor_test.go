package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/famfolio/backend/src/models"
)

func curTx(typ models.CurrencyTransactionType, foreign string, rate *decimal.Decimal, date string) models.CurrencyTransaction {
	return models.CurrencyTransaction{
		Type:          typ,
		ForeignAmount: d(foreign),
		ExchangeRate:  rate,
		Date:          day(date),
	}
}

func TestCalculateBalanceSignedSum(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxTransferInBalance, "1000", dptr("31"), "2024-01-01"),
		curTx(models.TxExchangeBuy, "500", dptr("31.5"), "2024-02-01"),
		curTx(models.TxInterest, "2.5", nil, "2024-03-01"),
		curTx(models.TxWithdraw, "200", nil, "2024-04-01"),
		curTx(models.TxSpend, "300", nil, "2024-05-01"),
	}

	balance := p.CalculateBalance(txs)
	require.True(t, balance.Equal(d("1002.5")), "balance = %s", balance)
}

func TestCalculateBalanceMayGoNegative(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxDeposit, "100", nil, "2024-01-01"),
		curTx(models.TxWithdraw, "150", nil, "2024-02-01"),
	}
	balance := p.CalculateBalance(txs)
	require.True(t, balance.Equal(d("-50")), "balance = %s", balance)
}

func TestWeightedAverageCostTracksCostBearingInflows(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "1000", dptr("30"), "2024-01-01"),
		curTx(models.TxExchangeBuy, "1000", dptr("32"), "2024-02-01"),
	}
	avg := p.CalculateWeightedAverageCost(txs)
	require.True(t, avg.Equal(d("31")), "avg = %s", avg)
	require.True(t, p.CalculateTotalCost(txs).Equal(d("62000")))
}

func TestWeightedAverageCostDilutedByZeroCostInflows(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "1000", dptr("30"), "2024-01-01"),
		curTx(models.TxInterest, "1000", nil, "2024-02-01"),
	}
	// 30000 cost over 2000 units -> 15/unit. Cost is diluted, never negative.
	avg := p.CalculateWeightedAverageCost(txs)
	require.True(t, avg.Equal(d("15")), "avg = %s", avg)
	require.True(t, p.CalculateTotalCost(txs).Equal(d("30000")))
}

func TestOutflowRemovesAtAverageCostLeavingAverageUnchanged(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "1000", dptr("30"), "2024-01-01"),
		curTx(models.TxExchangeBuy, "1000", dptr("32"), "2024-02-01"),
		curTx(models.TxSpend, "500", nil, "2024-03-01"),
	}
	// avg 31 before spend; spend removes 500*31 = 15500.
	require.True(t, p.CalculateWeightedAverageCost(txs).Equal(d("31")))
	require.True(t, p.CalculateTotalCost(txs).Equal(d("46500")))
	require.True(t, p.CalculateBalance(txs).Equal(d("1500")))
}

func TestCalculateRealizedPnlOnExchangeSell(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "1000", dptr("30"), "2024-01-01"),
		curTx(models.TxExchangeSell, "400", dptr("33"), "2024-06-01"),
	}
	// proceeds 400*33 = 13200; cost removed 400*30 = 12000; pnl 1200.
	pnl := p.CalculateRealizedPnl(txs)
	require.True(t, pnl.Equal(d("1200")), "pnl = %s", pnl)
}

func TestTotalCostNeverNegative(t *testing.T) {
	p := NewLedgerProcessor()

	// Withdraw more than the balance: cost bottoms out at zero.
	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "100", dptr("30"), "2024-01-01"),
		curTx(models.TxWithdraw, "150", nil, "2024-02-01"),
	}
	cost := p.CalculateTotalCost(txs)
	assert.False(t, cost.IsNegative(), "cost = %s", cost)
	assert.True(t, p.CalculateWeightedAverageCost(txs).IsZero())
}

func TestValidateSpendBoundary(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxDeposit, "1000", nil, "2024-01-01"),
	}
	assert.True(t, p.ValidateSpend(txs, d("1000")))
	assert.False(t, p.ValidateSpend(txs, d("1000.01")))
}

func TestEmptyLedgerInputs(t *testing.T) {
	p := NewLedgerProcessor()

	assert.True(t, p.CalculateBalance(nil).IsZero())
	assert.True(t, p.CalculateTotalCost(nil).IsZero())
	assert.True(t, p.CalculateWeightedAverageCost(nil).IsZero())
	assert.True(t, p.CalculateRealizedPnl(nil).IsZero())
	assert.True(t, p.ValidateSpend(nil, decimal.Zero))
	assert.False(t, p.ValidateSpend(nil, d("0.01")))
}

func TestLedgerReplayIdempotent(t *testing.T) {
	p := NewLedgerProcessor()

	txs := []models.CurrencyTransaction{
		curTx(models.TxExchangeBuy, "1000", dptr("30"), "2024-01-01"),
		curTx(models.TxInterest, "5", nil, "2024-02-01"),
		curTx(models.TxExchangeSell, "300", dptr("32"), "2024-03-01"),
	}
	first := p.CalculateBalance(txs)
	second := p.CalculateBalance(txs)
	assert.True(t, first.Equal(second))

	firstAvg := p.CalculateWeightedAverageCost(txs)
	secondAvg := p.CalculateWeightedAverageCost(txs)
	assert.True(t, firstAvg.Equal(secondAvg))
}
