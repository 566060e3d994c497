package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/famfolio/backend/src/models"
)

func boundLedger(id, portfolioID int64, currency, home string) models.CurrencyLedger {
	pid := portfolioID
	return models.CurrencyLedger{
		ID:           id,
		PortfolioID:  &pid,
		Currency:     currency,
		HomeCurrency: home,
	}
}

func ledgerTx(id, ledgerID int64, typ models.CurrencyTransactionType, foreign, date string) models.CurrencyTransaction {
	tx := curTx(typ, foreign, nil, date)
	tx.ID = id
	tx.LedgerID = ledgerID
	return tx
}

func TestLedgerStrategyEmitsSignedExternalEvents(t *testing.T) {
	strategy := NewLedgerCashFlowStrategy()
	portfolio := models.Portfolio{ID: 1}
	ledgers := []models.CurrencyLedger{boundLedger(10, 1, "USD", "TWD")}

	txs := []models.CurrencyTransaction{
		ledgerTx(1, 10, models.TxDeposit, "1000", "2024-02-01"),
		ledgerTx(2, 10, models.TxWithdraw, "200", "2024-03-01"),
		ledgerTx(3, 10, models.TxExchangeSell, "100", "2024-04-01"),
		ledgerTx(4, 10, models.TxInterest, "5", "2024-05-01"),         // internal return: excluded
		ledgerTx(5, 10, models.TxSpend, "300", "2024-06-01"),          // reallocation: excluded
		ledgerTx(6, 10, models.TxStockSellIncome, "80", "2024-07-01"), // reallocation: excluded
	}

	events := strategy.CashFlowEvents(portfolio, day("2024-01-01"), day("2024-12-31"), nil, ledgers, txs)
	require.Len(t, events, 3)
	assert.True(t, events[0].Amount.Equal(d("1000")))
	assert.True(t, events[1].Amount.Equal(d("-200")))
	assert.True(t, events[2].Amount.Equal(d("-100")))
	assert.Equal(t, CashFlowSourceLedger, events[0].Source)
	assert.Equal(t, "USD", events[0].CurrencyCode)
	assert.Equal(t, int64(1), events[0].TransactionID)
}

func TestLedgerStrategyExcludesInternalSettlements(t *testing.T) {
	strategy := NewLedgerCashFlowStrategy()
	portfolio := models.Portfolio{ID: 1}
	ledgers := []models.CurrencyLedger{boundLedger(10, 1, "USD", "TWD")}
	stockID := int64(7)

	settlement := ledgerTx(1, 10, models.TxExchangeBuy, "500", "2024-02-01")
	settlement.RelatedStockTxID = &stockID
	settlement.IsInternalSettlement = true

	// Genuine top-up: linked for bookkeeping but not a settlement.
	topUp := ledgerTx(2, 10, models.TxExchangeBuy, "800", "2024-03-01")
	topUp.RelatedStockTxID = &stockID
	topUp.Notes = "top-up ahead of the VOO purchase"

	events := strategy.CashFlowEvents(portfolio, day("2024-01-01"), day("2024-12-31"), nil, ledgers,
		[]models.CurrencyTransaction{settlement, topUp})
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].TransactionID)
	assert.True(t, events[0].Amount.Equal(d("800")))
}

func TestLedgerStrategyExcludesExchangeOnHomeLedger(t *testing.T) {
	strategy := NewLedgerCashFlowStrategy()
	portfolio := models.Portfolio{ID: 1}
	ledgers := []models.CurrencyLedger{boundLedger(10, 1, "TWD", "TWD")}

	txs := []models.CurrencyTransaction{
		ledgerTx(1, 10, models.TxExchangeBuy, "1000", "2024-02-01"),
		ledgerTx(2, 10, models.TxExchangeSell, "100", "2024-03-01"),
		ledgerTx(3, 10, models.TxDeposit, "500", "2024-04-01"),
	}
	events := strategy.CashFlowEvents(portfolio, day("2024-01-01"), day("2024-12-31"), nil, ledgers, txs)
	require.Len(t, events, 1)
	assert.Equal(t, int64(3), events[0].TransactionID)
}

func TestLedgerStrategyRespectsPeriodAndBinding(t *testing.T) {
	strategy := NewLedgerCashFlowStrategy()
	portfolio := models.Portfolio{ID: 1}
	ledgers := []models.CurrencyLedger{
		boundLedger(10, 1, "USD", "TWD"),
		boundLedger(11, 2, "USD", "TWD"), // bound elsewhere
	}

	txs := []models.CurrencyTransaction{
		ledgerTx(1, 10, models.TxDeposit, "100", "2023-12-31"), // before period
		ledgerTx(2, 10, models.TxDeposit, "200", "2024-06-01"),
		ledgerTx(3, 11, models.TxDeposit, "300", "2024-06-01"), // other portfolio
		ledgerTx(4, 10, models.TxDeposit, "400", "2025-01-01"), // after period
	}
	events := strategy.CashFlowEvents(portfolio, day("2024-01-01"), day("2024-12-31"), nil, ledgers, txs)
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].TransactionID)
}

func TestStockStrategyEmitsNothing(t *testing.T) {
	strategy := NewStockCashFlowStrategy()
	events := strategy.CashFlowEvents(models.Portfolio{ID: 1}, day("2024-01-01"), day("2024-12-31"),
		[]models.StockTransaction{
			buyTx("VOO", models.MarketUS, "10", "100", "0", dptr("30"), "2024-02-01"),
		}, nil, nil)
	assert.Empty(t, events)
}

func TestStrategyProviderSelection(t *testing.T) {
	provider := NewCashFlowStrategyProvider()
	portfolio := models.Portfolio{ID: 1}
	ledgers := []models.CurrencyLedger{boundLedger(10, 1, "USD", "TWD")}

	withActivity := []models.CurrencyTransaction{
		ledgerTx(1, 10, models.TxDeposit, "100", "2024-06-01"),
	}
	strategy := provider.StrategyFor(portfolio, day("2024-01-01"), day("2024-12-31"), ledgers, withActivity)
	_, isLedger := strategy.(*ledgerCashFlowStrategy)
	assert.True(t, isLedger)

	// No ledger activity in the period: fall back to the stock strategy.
	strategy = provider.StrategyFor(portfolio, day("2025-01-01"), day("2025-12-31"), ledgers, withActivity)
	_, isStock := strategy.(*stockCashFlowStrategy)
	assert.True(t, isStock)
}
