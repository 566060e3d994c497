package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCurrencyTx(t *testing.T, db *sql.DB, ledgerID int64, date time.Time, txType, foreignAmount, homeAmount string) {
	t.Helper()
	var home interface{}
	if homeAmount != "" {
		home = homeAmount
	}
	_, err := db.Exec(`
	INSERT INTO currency_transactions (ledger_id, date, type, foreign_amount, home_amount)
	VALUES (?, ?, ?, ?, ?)`, ledgerID, date, txType, foreignAmount, home)
	require.NoError(t, err)
}

func seedSnapshot(t *testing.T, db *sql.DB, portfolioID int64, date time.Time, before, after string) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO portfolio_snapshots (portfolio_id, date, value_before, value_after)
	VALUES (?, ?, ?, ?)`, portfolioID, date, before, after)
	require.NoError(t, err)
}

func TestGetPositionsAppliesSplitAdjustments(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	portfolioID := seedPortfolio(t, db, userID)
	svc := newTestReportService(t, db)

	// Pre-split buy, then a 2-for-1 split, then a post-split buy at half price.
	_, err := db.Exec(`
	INSERT INTO stock_transactions (portfolio_id, ticker, market, type, shares, price, fees, date)
	VALUES (?, '2330', 'TW', 'BUY', '10', '1000', '0', ?),
	       (?, '2330', 'TW', 'BUY', '10', '500', '0', ?)`,
		portfolioID, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		portfolioID, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = db.Exec(`
	INSERT INTO stock_splits (symbol, market, split_date, ratio, note)
	VALUES ('2330', 'TW', ?, '2', '')`, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	reports, err := svc.GetPositions(userID, portfolioID)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	position := reports[0].Position
	assert.Equal(t, "2330", position.Ticker)
	assert.Equal(t, "30", position.TotalShares.String())
	assert.Equal(t, "15000", position.TotalCostHome.String())
	assert.Equal(t, "500", position.AverageCostHome.String())
}

func TestGetPositionsOmitsFlatPositions(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	portfolioID := seedPortfolio(t, db, userID)
	svc := newTestReportService(t, db)

	_, err := db.Exec(`
	INSERT INTO stock_transactions (portfolio_id, ticker, market, type, shares, price, fees, date)
	VALUES (?, '0050', 'TW', 'BUY', '10', '100', '0', ?),
	       (?, '0050', 'TW', 'SELL', '10', '120', '0', ?)`,
		portfolioID, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		portfolioID, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	reports, err := svc.GetPositions(userID, portfolioID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestGetPositionsRejectsForeignPortfolio(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	svc := newTestReportService(t, db)

	_, err := svc.GetPositions(userID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLedgerSummariesReplaysHistory(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "USD")
	svc := newTestReportService(t, db)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedCurrencyTx(t, db, ledgerID, base, "EXCHANGE_BUY", "1000", "30000")
	seedCurrencyTx(t, db, ledgerID, base.AddDate(0, 1, 0), "INTEREST", "500", "")
	seedCurrencyTx(t, db, ledgerID, base.AddDate(0, 2, 0), "SPEND", "300", "")
	seedCurrencyTx(t, db, ledgerID, base.AddDate(0, 3, 0), "EXCHANGE_SELL", "200", "4800")

	summaries, err := svc.GetLedgerSummaries(userID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, "1000", summary.Balance.String())
	assert.Equal(t, "20000", summary.TotalCost.String())
	assert.Equal(t, "20", summary.WeightedAverageCost.String())
	assert.Equal(t, "800", summary.RealizedPnl.String())
	// Derived values are copied onto the ledger for response payloads.
	assert.Equal(t, "1000", summary.Ledger.Balance.String())
	assert.Equal(t, "20", summary.Ledger.AverageCost.String())
}

func TestGetLedgerSummariesCachesUntilInvalidated(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "TWD")
	svc := newTestReportService(t, db)

	seedCurrencyTx(t, db, ledgerID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "DEPOSIT", "1000", "1000")

	summaries, err := svc.GetLedgerSummaries(userID)
	require.NoError(t, err)
	assert.Equal(t, "1000", summaries[0].Balance.String())

	// A direct write is invisible until the cache is dropped.
	seedCurrencyTx(t, db, ledgerID, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "DEPOSIT", "500", "500")

	summaries, err = svc.GetLedgerSummaries(userID)
	require.NoError(t, err)
	assert.Equal(t, "1000", summaries[0].Balance.String())

	svc.InvalidateUserCache(userID)

	summaries, err = svc.GetLedgerSummaries(userID)
	require.NoError(t, err)
	assert.Equal(t, "1500", summaries[0].Balance.String())
}

func TestGetAvailableFundsRollsUpAccountsAndInstallments(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "TWD")
	svc := newTestReportService(t, db)

	seedCurrencyTx(t, db, ledgerID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "DEPOSIT", "1000", "1000")
	_, err := db.Exec(`
	INSERT INTO bank_accounts (user_id, bank_name, currency, total_assets, interest_rate, interest_cap)
	VALUES (?, 'Mega Bank', 'TWD', '500', '1.5', '0')`, userID)
	require.NoError(t, err)
	_, err = db.Exec(`
	INSERT INTO installments (user_id, description, total_amount, number_of_installments, remaining_installments)
	VALUES (?, 'appliance', '600', 6, 3)`, userID)
	require.NoError(t, err)

	funds, err := svc.GetAvailableFunds(userID)
	require.NoError(t, err)
	assert.Equal(t, "1500", funds.TotalBankAssets.String())
	assert.Equal(t, "300", funds.UnpaidInstallmentBalance.String())
	assert.Equal(t, "1200", funds.AvailableFunds.String())
}

func TestGetTotalAssetsCombinesInvestmentsAndBank(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	portfolioID := seedPortfolio(t, db, userID)
	svc := newTestReportService(t, db)

	_, err := db.Exec(`
	INSERT INTO stock_transactions (portfolio_id, ticker, market, type, shares, price, fees, date)
	VALUES (?, '2330', 'TW', 'BUY', '100', '600', '0', ?)`,
		portfolioID, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = db.Exec(`
	INSERT INTO bank_accounts (user_id, bank_name, currency, total_assets, interest_rate, interest_cap)
	VALUES (?, 'Mega Bank', 'TWD', '40000', '1', '0')`, userID)
	require.NoError(t, err)

	summary, err := svc.GetTotalAssets(userID)
	require.NoError(t, err)
	assert.Equal(t, "60000", summary.InvestmentTotal.String())
	assert.Equal(t, "40000", summary.BankTotal.String())
	assert.Equal(t, "100000", summary.GrandTotal.String())
}

func TestGetPerformanceDerivesAllThreeMetrics(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	portfolioID := seedPortfolio(t, db, userID)
	ledgerID := seedLedger(t, db, userID, &portfolioID, "TWD")
	svc := newTestReportService(t, db)

	fromDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	toDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	// Opening valuation sits just before the period so the chain starts clean.
	seedSnapshot(t, db, portfolioID, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "10000", "10000")
	// Mid-period deposit of 1000 with its valuation boundary.
	seedCurrencyTx(t, db, ledgerID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "DEPOSIT", "1000", "1000")
	seedSnapshot(t, db, portfolioID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "10500", "11500")
	seedSnapshot(t, db, portfolioID, toDate, "12000", "12000")

	result, err := svc.GetPerformance(userID, portfolioID, fromDate, toDate)
	require.NoError(t, err)

	assert.Equal(t, "10000", result.StartValue.String())
	assert.Equal(t, "12000", result.EndValue.String())
	assert.Equal(t, 1, result.ExternalFlowCount)

	require.NotNil(t, result.ModifiedDietz)
	assert.InDelta(t, 0.0945, result.ModifiedDietz.InexactFloat64(), 0.001)

	// 10500/10000 * 12000/11500 - 1
	require.NotNil(t, result.TimeWeightedReturn)
	assert.InDelta(t, 0.0957, result.TimeWeightedReturn.InexactFloat64(), 0.001)

	require.NotNil(t, result.XIRR)
	assert.InDelta(t, 0.095, result.XIRR.InexactFloat64(), 0.02)
}

func TestGetPerformanceWithoutBoundLedgerHasNoFlows(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	portfolioID := seedPortfolio(t, db, userID)
	svc := newTestReportService(t, db)

	fromDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	toDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	seedSnapshot(t, db, portfolioID, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "10000", "10000")
	seedSnapshot(t, db, portfolioID, toDate, "11000", "11000")

	result, err := svc.GetPerformance(userID, portfolioID, fromDate, toDate)
	require.NoError(t, err)

	assert.Zero(t, result.ExternalFlowCount)
	require.NotNil(t, result.ModifiedDietz)
	assert.InDelta(t, 0.1, result.ModifiedDietz.InexactFloat64(), 1e-9)
}
