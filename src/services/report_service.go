// backend/src/services/report_service.go
package services

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/processors"
)

const (
	ckLedgerSummaries      = "agg_ledger_summaries_user_%d"
	ckAvailableFunds       = "agg_available_funds_user_%d"
	ckTotalAssets          = "agg_total_assets_user_%d"
	ckPositions            = "agg_positions_user_%d_pf_%d"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type reportServiceImpl struct {
	db                *sql.DB
	positionProcessor processors.PositionProcessor
	splitProcessor    processors.SplitProcessor
	ledgerProcessor   processors.LedgerProcessor
	returnProcessor   processors.ReturnProcessor
	xirrProcessor     processors.XirrProcessor
	fundsProcessor    processors.FundsProcessor
	assetsProcessor   processors.AssetsProcessor
	strategyProvider  *processors.CashFlowStrategyProvider
	rateService       RateService
	reportCache       *cache.Cache
}

// NewReportService creates the dashboard aggregation service.
func NewReportService(
	db *sql.DB,
	positionProcessor processors.PositionProcessor,
	splitProcessor processors.SplitProcessor,
	ledgerProcessor processors.LedgerProcessor,
	returnProcessor processors.ReturnProcessor,
	xirrProcessor processors.XirrProcessor,
	fundsProcessor processors.FundsProcessor,
	assetsProcessor processors.AssetsProcessor,
	strategyProvider *processors.CashFlowStrategyProvider,
	rateService RateService,
	reportCache *cache.Cache,
) ReportService {
	return &reportServiceImpl{
		db:                db,
		positionProcessor: positionProcessor,
		splitProcessor:    splitProcessor,
		ledgerProcessor:   ledgerProcessor,
		returnProcessor:   returnProcessor,
		xirrProcessor:     xirrProcessor,
		fundsProcessor:    fundsProcessor,
		assetsProcessor:   assetsProcessor,
		strategyProvider:  strategyProvider,
		rateService:       rateService,
		reportCache:       reportCache,
	}
}

// GetPositions replays a portfolio's stock history into per-ticker positions.
// Registered splits are normalized out first so pre-split lots blend with
// post-split ones at the same cost basis.
func (s *reportServiceImpl) GetPositions(userID, portfolioID int64) ([]PositionReport, error) {
	cacheKey := fmt.Sprintf(ckPositions, userID, portfolioID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]PositionReport), nil
	}

	if _, err := FetchPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}
	txs, err := FetchStockTransactions(s.db, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("fetching stock transactions: %w", err)
	}
	splits, err := FetchStockSplits(s.db)
	if err != nil {
		return nil, fmt.Errorf("fetching stock splits: %w", err)
	}

	adjusted := s.applySplitAdjustments(txs, splits)

	byTicker := make(map[string][]models.StockTransaction)
	for _, tx := range adjusted {
		byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
	}
	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	reports := make([]PositionReport, 0, len(tickers))
	for _, ticker := range tickers {
		position := s.positionProcessor.CalculatePosition(ticker, byTicker[ticker])
		if position.TotalShares.IsZero() && position.TotalCostHome.IsZero() {
			continue
		}
		reports = append(reports, PositionReport{Position: position})
	}

	s.reportCache.Set(cacheKey, reports, DefaultCacheExpiration)
	return reports, nil
}

// applySplitAdjustments rewrites each transaction's shares and price by the
// cumulative ratio of splits dated strictly after it. Total cost per row is
// unchanged by construction.
func (s *reportServiceImpl) applySplitAdjustments(txs []models.StockTransaction, splits []models.StockSplit) []models.StockTransaction {
	if len(splits) == 0 {
		return txs
	}
	adjusted := make([]models.StockTransaction, len(txs))
	for i, tx := range txs {
		adjusted[i] = tx
		adjusted[i].Shares = s.splitProcessor.AdjustedShares(tx.Shares, tx.Ticker, tx.Market, tx.Date, splits)
		adjusted[i].Price = s.splitProcessor.AdjustedPrice(tx.Price, tx.Ticker, tx.Market, tx.Date, splits)
	}
	return adjusted
}

func (s *reportServiceImpl) GetLedgerSummaries(userID int64) ([]LedgerSummary, error) {
	cacheKey := fmt.Sprintf(ckLedgerSummaries, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]LedgerSummary), nil
	}

	ledgers, err := FetchLedgers(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching ledgers: %w", err)
	}

	summaries := make([]LedgerSummary, 0, len(ledgers))
	for _, ledger := range ledgers {
		txs, err := FetchCurrencyTransactions(s.db, ledger.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching transactions for ledger %d: %w", ledger.ID, err)
		}
		summary := LedgerSummary{
			Ledger:              ledger,
			Balance:             s.ledgerProcessor.CalculateBalance(txs),
			TotalCost:           s.ledgerProcessor.CalculateTotalCost(txs),
			WeightedAverageCost: s.ledgerProcessor.CalculateWeightedAverageCost(txs),
			RealizedPnl:         s.ledgerProcessor.CalculateRealizedPnl(txs),
		}
		summary.Ledger.Balance = summary.Balance
		summary.Ledger.AverageCost = summary.WeightedAverageCost
		summaries = append(summaries, summary)
	}

	s.reportCache.Set(cacheKey, summaries, DefaultCacheExpiration)
	return summaries, nil
}

func (s *reportServiceImpl) GetAvailableFunds(userID int64) (*models.FundsSummary, error) {
	cacheKey := fmt.Sprintf(ckAvailableFunds, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.FundsSummary), nil
	}

	summaries, err := s.GetLedgerSummaries(userID)
	if err != nil {
		return nil, err
	}
	ledgers := make([]models.CurrencyLedger, 0, len(summaries))
	for _, summary := range summaries {
		ledgers = append(ledgers, summary.Ledger)
	}

	accounts, err := FetchBankAccounts(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching bank accounts: %w", err)
	}
	installments, err := FetchInstallments(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching installments: %w", err)
	}
	if ledgers == nil {
		ledgers = []models.CurrencyLedger{}
	}
	if accounts == nil {
		accounts = []models.BankAccount{}
	}
	if installments == nil {
		installments = []models.Installment{}
	}

	funds, err := s.fundsProcessor.Calculate(ledgers, accounts, installments, time.Now(), s.rateService.RateFunc())
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, funds, DefaultCacheExpiration)
	return funds, nil
}

func (s *reportServiceImpl) GetTotalAssets(userID int64) (*models.TotalAssetsSummary, error) {
	cacheKey := fmt.Sprintf(ckTotalAssets, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.TotalAssetsSummary), nil
	}

	portfolios, err := FetchPortfolios(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching portfolios: %w", err)
	}
	investmentTotal := decimal.Zero
	for _, portfolio := range portfolios {
		reports, err := s.GetPositions(userID, portfolio.ID)
		if err != nil {
			return nil, err
		}
		for _, report := range reports {
			investmentTotal = investmentTotal.Add(report.Position.TotalCostHome)
		}
	}

	accounts, err := FetchBankAccounts(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching bank accounts: %w", err)
	}

	summary := s.assetsProcessor.Calculate(investmentTotal, accounts)

	s.reportCache.Set(cacheKey, &summary, DefaultCacheExpiration)
	return &summary, nil
}

// GetPerformance derives XIRR, Modified Dietz and time-weighted return for a
// portfolio over [fromDate, toDate]. Start and end values come from the user's
// valuation snapshots; external cash flows come from the selected strategy.
// Any metric may come back nil when its inputs cannot support it.
func (s *reportServiceImpl) GetPerformance(userID, portfolioID int64, fromDate, toDate time.Time) (*models.PerformanceResult, error) {
	portfolio, err := FetchPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	ledgers, err := FetchLedgers(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching ledgers: %w", err)
	}
	currencyTxs, err := FetchCurrencyTransactionsForUser(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching currency transactions: %w", err)
	}
	stockTxs, err := FetchStockTransactions(s.db, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("fetching stock transactions: %w", err)
	}

	strategy := s.strategyProvider.StrategyFor(*portfolio, fromDate, toDate, ledgers, currencyTxs)
	flows := strategy.CashFlowEvents(*portfolio, fromDate, toDate, stockTxs, ledgers, currencyTxs)

	startValue, err := fetchValuationAt(s.db, portfolioID, fromDate)
	if err != nil {
		return nil, err
	}
	endValue, err := fetchValuationAt(s.db, portfolioID, toDate)
	if err != nil {
		return nil, err
	}
	snapshots, err := FetchValuationSnapshots(s.db, portfolioID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	result := &models.PerformanceResult{
		StartValue:        startValue,
		EndValue:          endValue,
		ExternalFlowCount: len(flows),
	}

	result.ModifiedDietz = s.returnProcessor.CalculateModifiedDietz(startValue, endValue, fromDate, toDate, flows)
	result.TimeWeightedReturn = s.returnProcessor.CalculateTimeWeightedReturn(startValue, endValue, snapshots)

	// XIRR convention: buy the portfolio at the start (outflow), absorb each
	// external flow with its sign inverted, sell at the end (inflow).
	xirrFlows := make([]models.CashFlowEvent, 0, len(flows)+2)
	xirrFlows = append(xirrFlows, models.CashFlowEvent{Date: fromDate, Amount: startValue.Neg()})
	for _, flow := range flows {
		xirrFlows = append(xirrFlows, models.CashFlowEvent{
			Date:          flow.Date,
			Amount:        flow.Amount.Neg(),
			TransactionID: flow.TransactionID,
			Source:        flow.Source,
			CurrencyCode:  flow.CurrencyCode,
		})
	}
	xirrFlows = append(xirrFlows, models.CashFlowEvent{Date: toDate, Amount: endValue})
	result.XIRR = s.xirrProcessor.CalculateXirr(xirrFlows)

	return result, nil
}

// fetchValuationAt returns the portfolio value as of a date: the value_after
// of the latest snapshot at or before it, zero when none exists yet.
func fetchValuationAt(db *sql.DB, portfolioID int64, asOf time.Time) (decimal.Decimal, error) {
	query := `
	SELECT value_after
	FROM portfolio_snapshots
	WHERE portfolio_id = ? AND date <= ?
	ORDER BY date DESC, id DESC
	LIMIT 1`
	row := db.QueryRow(query, portfolioID, asOf)

	var value decimal.Decimal
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching valuation for portfolio %d: %w", portfolioID, err)
	}
	return value, nil
}

// InvalidateUserCache drops every cached aggregate for the user. Write paths
// call this after any mutation so the next read recomputes from history.
func (s *reportServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckLedgerSummaries, userID))
	s.reportCache.Delete(fmt.Sprintf(ckAvailableFunds, userID))
	s.reportCache.Delete(fmt.Sprintf(ckTotalAssets, userID))
	for key := range s.reportCache.Items() {
		var keyUser, keyPortfolio int64
		if n, err := fmt.Sscanf(key, ckPositions, &keyUser, &keyPortfolio); err == nil && n == 2 && keyUser == userID {
			s.reportCache.Delete(key)
		}
	}
	logger.L.Debug("Report cache invalidated", "userID", userID)
}
