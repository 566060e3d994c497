// backend/src/services/linking_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/processors"
)

// marketCurrency maps an exchange to its settlement currency.
var marketCurrency = map[models.Market]string{
	models.MarketTaiwan: "TWD",
	models.MarketUS:     "USD",
	models.MarketUK:     "GBP",
}

type linkingServiceImpl struct {
	db              *sql.DB
	ledgerProcessor processors.LedgerProcessor
	reportService   ReportService
}

// NewLinkingService creates the stock-to-ledger auto-linking service.
func NewLinkingService(db *sql.DB, ledgerProcessor processors.LedgerProcessor, reportService ReportService) LinkingService {
	return &linkingServiceImpl{
		db:              db,
		ledgerProcessor: ledgerProcessor,
		reportService:   reportService,
	}
}

// boundLedgerFor returns the ledger bound to the stock transaction's
// portfolio, or nil when the portfolio has none (unlinked mode).
func (s *linkingServiceImpl) boundLedgerFor(userID int64, stockTx *models.StockTransaction) (*models.CurrencyLedger, error) {
	ledgers, err := FetchLedgers(s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching ledgers: %w", err)
	}
	for i := range ledgers {
		if ledgers[i].PortfolioID != nil && *ledgers[i].PortfolioID == stockTx.PortfolioID {
			return &ledgers[i], nil
		}
	}
	return nil, nil
}

func (s *linkingServiceImpl) checkCurrency(ledger *models.CurrencyLedger, stockTx *models.StockTransaction) error {
	settleCurrency, ok := marketCurrency[stockTx.Market]
	if !ok {
		return fmt.Errorf("%w: unknown market %q", processors.ErrInvalidTransactionType, stockTx.Market)
	}
	if settleCurrency != ledger.Currency {
		return fmt.Errorf("%w: %s trade settles in %s but bound ledger holds %s",
			processors.ErrCurrencyMismatch, stockTx.Market, settleCurrency, ledger.Currency)
	}
	return nil
}

// LinkBuy mirrors a stock buy as a SPEND on the bound ledger: the trade is an
// internal reallocation funded by tracked cash, not an external outflow. A
// portfolio without a bound ledger gets no mirror row. The ledger balance may
// go negative; a shortfall is logged, not rejected.
func (s *linkingServiceImpl) LinkBuy(userID int64, stockTx *models.StockTransaction) (*models.CurrencyTransaction, error) {
	ledger, err := s.boundLedgerFor(userID, stockTx)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, nil
	}
	if err := s.checkCurrency(ledger, stockTx); err != nil {
		return nil, err
	}

	cost := stockTx.Shares.Mul(stockTx.Price).Add(stockTx.Fees)

	existing, err := FetchCurrencyTransactions(s.db, ledger.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching ledger transactions: %w", err)
	}
	if !s.ledgerProcessor.ValidateSpend(existing, cost) {
		logger.L.Warn("Stock buy exceeds ledger balance, ledger going negative",
			"userID", userID, "ledgerID", ledger.ID, "cost", cost.String())
	}

	homeValue := cost.Mul(stockTx.RateOrOne())
	mirror := &models.CurrencyTransaction{
		LedgerID:         ledger.ID,
		Date:             stockTx.Date,
		Type:             models.TxSpend,
		ForeignAmount:    cost,
		HomeAmount:       &homeValue,
		ExchangeRate:     stockTx.ExchangeRate,
		RelatedStockTxID: &stockTx.ID,
		Notes:            fmt.Sprintf("Buy %s %s @ %s", stockTx.Shares, stockTx.Ticker, stockTx.Price),
	}
	if err := s.insertLinkedTransaction(mirror, stockTx); err != nil {
		return nil, err
	}
	s.reportService.InvalidateUserCache(userID)
	return mirror, nil
}

// LinkSell mirrors a stock sell as a STOCK_SELL_INCOME inflow carrying the net
// proceeds (market rounding and fees already applied by the caller).
func (s *linkingServiceImpl) LinkSell(userID int64, stockTx *models.StockTransaction, proceeds decimal.Decimal) (*models.CurrencyTransaction, error) {
	ledger, err := s.boundLedgerFor(userID, stockTx)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, nil
	}
	if err := s.checkCurrency(ledger, stockTx); err != nil {
		return nil, err
	}

	homeValue := proceeds.Mul(stockTx.RateOrOne())
	mirror := &models.CurrencyTransaction{
		LedgerID:         ledger.ID,
		Date:             stockTx.Date,
		Type:             models.TxStockSellIncome,
		ForeignAmount:    proceeds,
		HomeAmount:       &homeValue,
		ExchangeRate:     stockTx.ExchangeRate,
		RelatedStockTxID: &stockTx.ID,
		Notes:            fmt.Sprintf("Sell %s %s @ %s", stockTx.Shares, stockTx.Ticker, stockTx.Price),
	}
	if err := s.insertLinkedTransaction(mirror, stockTx); err != nil {
		return nil, err
	}
	s.reportService.InvalidateUserCache(userID)
	return mirror, nil
}

// insertLinkedTransaction writes the mirror row and back-links the stock
// transaction to it inside one database transaction.
func (s *linkingServiceImpl) insertLinkedTransaction(mirror *models.CurrencyTransaction, stockTx *models.StockTransaction) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	mirror.CreatedAt = time.Now()
	var homeAmount, rate interface{}
	if mirror.HomeAmount != nil {
		homeAmount = mirror.HomeAmount.String()
	}
	if mirror.ExchangeRate != nil {
		rate = mirror.ExchangeRate.String()
	}

	res, err := dbTx.Exec(`
	INSERT INTO currency_transactions
		(ledger_id, date, type, foreign_amount, home_amount, exchange_rate,
		 related_stock_tx_id, is_internal_settlement, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mirror.LedgerID, mirror.Date, string(mirror.Type), mirror.ForeignAmount.String(),
		homeAmount, rate, mirror.RelatedStockTxID, mirror.IsInternalSettlement, mirror.Notes, mirror.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting linked transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	mirror.ID = id

	if _, err := dbTx.Exec(`UPDATE stock_transactions SET linked_currency_tx_id = ? WHERE id = ?`, id, stockTx.ID); err != nil {
		return fmt.Errorf("error back-linking stock transaction: %w", err)
	}
	stockTx.LinkedCurrencyTxID = &id

	return dbTx.Commit()
}
