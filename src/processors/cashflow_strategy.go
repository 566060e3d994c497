// backend/src/processors/cashflow_strategy.go
package processors

import (
	"sort"
	"time"

	"github.com/username/famfolio/backend/src/models"
)

// Cash-flow event sources.
const (
	CashFlowSourceLedger = "ledger"
	CashFlowSourceStock  = "stock"
)

// ledgerCashFlowStrategy derives external cash-flow events from the currency
// ledger bound to the portfolio. This is the authoritative strategy in the
// closed-loop model: stock buys and sells are internal reallocations funded by
// the ledger, so only ledger events can cross the system boundary.
type ledgerCashFlowStrategy struct{}

// NewLedgerCashFlowStrategy creates the ledger-backed strategy.
func NewLedgerCashFlowStrategy() CashFlowStrategy {
	return &ledgerCashFlowStrategy{}
}

// CashFlowEvents emits one signed event per ledger transaction in
// [fromDate, toDate] classified as explicit-external. Inflow types emit
// positive amounts, outflow types negative, both equal to the foreign amount
// magnitude. Internal settlements are excluded even when their raw type would
// qualify, and exchange buy/sell rows on a home-currency ledger are excluded
// entirely (they are not meaningful FX events there).
func (s *ledgerCashFlowStrategy) CashFlowEvents(portfolio models.Portfolio, fromDate, toDate time.Time, stockTransactions []models.StockTransaction, ledgers []models.CurrencyLedger, currencyTransactions []models.CurrencyTransaction) []models.CashFlowEvent {
	boundLedgers := make(map[int64]models.CurrencyLedger)
	for _, l := range ledgers {
		if l.PortfolioID != nil && *l.PortfolioID == portfolio.ID {
			boundLedgers[l.ID] = l
		}
	}

	var events []models.CashFlowEvent
	for _, tx := range currencyTransactions {
		ledger, ok := boundLedgers[tx.LedgerID]
		if !ok {
			continue
		}
		if tx.Date.Before(fromDate) || tx.Date.After(toDate) {
			continue
		}

		class := Classify(tx.Type, ledger.Currency, ledger.HomeCurrency)
		if !class.IsExternal() {
			continue
		}
		if IsInternalSettlement(tx) {
			continue
		}

		amount := tx.ForeignAmount.Abs()
		if class == FlowExternalOutflow {
			amount = amount.Neg()
		}
		events = append(events, models.CashFlowEvent{
			Date:          tx.Date,
			Amount:        amount,
			TransactionID: tx.ID,
			Source:        CashFlowSourceLedger,
			CurrencyCode:  ledger.Currency,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// stockCashFlowStrategy is the fallback when no bound ledger has activity in
// the period. In the closed-loop model stock buys and sells are internal
// reallocations, so this strategy emits no events by itself.
type stockCashFlowStrategy struct{}

// NewStockCashFlowStrategy creates the stock-transaction strategy.
func NewStockCashFlowStrategy() CashFlowStrategy {
	return &stockCashFlowStrategy{}
}

func (s *stockCashFlowStrategy) CashFlowEvents(portfolio models.Portfolio, fromDate, toDate time.Time, stockTransactions []models.StockTransaction, ledgers []models.CurrencyLedger, currencyTransactions []models.CurrencyTransaction) []models.CashFlowEvent {
	return nil
}

// CashFlowStrategyProvider selects the strategy for a portfolio and period.
type CashFlowStrategyProvider struct {
	ledgerStrategy CashFlowStrategy
	stockStrategy  CashFlowStrategy
}

// NewCashFlowStrategyProvider creates a provider with the two built-in
// strategies.
func NewCashFlowStrategyProvider() *CashFlowStrategyProvider {
	return &CashFlowStrategyProvider{
		ledgerStrategy: NewLedgerCashFlowStrategy(),
		stockStrategy:  NewStockCashFlowStrategy(),
	}
}

// StrategyFor returns the ledger strategy when a ledger bound to the portfolio
// has any transaction in [fromDate, toDate]; otherwise the stock strategy.
func (p *CashFlowStrategyProvider) StrategyFor(portfolio models.Portfolio, fromDate, toDate time.Time, ledgers []models.CurrencyLedger, currencyTransactions []models.CurrencyTransaction) CashFlowStrategy {
	bound := make(map[int64]bool)
	for _, l := range ledgers {
		if l.PortfolioID != nil && *l.PortfolioID == portfolio.ID {
			bound[l.ID] = true
		}
	}
	for _, tx := range currencyTransactions {
		if !bound[tx.LedgerID] {
			continue
		}
		if tx.Date.Before(fromDate) || tx.Date.After(toDate) {
			continue
		}
		return p.ledgerStrategy
	}
	return p.stockStrategy
}
