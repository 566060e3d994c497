// backend/src/processors/ledger_processor.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// ledgerProcessorImpl implements the LedgerProcessor interface.
type ledgerProcessorImpl struct{}

// NewLedgerProcessor creates a new instance of LedgerProcessor.
func NewLedgerProcessor() LedgerProcessor {
	return &ledgerProcessorImpl{}
}

// ledgerState is the replayed (balance, totalCostHome, realizedPnl) triple of
// a ledger. Replay is idempotent: the same transaction list always produces
// the same state.
type ledgerState struct {
	balance     decimal.Decimal
	totalCost   decimal.Decimal
	realizedPnl decimal.Decimal
}

func (s ledgerState) averageCost() decimal.Decimal {
	if s.balance.IsPositive() {
		return s.totalCost.Div(s.balance)
	}
	return decimal.Zero
}

// replay walks the transaction stream in the caller-supplied order and applies
// the moving weighted-average cost method:
//
//   - Cost-bearing inflows (exchange buy, deposit, transfer-in balance,
//     stock-sale proceeds) add their foreign amount to the balance and their
//     derived home value to the total cost.
//   - Zero-cost inflows (interest, dividends, other income) add to the balance
//     with no added cost, diluting the average cost downward.
//   - Outflows (exchange sell, withdraw, spend, other expense) remove cost at
//     the current average proportionally, leaving the average for the
//     remaining balance unchanged. Exchange sells realize P&L: home-currency
//     proceeds minus the cost removed.
//
// The balance may go negative (no floor at zero); the total cost never does.
func replay(transactions []models.CurrencyTransaction) ledgerState {
	state := ledgerState{
		balance:     decimal.Zero,
		totalCost:   decimal.Zero,
		realizedPnl: decimal.Zero,
	}

	for _, tx := range transactions {
		switch tx.Type {
		case models.TxExchangeBuy, models.TxDeposit, models.TxTransferInBalance, models.TxStockSellIncome:
			state.balance = state.balance.Add(tx.ForeignAmount)
			state.totalCost = state.totalCost.Add(tx.HomeValue())

		case models.TxInterest, models.TxDividend, models.TxOtherIncome:
			state.balance = state.balance.Add(tx.ForeignAmount)

		case models.TxExchangeSell, models.TxWithdraw, models.TxSpend, models.TxOtherExpense:
			avg := state.averageCost()
			costRemoved := tx.ForeignAmount.Mul(avg)
			if costRemoved.GreaterThan(state.totalCost) {
				costRemoved = state.totalCost
			}
			if tx.Type == models.TxExchangeSell {
				state.realizedPnl = state.realizedPnl.Add(tx.HomeValue().Sub(costRemoved))
			}
			state.totalCost = state.totalCost.Sub(costRemoved)
			state.balance = state.balance.Sub(tx.ForeignAmount)
		}
	}
	return state
}

// CalculateBalance returns the running foreign-currency balance after
// replaying the transaction stream. Empty input yields zero.
func (p *ledgerProcessorImpl) CalculateBalance(transactions []models.CurrencyTransaction) decimal.Decimal {
	return replay(transactions).balance
}

// CalculateTotalCost returns the home-currency cost of the current balance.
func (p *ledgerProcessorImpl) CalculateTotalCost(transactions []models.CurrencyTransaction) decimal.Decimal {
	return replay(transactions).totalCost
}

// CalculateWeightedAverageCost returns the home-currency cost per
// foreign-currency unit, or zero when the balance is not positive.
func (p *ledgerProcessorImpl) CalculateWeightedAverageCost(transactions []models.CurrencyTransaction) decimal.Decimal {
	return replay(transactions).averageCost()
}

// CalculateRealizedPnl returns the accumulated realized P&L of exchange sells.
func (p *ledgerProcessorImpl) CalculateRealizedPnl(transactions []models.CurrencyTransaction) decimal.Decimal {
	return replay(transactions).realizedPnl
}

// ValidateSpend reports whether amount can be spent from the balance the
// transaction stream produces. Spending the exact balance is valid; spending a
// cent more is not. A zero spend against an empty ledger is valid.
func (p *ledgerProcessorImpl) ValidateSpend(transactions []models.CurrencyTransaction, amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(replay(transactions).balance)
}
