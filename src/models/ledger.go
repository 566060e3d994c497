// backend/src/models/ledger.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyTransactionType enumerates the typed events a currency ledger accepts.
// The set is closed: classification (see processors.Classify) is a pure function
// of this type plus the ledger currency, and every entry path (manual form, CSV
// import, stock auto-linking) runs through the same function.
type CurrencyTransactionType string

const (
	TxTransferInBalance CurrencyTransactionType = "TRANSFER_IN_BALANCE"
	TxDeposit           CurrencyTransactionType = "DEPOSIT"
	TxWithdraw          CurrencyTransactionType = "WITHDRAW"
	TxOtherIncome       CurrencyTransactionType = "OTHER_INCOME"
	TxOtherExpense      CurrencyTransactionType = "OTHER_EXPENSE"
	TxExchangeBuy       CurrencyTransactionType = "EXCHANGE_BUY"
	TxExchangeSell      CurrencyTransactionType = "EXCHANGE_SELL"
	TxInterest          CurrencyTransactionType = "INTEREST"
	TxDividend          CurrencyTransactionType = "DIVIDEND"
	TxSpend             CurrencyTransactionType = "SPEND"
	TxStockSellIncome   CurrencyTransactionType = "STOCK_SELL_INCOME"
)

// ValidCurrencyTransactionTypes lists every accepted transaction type.
var ValidCurrencyTransactionTypes = map[CurrencyTransactionType]bool{
	TxTransferInBalance: true,
	TxDeposit:           true,
	TxWithdraw:          true,
	TxOtherIncome:       true,
	TxOtherExpense:      true,
	TxExchangeBuy:       true,
	TxExchangeSell:      true,
	TxInterest:          true,
	TxDividend:          true,
	TxSpend:             true,
	TxStockSellIncome:   true,
}

// CurrencyLedger tracks cash in one currency for one user. Balance and
// AverageCost are derived from the transaction history on each query and are
// never persisted as running totals. Balance may go negative; it is not
// floored at zero. A ledger may be bound 1:1 to a portfolio via PortfolioID.
type CurrencyLedger struct {
	ID           int64           `json:"id,omitempty"`
	UserID       int64           `json:"user_id"`
	PortfolioID  *int64          `json:"portfolio_id,omitempty"`
	Currency     string          `json:"currency"`
	HomeCurrency string          `json:"home_currency"`
	Balance      decimal.Decimal `json:"balance"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
}

// IsHomeCurrency reports whether the ledger holds the home currency itself.
func (l CurrencyLedger) IsHomeCurrency() bool {
	return l.Currency == l.HomeCurrency
}

// CurrencyTransaction is a typed event on a currency ledger. ForeignAmount is
// always a positive magnitude; the transaction type carries the direction.
// HomeAmount and ExchangeRate are mutually derivable for exchange types
// (homeAmount = foreignAmount * exchangeRate); either may be absent.
// IsInternalSettlement marks rows created purely to settle an internal stock
// trade's FX difference; such rows never count as external cash flow even when
// their type would otherwise qualify. Notes are advisory only.
type CurrencyTransaction struct {
	ID                   int64                   `json:"id,omitempty"`
	LedgerID             int64                   `json:"ledger_id"`
	Date                 time.Time               `json:"date"`
	Type                 CurrencyTransactionType `json:"type"`
	ForeignAmount        decimal.Decimal         `json:"foreign_amount"`
	HomeAmount           *decimal.Decimal        `json:"home_amount,omitempty"`
	ExchangeRate         *decimal.Decimal        `json:"exchange_rate,omitempty"`
	RelatedStockTxID     *int64                  `json:"related_stock_tx_id,omitempty"`
	IsInternalSettlement bool                    `json:"is_internal_settlement"`
	Notes                string                  `json:"notes,omitempty"`
	CreatedAt            time.Time               `json:"created_at,omitempty"`
}

// HomeValue derives the home-currency value of the transaction: the explicit
// home amount wins, then foreignAmount*exchangeRate, then the foreign amount
// itself (home-currency ledgers, where the rate is implicitly 1).
func (t CurrencyTransaction) HomeValue() decimal.Decimal {
	if t.HomeAmount != nil {
		return *t.HomeAmount
	}
	if t.ExchangeRate != nil {
		return t.ForeignAmount.Mul(*t.ExchangeRate)
	}
	return t.ForeignAmount
}

// CashFlowEvent is a derived, signed external cash flow used by the return
// calculators. Positive = inflow, negative = outflow. Only transactions
// classified as explicit-external generate events.
type CashFlowEvent struct {
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID int64           `json:"transaction_id"`
	Source        string          `json:"source"` // "ledger" or "stock"
	CurrencyCode  string          `json:"currency_code"`
}

// ValuationSnapshot marks a cash-flow boundary for time-weighted return
// chaining: the portfolio value just before the flow and just after it.
type ValuationSnapshot struct {
	Date   time.Time       `json:"date"`
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}
