// backend/src/processors/classification.go
package processors

import (
	"strings"

	"github.com/username/famfolio/backend/src/models"
)

// FlowClass is the closed set of roles a ledger transaction can play in return
// calculations.
type FlowClass int

const (
	// FlowInvalid marks a type that is not acceptable on the given ledger
	// (unknown types, or currency-exchange types on a home-currency ledger).
	FlowInvalid FlowClass = iota
	// FlowExternalInflow is capital entering the tracked system from outside.
	FlowExternalInflow
	// FlowExternalOutflow is capital leaving the tracked system.
	FlowExternalOutflow
	// FlowInternalReallocation moves value between tracked assets (stock
	// settlement legs); it is neither a contribution nor a withdrawal.
	FlowInternalReallocation
	// FlowInternalReturn is value generated inside the system (interest,
	// dividends); it is part of the return, not an external flow.
	FlowInternalReturn
)

// String returns a readable name for logging.
func (c FlowClass) String() string {
	switch c {
	case FlowExternalInflow:
		return "external_inflow"
	case FlowExternalOutflow:
		return "external_outflow"
	case FlowInternalReallocation:
		return "internal_reallocation"
	case FlowInternalReturn:
		return "internal_return"
	default:
		return "invalid"
	}
}

// IsExternal reports whether the class represents explicit external cash flow.
func (c FlowClass) IsExternal() bool {
	return c == FlowExternalInflow || c == FlowExternalOutflow
}

// Classify maps a currency transaction type to its flow class for a ledger in
// ledgerCurrency with the given home currency. It is the single source of
// truth for the allow/deny matrix: manual entry validation, CSV import
// validation, and cash-flow derivation all call this function, so no second
// mapping can drift from it.
//
// Currency-exchange types are only meaningful on a non-home-currency ledger;
// on a home-currency ledger they classify as FlowInvalid.
func Classify(txType models.CurrencyTransactionType, ledgerCurrency, homeCurrency string) FlowClass {
	homeLedger := strings.EqualFold(ledgerCurrency, homeCurrency)

	switch txType {
	case models.TxTransferInBalance, models.TxDeposit, models.TxOtherIncome:
		return FlowExternalInflow
	case models.TxWithdraw, models.TxOtherExpense:
		return FlowExternalOutflow
	case models.TxExchangeBuy:
		if homeLedger {
			return FlowInvalid
		}
		return FlowExternalInflow
	case models.TxExchangeSell:
		if homeLedger {
			return FlowInvalid
		}
		return FlowExternalOutflow
	case models.TxInterest, models.TxDividend:
		return FlowInternalReturn
	case models.TxSpend, models.TxStockSellIncome:
		return FlowInternalReallocation
	default:
		return FlowInvalid
	}
}

// IsInternalSettlement reports whether a transaction must be excluded from
// external cash flow even when its raw type would qualify. The explicit flag
// set by the stock-linking logic is authoritative; for legacy rows that
// predate the flag, a marker convention in the notes of stock-linked rows is
// honoured. A genuine top-up exchange that merely carries a stock link for
// bookkeeping is not a settlement.
func IsInternalSettlement(tx models.CurrencyTransaction) bool {
	if tx.IsInternalSettlement {
		return true
	}
	if tx.RelatedStockTxID == nil {
		return false
	}
	notes := strings.ToLower(tx.Notes)
	return strings.Contains(notes, "internal fx") || strings.Contains(notes, "fx fallback")
}
