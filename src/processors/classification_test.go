package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/famfolio/backend/src/models"
)

func TestClassifyNonHomeLedger(t *testing.T) {
	cases := []struct {
		txType models.CurrencyTransactionType
		want   FlowClass
	}{
		{models.TxTransferInBalance, FlowExternalInflow},
		{models.TxDeposit, FlowExternalInflow},
		{models.TxOtherIncome, FlowExternalInflow},
		{models.TxWithdraw, FlowExternalOutflow},
		{models.TxOtherExpense, FlowExternalOutflow},
		{models.TxExchangeBuy, FlowExternalInflow},
		{models.TxExchangeSell, FlowExternalOutflow},
		{models.TxInterest, FlowInternalReturn},
		{models.TxDividend, FlowInternalReturn},
		{models.TxSpend, FlowInternalReallocation},
		{models.TxStockSellIncome, FlowInternalReallocation},
	}
	for _, tc := range cases {
		got := Classify(tc.txType, "USD", "TWD")
		assert.Equal(t, tc.want, got, "type %s", tc.txType)
	}
}

func TestClassifyHomeLedgerExchangeInvalid(t *testing.T) {
	assert.Equal(t, FlowInvalid, Classify(models.TxExchangeBuy, "TWD", "TWD"))
	assert.Equal(t, FlowInvalid, Classify(models.TxExchangeSell, "TWD", "TWD"))

	// Everything else is unchanged on a home-currency ledger.
	assert.Equal(t, FlowExternalInflow, Classify(models.TxDeposit, "TWD", "TWD"))
	assert.Equal(t, FlowExternalOutflow, Classify(models.TxWithdraw, "TWD", "TWD"))
	assert.Equal(t, FlowInternalReturn, Classify(models.TxInterest, "TWD", "TWD"))
	assert.Equal(t, FlowInternalReallocation, Classify(models.TxSpend, "TWD", "TWD"))
}

func TestClassifyUnknownType(t *testing.T) {
	assert.Equal(t, FlowInvalid, Classify(models.CurrencyTransactionType("BOGUS"), "USD", "TWD"))
}

func TestFlowClassIsExternal(t *testing.T) {
	assert.True(t, FlowExternalInflow.IsExternal())
	assert.True(t, FlowExternalOutflow.IsExternal())
	assert.False(t, FlowInternalReallocation.IsExternal())
	assert.False(t, FlowInternalReturn.IsExternal())
	assert.False(t, FlowInvalid.IsExternal())
}

func TestIsInternalSettlement(t *testing.T) {
	stockID := int64(42)

	// Explicit flag is authoritative.
	assert.True(t, IsInternalSettlement(models.CurrencyTransaction{IsInternalSettlement: true}))

	// A stock link alone does not make a settlement: a genuine top-up
	// exchange may carry it for bookkeeping.
	assert.False(t, IsInternalSettlement(models.CurrencyTransaction{
		RelatedStockTxID: &stockID,
		Notes:            "monthly top-up before the purchase",
	}))

	// Legacy rows: stock link plus a marker in the notes.
	assert.True(t, IsInternalSettlement(models.CurrencyTransaction{
		RelatedStockTxID: &stockID,
		Notes:            "Internal FX adjustment for trade settlement",
	}))
	assert.True(t, IsInternalSettlement(models.CurrencyTransaction{
		RelatedStockTxID: &stockID,
		Notes:            "fx fallback applied",
	}))

	// Marker without a stock link is advisory text only.
	assert.False(t, IsInternalSettlement(models.CurrencyTransaction{
		Notes: "internal fx",
	}))
}
