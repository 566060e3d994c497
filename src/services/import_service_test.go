package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCommitsAllValidRows(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "USD")
	svc := NewImportService(db, newTestReportService(t, db))

	csvData := `date,type,currency,foreign_amount,home_amount,exchange_rate,notes
15-01-2024,DEPOSIT,USD,1000,30500,30.5,funding
20-01-2024,WITHDRAW,USD,200,,,cash out
`
	result, err := svc.ImportCurrencyTransactions(strings.NewReader(csvData), userID, ledgerID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsImported)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, countRows(t, db, "currency_transactions"))

	txs, err := FetchCurrencyTransactions(db, ledgerID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "DEPOSIT", string(txs[0].Type))
	assert.Equal(t, "1000", txs[0].ForeignAmount.String())
	require.NotNil(t, txs[0].HomeAmount)
	assert.Equal(t, "30500", txs[0].HomeAmount.String())
	assert.Nil(t, txs[1].HomeAmount)
	assert.False(t, txs[0].IsInternalSettlement)
	assert.Nil(t, txs[0].RelatedStockTxID)
}

func TestImportRejectsWholeFileOnSingleBadRow(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "USD")
	svc := NewImportService(db, newTestReportService(t, db))

	csvData := `date,type,currency,foreign_amount,home_amount,exchange_rate,notes
15-01-2024,DEPOSIT,USD,1000,,,ok row
99-99-2024,DEPOSIT,USD,500,,,bad date
`
	result, err := svc.ImportCurrencyTransactions(strings.NewReader(csvData), userID, ledgerID)
	require.Error(t, err)

	var validationErr *ImportValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Len(t, validationErr.RowErrors, 1)
	assert.Equal(t, 3, validationErr.RowErrors[0].RowNumber)
	assert.Equal(t, CodeInvalidDate, validationErr.RowErrors[0].ErrorCode)

	require.NotNil(t, result)
	assert.Zero(t, result.RowsImported)
	// Nothing from the valid row either.
	assert.Zero(t, countRows(t, db, "currency_transactions"))
}

func TestImportReportsEveryBadField(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "USD")
	svc := NewImportService(db, newTestReportService(t, db))

	csvData := `date,type,currency,foreign_amount,home_amount,exchange_rate,notes
bad,NONSENSE,EUR,-5,zero,abc,everything wrong
`
	_, err := svc.ImportCurrencyTransactions(strings.NewReader(csvData), userID, ledgerID)
	require.Error(t, err)

	var validationErr *ImportValidationError
	require.True(t, errors.As(err, &validationErr))

	codes := make(map[string]bool)
	for _, rowErr := range validationErr.RowErrors {
		assert.Equal(t, 2, rowErr.RowNumber)
		assert.NotEmpty(t, rowErr.Message)
		assert.NotEmpty(t, rowErr.CorrectionGuidance)
		codes[rowErr.ErrorCode] = true
	}
	assert.True(t, codes[CodeInvalidDate])
	assert.True(t, codes[CodeInvalidType])
	assert.True(t, codes[CodeCurrencyMismatch])
	assert.True(t, codes[CodeInvalidAmount])
	assert.True(t, codes[CodeInvalidRate])
}

func TestImportRejectsExchangeOnHomeLedger(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "TWD")
	svc := NewImportService(db, newTestReportService(t, db))

	csvData := `date,type,currency,foreign_amount,home_amount,exchange_rate,notes
15-01-2024,EXCHANGE_BUY,TWD,1000,,,
`
	_, err := svc.ImportCurrencyTransactions(strings.NewReader(csvData), userID, ledgerID)
	require.Error(t, err)

	var validationErr *ImportValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Len(t, validationErr.RowErrors, 1)
	assert.Equal(t, CodeTypeNotAllowed, validationErr.RowErrors[0].ErrorCode)
}

func TestImportRejectsUnknownLedger(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	svc := NewImportService(db, newTestReportService(t, db))

	_, err := svc.ImportCurrencyTransactions(strings.NewReader("x"), userID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportRejectsMalformedFile(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db)
	ledgerID := seedLedger(t, db, userID, nil, "USD")
	svc := NewImportService(db, newTestReportService(t, db))

	_, err := svc.ImportCurrencyTransactions(strings.NewReader("date,kind\n"), userID, ledgerID)
	assert.ErrorIs(t, err, ErrParsingFailed)
}
