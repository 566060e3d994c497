// backend/src/services/import_service.go
package services

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/parsers/ledgercsv"
	"github.com/username/famfolio/backend/src/processors"
	"github.com/username/famfolio/backend/src/security/validation"
)

// Import diagnostic error codes.
const (
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidType      = "INVALID_TYPE"
	CodeTypeNotAllowed   = "TYPE_NOT_ALLOWED"
	CodeInvalidAmount    = "INVALID_AMOUNT"
	CodeInvalidRate      = "INVALID_RATE"
	CodeCurrencyMismatch = "CURRENCY_MISMATCH"
)

type importServiceImpl struct {
	db            *sql.DB
	parser        *ledgercsv.Parser
	reportService ReportService
}

// NewImportService creates the CSV import service.
func NewImportService(db *sql.DB, reportService ReportService) ImportService {
	return &importServiceImpl{
		db:            db,
		parser:        ledgercsv.NewParser(),
		reportService: reportService,
	}
}

// validatedRow is a fully validated CSV row ready for insertion.
type validatedRow struct {
	date          time.Time
	txType        models.CurrencyTransactionType
	foreignAmount decimal.Decimal
	homeAmount    *decimal.Decimal
	exchangeRate  *decimal.Decimal
	notes         string
}

// ImportCurrencyTransactions parses and imports a ledger CSV atomically.
// Every row is validated with the same rules as manual entry; if any row is
// invalid the whole file is rejected and the result carries one diagnostic
// per bad field of every bad row, never just the first.
func (s *importServiceImpl) ImportCurrencyTransactions(fileReader io.Reader, userID, ledgerID int64) (*models.ImportResult, error) {
	ledger, err := FetchLedger(s.db, userID, ledgerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	var validRows []validatedRow
	var rowErrors []models.ImportRowError
	for _, raw := range rows {
		validated, errs := s.validateRow(raw, ledger)
		if len(errs) > 0 {
			rowErrors = append(rowErrors, errs...)
			continue
		}
		validRows = append(validRows, *validated)
	}

	if len(rowErrors) > 0 {
		logger.L.Warn("CSV import rejected", "userID", userID, "ledgerID", ledgerID, "invalidRows", len(rowErrors))
		return &models.ImportResult{RowsImported: 0, Errors: rowErrors}, &ImportValidationError{RowErrors: rowErrors}
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`
	INSERT INTO currency_transactions
		(ledger_id, date, type, foreign_amount, home_amount, exchange_rate,
		 related_stock_tx_id, is_internal_settlement, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, NULL, FALSE, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, row := range validRows {
		var homeAmount, rate interface{}
		if row.homeAmount != nil {
			homeAmount = row.homeAmount.String()
		}
		if row.exchangeRate != nil {
			rate = row.exchangeRate.String()
		}
		if _, err := stmt.Exec(ledgerID, row.date, string(row.txType), row.foreignAmount.String(), homeAmount, rate, row.notes, now); err != nil {
			return nil, fmt.Errorf("error inserting imported transaction: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing import: %w", err)
	}

	s.reportService.InvalidateUserCache(userID)
	logger.L.Info("CSV import committed", "userID", userID, "ledgerID", ledgerID, "rows", len(validRows))
	return &models.ImportResult{RowsImported: len(validRows)}, nil
}

// validateRow applies the manual-entry rules to one raw CSV row and returns
// either the validated row or every field diagnostic found.
func (s *importServiceImpl) validateRow(raw ledgercsv.RawRow, ledger *models.CurrencyLedger) (*validatedRow, []models.ImportRowError) {
	var errs []models.ImportRowError
	addErr := func(field, value, code, message, guidance string) {
		errs = append(errs, models.ImportRowError{
			RowNumber:          raw.LineNumber,
			FieldName:          field,
			InvalidValue:       value,
			ErrorCode:          code,
			Message:            message,
			CorrectionGuidance: guidance,
		})
	}

	date, err := validation.ValidateDateString(raw.Date, "date")
	if err != nil {
		addErr("date", raw.Date, CodeInvalidDate, err.Error(), "Use DD-MM-YYYY, e.g. 05-03-2024.")
	}

	txType := models.CurrencyTransactionType(strings.ToUpper(strings.TrimSpace(raw.Type)))
	if !models.ValidCurrencyTransactionTypes[txType] {
		addErr("type", raw.Type, CodeInvalidType,
			fmt.Sprintf("unknown transaction type %q", raw.Type),
			"Use one of: TRANSFER_IN_BALANCE, DEPOSIT, WITHDRAW, OTHER_INCOME, OTHER_EXPENSE, EXCHANGE_BUY, EXCHANGE_SELL, INTEREST, DIVIDEND, SPEND.")
	} else if processors.Classify(txType, ledger.Currency, ledger.HomeCurrency) == processors.FlowInvalid {
		addErr("type", raw.Type, CodeTypeNotAllowed,
			fmt.Sprintf("transaction type %q is not allowed on a %s ledger", raw.Type, ledger.Currency),
			"Exchange transactions belong on a foreign-currency ledger.")
	}

	if err := validation.ValidateCurrencyCode(raw.Currency); err != nil {
		addErr("currency", raw.Currency, CodeCurrencyMismatch, err.Error(), "Use a 3-letter ISO code matching the ledger currency.")
	} else if !strings.EqualFold(strings.TrimSpace(raw.Currency), ledger.Currency) {
		addErr("currency", raw.Currency, CodeCurrencyMismatch,
			fmt.Sprintf("row currency %q does not match ledger currency %q", raw.Currency, ledger.Currency),
			fmt.Sprintf("This ledger only accepts %s rows.", ledger.Currency))
	}

	foreignAmount, err := validation.ValidatePositiveDecimalString(raw.ForeignAmount, "foreign_amount")
	if err != nil {
		addErr("foreign_amount", raw.ForeignAmount, CodeInvalidAmount, err.Error(), "Enter a positive amount; the type carries the direction.")
	}

	var homeAmount *decimal.Decimal
	if raw.HomeAmount != "" {
		value, err := validation.ValidatePositiveDecimalString(raw.HomeAmount, "home_amount")
		if err != nil {
			addErr("home_amount", raw.HomeAmount, CodeInvalidAmount, err.Error(), "Leave blank or enter the positive home-currency value.")
		} else {
			homeAmount = &value
		}
	}

	var exchangeRate *decimal.Decimal
	if raw.ExchangeRate != "" {
		value, err := validation.ValidatePositiveDecimalString(raw.ExchangeRate, "exchange_rate")
		if err != nil {
			addErr("exchange_rate", raw.ExchangeRate, CodeInvalidRate, err.Error(), "Leave blank or enter a positive rate.")
		} else {
			exchangeRate = &value
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &validatedRow{
		date:          date,
		txType:        txType,
		foreignAmount: foreignAmount,
		homeAmount:    homeAmount,
		exchangeRate:  exchangeRate,
		notes:         validation.SanitizeText(raw.Notes),
	}, nil
}
