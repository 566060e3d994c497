// backend/src/services/store.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/models"
)

// Row fetchers shared by the report, import and linking services. Amounts are
// stored as TEXT and scanned through shopspring decimal's sql.Scanner; rows
// come back oldest-first so ledger replay sees the day's timeline in order.

func FetchPortfolio(db *sql.DB, userID, portfolioID int64) (*models.Portfolio, error) {
	query := `
	SELECT id, user_id, name, description, is_default, created_at
	FROM portfolios
	WHERE id = ? AND user_id = ?`
	row := db.QueryRow(query, portfolioID, userID)

	var p models.Portfolio
	var description sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &description, &p.IsDefault, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: portfolio %d", ErrNotFound, portfolioID)
		}
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

func FetchPortfolios(db *sql.DB, userID int64) ([]models.Portfolio, error) {
	query := `
	SELECT id, user_id, name, description, is_default, created_at
	FROM portfolios
	WHERE user_id = ?
	ORDER BY id ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &description, &p.IsDefault, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Description = description.String
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// FetchValuationSnapshots returns the user-entered valuation boundaries for a
// portfolio within a period, oldest first.
func FetchValuationSnapshots(db *sql.DB, portfolioID int64, fromDate, toDate time.Time) ([]models.ValuationSnapshot, error) {
	query := `
	SELECT date, value_before, value_after
	FROM portfolio_snapshots
	WHERE portfolio_id = ? AND date >= ? AND date <= ?
	ORDER BY date ASC, id ASC`
	rows, err := db.Query(query, portfolioID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.ValuationSnapshot
	for rows.Next() {
		var s models.ValuationSnapshot
		if err := rows.Scan(&s.Date, &s.Before, &s.After); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func FetchStockTransactions(db *sql.DB, portfolioID int64) ([]models.StockTransaction, error) {
	query := `
	SELECT id, portfolio_id, ticker, market, type, shares, price, exchange_rate, fees, date, linked_currency_tx_id, created_at
	FROM stock_transactions
	WHERE portfolio_id = ?
	ORDER BY date ASC, id ASC`
	rows, err := db.Query(query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.StockTransaction
	for rows.Next() {
		var tx models.StockTransaction
		var rate decimal.NullDecimal
		var linkedID sql.NullInt64
		err := rows.Scan(
			&tx.ID, &tx.PortfolioID, &tx.Ticker, &tx.Market, &tx.Type,
			&tx.Shares, &tx.Price, &rate, &tx.Fees, &tx.Date, &linkedID, &tx.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if rate.Valid {
			tx.ExchangeRate = &rate.Decimal
		}
		if linkedID.Valid {
			tx.LinkedCurrencyTxID = &linkedID.Int64
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func FetchStockSplits(db *sql.DB) ([]models.StockSplit, error) {
	query := `
	SELECT id, symbol, market, split_date, ratio, note
	FROM stock_splits
	ORDER BY split_date ASC, id ASC`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []models.StockSplit
	for rows.Next() {
		var s models.StockSplit
		var note sql.NullString
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Market, &s.SplitDate, &s.Ratio, &note); err != nil {
			return nil, err
		}
		s.Note = note.String
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

func FetchLedgers(db *sql.DB, userID int64) ([]models.CurrencyLedger, error) {
	query := `
	SELECT id, user_id, portfolio_id, currency, home_currency, created_at
	FROM currency_ledgers
	WHERE user_id = ?
	ORDER BY id ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []models.CurrencyLedger
	for rows.Next() {
		var l models.CurrencyLedger
		var portfolioID sql.NullInt64
		if err := rows.Scan(&l.ID, &l.UserID, &portfolioID, &l.Currency, &l.HomeCurrency, &l.CreatedAt); err != nil {
			return nil, err
		}
		if portfolioID.Valid {
			l.PortfolioID = &portfolioID.Int64
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, rows.Err()
}

func FetchLedger(db *sql.DB, userID, ledgerID int64) (*models.CurrencyLedger, error) {
	query := `
	SELECT id, user_id, portfolio_id, currency, home_currency, created_at
	FROM currency_ledgers
	WHERE id = ? AND user_id = ?`
	row := db.QueryRow(query, ledgerID, userID)

	var l models.CurrencyLedger
	var portfolioID sql.NullInt64
	err := row.Scan(&l.ID, &l.UserID, &portfolioID, &l.Currency, &l.HomeCurrency, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ledger %d", ErrNotFound, ledgerID)
		}
		return nil, err
	}
	if portfolioID.Valid {
		l.PortfolioID = &portfolioID.Int64
	}
	return &l, nil
}

func FetchCurrencyTransactions(db *sql.DB, ledgerID int64) ([]models.CurrencyTransaction, error) {
	query := `
	SELECT id, ledger_id, date, type, foreign_amount, home_amount, exchange_rate,
	       related_stock_tx_id, is_internal_settlement, notes, created_at
	FROM currency_transactions
	WHERE ledger_id = ?
	ORDER BY date ASC, id ASC`
	rows, err := db.Query(query, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCurrencyTransactions(rows)
}

// FetchCurrencyTransactionsForUser returns every ledger transaction across all
// of the user's ledgers, for strategy selection over a whole portfolio.
func FetchCurrencyTransactionsForUser(db *sql.DB, userID int64) ([]models.CurrencyTransaction, error) {
	query := `
	SELECT t.id, t.ledger_id, t.date, t.type, t.foreign_amount, t.home_amount, t.exchange_rate,
	       t.related_stock_tx_id, t.is_internal_settlement, t.notes, t.created_at
	FROM currency_transactions t
	JOIN currency_ledgers l ON l.id = t.ledger_id
	WHERE l.user_id = ?
	ORDER BY t.date ASC, t.id ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCurrencyTransactions(rows)
}

func scanCurrencyTransactions(rows *sql.Rows) ([]models.CurrencyTransaction, error) {
	var txs []models.CurrencyTransaction
	for rows.Next() {
		var tx models.CurrencyTransaction
		var homeAmount, rate decimal.NullDecimal
		var relatedID sql.NullInt64
		var notes sql.NullString
		err := rows.Scan(
			&tx.ID, &tx.LedgerID, &tx.Date, &tx.Type, &tx.ForeignAmount,
			&homeAmount, &rate, &relatedID, &tx.IsInternalSettlement, &notes, &tx.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if homeAmount.Valid {
			tx.HomeAmount = &homeAmount.Decimal
		}
		if rate.Valid {
			tx.ExchangeRate = &rate.Decimal
		}
		if relatedID.Valid {
			tx.RelatedStockTxID = &relatedID.Int64
		}
		tx.Notes = notes.String
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func FetchBankAccounts(db *sql.DB, userID int64) ([]models.BankAccount, error) {
	query := `
	SELECT id, user_id, bank_name, currency, total_assets, interest_rate, interest_cap,
	       fd_term_months, fd_start_date, fd_status, fd_expected_interest, fd_actual_interest, created_at
	FROM bank_accounts
	WHERE user_id = ?
	ORDER BY id ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.BankAccount
	for rows.Next() {
		var a models.BankAccount
		var fdTermMonths sql.NullInt64
		var fdStartDate sql.NullTime
		var fdStatus sql.NullString
		var fdExpected, fdActual decimal.NullDecimal
		err := rows.Scan(
			&a.ID, &a.UserID, &a.BankName, &a.Currency, &a.TotalAssets,
			&a.InterestRate, &a.InterestCap,
			&fdTermMonths, &fdStartDate, &fdStatus, &fdExpected, &fdActual, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if fdStatus.Valid {
			a.FixedDeposit = &models.FixedDepositInfo{
				TermMonths:       int(fdTermMonths.Int64),
				StartDate:        fdStartDate.Time,
				Status:           models.FixedDepositStatus(fdStatus.String),
				ExpectedInterest: fdExpected.Decimal,
				ActualInterest:   fdActual.Decimal,
			}
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func FetchInstallments(db *sql.DB, userID int64) ([]models.Installment, error) {
	query := `
	SELECT id, user_id, description, total_amount, number_of_installments, remaining_installments, cancelled, created_at
	FROM installments
	WHERE user_id = ?
	ORDER BY id ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []models.Installment
	for rows.Next() {
		var ins models.Installment
		var description sql.NullString
		err := rows.Scan(
			&ins.ID, &ins.UserID, &description, &ins.TotalAmount,
			&ins.NumberOfInstallments, &ins.RemainingInstallments, &ins.Cancelled, &ins.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		ins.Description = description.String
		installments = append(installments, ins)
	}
	return installments, rows.Err()
}
