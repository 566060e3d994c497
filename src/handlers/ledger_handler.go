// backend/src/handlers/ledger_handler.go
package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/config"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/parsers/ledgercsv"
	"github.com/username/famfolio/backend/src/processors"
	"github.com/username/famfolio/backend/src/security/validation"
	"github.com/username/famfolio/backend/src/services"
)

type LedgerHandler struct {
	reportService   services.ReportService
	ledgerProcessor processors.LedgerProcessor
}

func NewLedgerHandler(reportService services.ReportService, ledgerProcessor processors.LedgerProcessor) *LedgerHandler {
	return &LedgerHandler{
		reportService:   reportService,
		ledgerProcessor: ledgerProcessor,
	}
}

func (h *LedgerHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	summaries, err := h.reportService.GetLedgerSummaries(userID)
	if err != nil {
		logger.L.Error("Failed to list ledgers", "userID", userID, "error", err)
		sendJSONError(w, "Failed to list ledgers", http.StatusInternalServerError)
		return
	}
	sendJSON(w, summaries, http.StatusOK)
}

func (h *LedgerHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Currency    string `json:"currency"`
		PortfolioID *int64 `json:"portfolio_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateCurrencyCode(req.Currency); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	if req.PortfolioID != nil {
		if _, err := services.FetchPortfolio(database.DB, userID, *req.PortfolioID); err != nil {
			sendJSONError(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		// One bound ledger per portfolio.
		ledgers, err := services.FetchLedgers(database.DB, userID)
		if err != nil {
			sendJSONError(w, "Failed to create ledger", http.StatusInternalServerError)
			return
		}
		for _, l := range ledgers {
			if l.PortfolioID != nil && *l.PortfolioID == *req.PortfolioID {
				sendJSONError(w, "Portfolio already has a bound ledger", http.StatusConflict)
				return
			}
		}
	}

	res, err := database.DB.Exec(`
	INSERT INTO currency_ledgers (user_id, portfolio_id, currency, home_currency, created_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		userID, req.PortfolioID, currency, config.Cfg.HomeCurrency)
	if err != nil {
		logger.L.Error("Failed to create ledger", "userID", userID, "error", err)
		sendJSONError(w, "Failed to create ledger", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	ledger, err := services.FetchLedger(database.DB, userID, id)
	if err != nil {
		sendJSONError(w, "Failed to load created ledger", http.StatusInternalServerError)
		return
	}
	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Ledger created", "userID", userID, "ledgerID", id, "currency", currency)
	sendJSON(w, ledger, http.StatusCreated)
}

func (h *LedgerHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "ledgerID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid ledger ID", http.StatusBadRequest)
		return
	}
	if _, err := services.FetchLedger(database.DB, userID, ledgerID); err != nil {
		sendJSONError(w, "Ledger not found", http.StatusNotFound)
		return
	}

	txs, err := services.FetchCurrencyTransactions(database.DB, ledgerID)
	if err != nil {
		logger.L.Error("Failed to list ledger transactions", "ledgerID", ledgerID, "error", err)
		sendJSONError(w, "Failed to list ledger transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []models.CurrencyTransaction{}
	}
	sendJSON(w, txs, http.StatusOK)
}

// ExportTransactionsHandler streams the ledger's external transactions as CSV
// in the same column layout the importer accepts, so exports round-trip.
func (h *LedgerHandler) ExportTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "ledgerID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid ledger ID", http.StatusBadRequest)
		return
	}
	ledger, err := services.FetchLedger(database.DB, userID, ledgerID)
	if err != nil {
		sendJSONError(w, "Ledger not found", http.StatusNotFound)
		return
	}

	txs, err := services.FetchCurrencyTransactions(database.DB, ledgerID)
	if err != nil {
		logger.L.Error("Failed to load ledger transactions for export", "ledgerID", ledgerID, "error", err)
		sendJSONError(w, "Failed to export ledger transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger_%s_%d.csv"`, ledger.Currency, ledgerID))
	if err := writeLedgerCSV(w, ledger.Currency, txs); err != nil {
		logger.L.Error("Failed to write ledger export", "ledgerID", ledgerID, "error", err)
	}
}

// writeLedgerCSV emits one row per external transaction. Stock-trade mirrors
// stay out so re-importing the file cannot duplicate them, and notes are
// neutralized against spreadsheet formula execution.
func writeLedgerCSV(w io.Writer, currency string, txs []models.CurrencyTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgercsv.Header); err != nil {
		return err
	}
	for _, tx := range txs {
		if processors.IsInternalSettlement(tx) {
			continue
		}
		homeAmount := ""
		if tx.HomeAmount != nil {
			homeAmount = tx.HomeAmount.String()
		}
		exchangeRate := ""
		if tx.ExchangeRate != nil {
			exchangeRate = tx.ExchangeRate.String()
		}
		record := []string{
			tx.Date.Format("02-01-2006"),
			string(tx.Type),
			currency,
			tx.ForeignAmount.String(),
			homeAmount,
			exchangeRate,
			validation.SanitizeForFormulaInjection(tx.Notes),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type currencyTransactionRequest struct {
	Date          string `json:"date"`
	Type          string `json:"type"`
	ForeignAmount string `json:"foreign_amount"`
	HomeAmount    string `json:"home_amount"`
	ExchangeRate  string `json:"exchange_rate"`
	Notes         string `json:"notes"`
	StrictBalance bool   `json:"strict_balance"`
}

func (h *LedgerHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "ledgerID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid ledger ID", http.StatusBadRequest)
		return
	}
	ledger, err := services.FetchLedger(database.DB, userID, ledgerID)
	if err != nil {
		sendJSONError(w, "Ledger not found", http.StatusNotFound)
		return
	}

	var req currencyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	date, err := validation.ValidateDateString(req.Date, "date")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	txType := models.CurrencyTransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if !models.ValidCurrencyTransactionTypes[txType] {
		sendJSONError(w, fmt.Sprintf("unknown transaction type %q", req.Type), http.StatusBadRequest)
		return
	}
	if processors.Classify(txType, ledger.Currency, ledger.HomeCurrency) == processors.FlowInvalid {
		sendJSONError(w, fmt.Sprintf("transaction type %q is not allowed on a %s ledger", req.Type, ledger.Currency), http.StatusUnprocessableEntity)
		return
	}

	foreignAmount, err := validation.ValidatePositiveDecimalString(req.ForeignAmount, "foreign_amount")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var homeAmount, exchangeRate *decimal.Decimal
	if req.HomeAmount != "" {
		value, err := validation.ValidatePositiveDecimalString(req.HomeAmount, "home_amount")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		homeAmount = &value
	}
	if req.ExchangeRate != "" {
		value, err := validation.ValidatePositiveDecimalString(req.ExchangeRate, "exchange_rate")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		exchangeRate = &value
	}

	// Optional strict mode refuses a SPEND that would overdraw the ledger.
	if req.StrictBalance && txType == models.TxSpend {
		existing, err := services.FetchCurrencyTransactions(database.DB, ledgerID)
		if err != nil {
			sendJSONError(w, "Failed to validate balance", http.StatusInternalServerError)
			return
		}
		if !h.ledgerProcessor.ValidateSpend(existing, foreignAmount) {
			sendJSONError(w, processors.ErrInsufficientBalance.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	notes := validation.SanitizeText(req.Notes)
	res, err := database.DB.Exec(`
	INSERT INTO currency_transactions
		(ledger_id, date, type, foreign_amount, home_amount, exchange_rate,
		 related_stock_tx_id, is_internal_settlement, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, NULL, FALSE, ?, CURRENT_TIMESTAMP)`,
		ledgerID, date, string(txType), foreignAmount.String(),
		nullableDecimalString(homeAmount), nullableDecimalString(exchangeRate), notes)
	if err != nil {
		logger.L.Error("Failed to insert currency transaction", "ledgerID", ledgerID, "error", err)
		sendJSONError(w, "Failed to create ledger transaction", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Currency transaction created", "userID", userID, "ledgerID", ledgerID, "txID", id, "type", txType)
	sendJSON(w, models.CurrencyTransaction{
		ID:            id,
		LedgerID:      ledgerID,
		Date:          date,
		Type:          txType,
		ForeignAmount: foreignAmount,
		HomeAmount:    homeAmount,
		ExchangeRate:  exchangeRate,
		Notes:         notes,
	}, http.StatusCreated)
}

func (h *LedgerHandler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ledgerID, err := strconv.ParseInt(chi.URLParam(r, "ledgerID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid ledger ID", http.StatusBadRequest)
		return
	}
	txID, err := strconv.ParseInt(chi.URLParam(r, "txID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}
	if _, err := services.FetchLedger(database.DB, userID, ledgerID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Ledger not found", http.StatusNotFound)
			return
		}
		sendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}

	res, err := database.DB.Exec(`DELETE FROM currency_transactions WHERE id = ? AND ledger_id = ?`, txID, ledgerID)
	if err != nil {
		logger.L.Error("Failed to delete currency transaction", "txID", txID, "error", err)
		sendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		sendJSONError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	h.reportService.InvalidateUserCache(userID)
	sendJSON(w, map[string]string{"message": "transaction deleted"}, http.StatusOK)
}
