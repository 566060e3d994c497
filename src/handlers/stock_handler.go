// backend/src/handlers/stock_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/processors"
	"github.com/username/famfolio/backend/src/security/validation"
	"github.com/username/famfolio/backend/src/services"
)

type StockHandler struct {
	reportService     services.ReportService
	linkingService    services.LinkingService
	positionProcessor processors.PositionProcessor
	splitProcessor    processors.SplitProcessor
}

func NewStockHandler(
	reportService services.ReportService,
	linkingService services.LinkingService,
	positionProcessor processors.PositionProcessor,
	splitProcessor processors.SplitProcessor,
) *StockHandler {
	return &StockHandler{
		reportService:     reportService,
		linkingService:    linkingService,
		positionProcessor: positionProcessor,
		splitProcessor:    splitProcessor,
	}
}

type stockTransactionRequest struct {
	Ticker       string `json:"ticker"`
	Market       string `json:"market"`
	Type         string `json:"type"`
	Shares       string `json:"shares"`
	Price        string `json:"price"`
	ExchangeRate string `json:"exchange_rate"`
	Fees         string `json:"fees"`
	Date         string `json:"date"`
}

func (h *StockHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}
	if _, err := services.FetchPortfolio(database.DB, userID, portfolioID); err != nil {
		sendJSONError(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	txs, err := services.FetchStockTransactions(database.DB, portfolioID)
	if err != nil {
		logger.L.Error("Failed to list stock transactions", "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to list stock transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []models.StockTransaction{}
	}
	sendJSON(w, txs, http.StatusOK)
}

func (h *StockHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}
	if _, err := services.FetchPortfolio(database.DB, userID, portfolioID); err != nil {
		sendJSONError(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	var req stockTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	tx, err := h.buildTransaction(portfolioID, req)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
	INSERT INTO stock_transactions
		(portfolio_id, ticker, market, type, shares, price, exchange_rate, fees, date, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		tx.PortfolioID, tx.Ticker, string(tx.Market), string(tx.Type),
		tx.Shares.String(), tx.Price.String(), nullableDecimalString(tx.ExchangeRate), tx.Fees.String(), tx.Date)
	if err != nil {
		logger.L.Error("Failed to insert stock transaction", "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to create stock transaction", http.StatusInternalServerError)
		return
	}
	tx.ID, _ = res.LastInsertId()

	// Mirror the trade into the bound ledger when one exists.
	switch tx.Type {
	case models.StockBuy:
		if _, err := h.linkingService.LinkBuy(userID, tx); err != nil {
			h.rejectLinkedTransaction(w, userID, tx, err)
			return
		}
	case models.StockSell:
		proceeds := sellProceeds(tx)
		if _, err := h.linkingService.LinkSell(userID, tx, proceeds); err != nil {
			h.rejectLinkedTransaction(w, userID, tx, err)
			return
		}
	}

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Stock transaction created", "userID", userID, "portfolioID", portfolioID, "txID", tx.ID, "type", tx.Type)
	sendJSON(w, tx, http.StatusCreated)
}

// rejectLinkedTransaction rolls back the inserted stock row when ledger
// linking fails, keeping the trade and its mirror all-or-nothing.
func (h *StockHandler) rejectLinkedTransaction(w http.ResponseWriter, userID int64, tx *models.StockTransaction, err error) {
	if _, delErr := database.DB.Exec(`DELETE FROM stock_transactions WHERE id = ?`, tx.ID); delErr != nil {
		logger.L.Error("Failed to roll back stock transaction after link failure", "txID", tx.ID, "error", delErr)
	}
	if errors.Is(err, processors.ErrBusinessRule) {
		sendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	logger.L.Error("Ledger linking failed", "userID", userID, "txID", tx.ID, "error", err)
	sendJSONError(w, "Failed to link stock transaction to ledger", http.StatusInternalServerError)
}

func (h *StockHandler) buildTransaction(portfolioID int64, req stockTransactionRequest) (*models.StockTransaction, error) {
	if err := validation.ValidateTicker(req.Ticker); err != nil {
		return nil, err
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))

	txType := models.StockTransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	switch txType {
	case models.StockBuy, models.StockSell, models.StockAdjustment:
	default:
		return nil, errors.New("type must be BUY, SELL, or ADJUSTMENT")
	}

	market, err := h.parseMarket(req.Market, ticker)
	if err != nil {
		return nil, err
	}

	shares, err := validation.ValidateShares(req.Shares, "shares")
	if err != nil {
		return nil, err
	}
	price, err := validation.ValidatePositiveDecimalString(req.Price, "price")
	if err != nil {
		return nil, err
	}
	fees := decimal.Zero
	if req.Fees != "" {
		fees, err = validation.ValidateDecimalString(req.Fees, "fees", false)
		if err != nil {
			return nil, err
		}
	}
	var exchangeRate *decimal.Decimal
	if req.ExchangeRate != "" {
		rate, err := validation.ValidatePositiveDecimalString(req.ExchangeRate, "exchange_rate")
		if err != nil {
			return nil, err
		}
		exchangeRate = &rate
	}
	date, err := validation.ValidateDateString(req.Date, "date")
	if err != nil {
		return nil, err
	}

	return &models.StockTransaction{
		PortfolioID:  portfolioID,
		Ticker:       ticker,
		Market:       market,
		Type:         txType,
		Shares:       shares,
		Price:        price,
		ExchangeRate: exchangeRate,
		Fees:         fees,
		Date:         date,
	}, nil
}

// parseMarket validates an explicit market code against the supported set,
// falling back to ticker heuristics when blank.
func (h *StockHandler) parseMarket(raw, ticker string) (models.Market, error) {
	market := models.Market(strings.ToUpper(strings.TrimSpace(raw)))
	switch market {
	case models.MarketTaiwan, models.MarketUS, models.MarketUK:
		return market, nil
	case "":
		return h.splitProcessor.DetectMarket(ticker), nil
	default:
		return "", errors.New("market must be TW, US, or UK")
	}
}

// sellProceeds is the net sale amount in the trade's source currency. Taiwan
// trades floor the share subtotal to a whole unit before fees come off.
func sellProceeds(tx *models.StockTransaction) decimal.Decimal {
	subtotal := tx.Shares.Mul(tx.Price)
	if tx.Market == models.MarketTaiwan {
		subtotal = subtotal.Floor()
	}
	return subtotal.Sub(tx.Fees)
}

func (h *StockHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "portfolioID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid portfolio ID", http.StatusBadRequest)
		return
	}
	txID, err := strconv.ParseInt(chi.URLParam(r, "txID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}
	if _, err := services.FetchPortfolio(database.DB, userID, portfolioID); err != nil {
		sendJSONError(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	// Remove the mirror row first so the ledger stays consistent.
	if _, err := database.DB.Exec(`
	DELETE FROM currency_transactions WHERE related_stock_tx_id = ?`, txID); err != nil {
		logger.L.Error("Failed to delete linked currency transaction", "txID", txID, "error", err)
		sendJSONError(w, "Failed to delete stock transaction", http.StatusInternalServerError)
		return
	}
	res, err := database.DB.Exec(`DELETE FROM stock_transactions WHERE id = ? AND portfolio_id = ?`, txID, portfolioID)
	if err != nil {
		logger.L.Error("Failed to delete stock transaction", "txID", txID, "error", err)
		sendJSONError(w, "Failed to delete stock transaction", http.StatusInternalServerError)
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		sendJSONError(w, "Stock transaction not found", http.StatusNotFound)
		return
	}

	h.reportService.InvalidateUserCache(userID)
	sendJSON(w, map[string]string{"message": "stock transaction deleted"}, http.StatusOK)
}

// --- Splits ---

func (h *StockHandler) ListSplitsHandler(w http.ResponseWriter, r *http.Request) {
	splits, err := services.FetchStockSplits(database.DB)
	if err != nil {
		logger.L.Error("Failed to list stock splits", "error", err)
		sendJSONError(w, "Failed to list stock splits", http.StatusInternalServerError)
		return
	}
	if splits == nil {
		splits = []models.StockSplit{}
	}
	sendJSON(w, splits, http.StatusOK)
}

func (h *StockHandler) CreateSplitHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Symbol    string `json:"symbol"`
		Market    string `json:"market"`
		SplitDate string `json:"split_date"`
		Ratio     string `json:"ratio"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateTicker(req.Symbol); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	market, err := h.parseMarket(req.Market, symbol)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	splitDate, err := validation.ValidateDateString(req.SplitDate, "split_date")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ratio, err := validation.ValidatePositiveDecimalString(req.Ratio, "ratio")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
	INSERT INTO stock_splits (symbol, market, split_date, ratio, note)
	VALUES (?, ?, ?, ?, ?)`,
		symbol, string(market), splitDate, ratio.String(), validation.SanitizeText(req.Note))
	if err != nil {
		logger.L.Error("Failed to insert stock split", "symbol", symbol, "error", err)
		sendJSONError(w, "Failed to create stock split", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Stock split registered", "userID", userID, "symbol", symbol, "ratio", ratio.String())
	sendJSON(w, models.StockSplit{
		ID: id, Symbol: symbol, Market: market, SplitDate: splitDate, Ratio: ratio, Note: req.Note,
	}, http.StatusCreated)
}

func nullableDecimalString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}
