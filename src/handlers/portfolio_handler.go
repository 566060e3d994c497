// backend/src/handlers/portfolio_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/security/validation"
	"github.com/username/famfolio/backend/src/services"
)

type PortfolioHandler struct {
	reportService services.ReportService
}

func NewPortfolioHandler(reportService services.ReportService) *PortfolioHandler {
	return &PortfolioHandler{reportService: reportService}
}

func (h *PortfolioHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	portfolios, err := services.FetchPortfolios(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to list portfolios", "userID", userID, "error", err)
		sendJSONError(w, "Failed to list portfolios", http.StatusInternalServerError)
		return
	}
	if portfolios == nil {
		portfolios = []models.Portfolio{}
	}
	sendJSON(w, portfolios, http.StatusOK)
}

func (h *PortfolioHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsDefault   bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Name = validation.SanitizeText(req.Name)
	req.Description = validation.SanitizeText(req.Description)
	if err := validation.ValidateStringNotEmpty(req.Name, "name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
	INSERT INTO portfolios (user_id, name, description, is_default, created_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		userID, req.Name, req.Description, req.IsDefault)
	if err != nil {
		logger.L.Error("Failed to create portfolio", "userID", userID, "error", err)
		sendJSONError(w, "Failed to create portfolio", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	portfolio, err := services.FetchPortfolio(database.DB, userID, id)
	if err != nil {
		sendJSONError(w, "Failed to load created portfolio", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Portfolio created", "userID", userID, "portfolioID", id)
	sendJSON(w, portfolio, http.StatusCreated)
}

func (h *PortfolioHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
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

	portfolio, err := services.FetchPortfolio(database.DB, userID, portfolioID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to fetch portfolio", "userID", userID, "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to fetch portfolio", http.StatusInternalServerError)
		return
	}
	sendJSON(w, portfolio, http.StatusOK)
}

// CreateSnapshotHandler records a valuation boundary for the portfolio: its
// value just before and just after a cash-flow date. Return calculations
// chain over these snapshots.
func (h *PortfolioHandler) CreateSnapshotHandler(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Date        string `json:"date"`
		ValueBefore string `json:"value_before"`
		ValueAfter  string `json:"value_after"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	date, err := validation.ValidateDateString(req.Date, "date")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	valueBefore, err := validation.ValidateDecimalString(req.ValueBefore, "value_before", false)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	valueAfter, err := validation.ValidateDecimalString(req.ValueAfter, "value_after", false)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
	INSERT INTO portfolio_snapshots (portfolio_id, date, value_before, value_after)
	VALUES (?, ?, ?, ?)`,
		portfolioID, date, valueBefore.String(), valueAfter.String())
	if err != nil {
		logger.L.Error("Failed to record snapshot", "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to record snapshot", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Valuation snapshot recorded", "userID", userID, "portfolioID", portfolioID, "snapshotID", id)
	sendJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

func (h *PortfolioHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
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

	res, err := database.DB.Exec(`DELETE FROM portfolios WHERE id = ? AND user_id = ?`, portfolioID, userID)
	if err != nil {
		logger.L.Error("Failed to delete portfolio", "userID", userID, "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to delete portfolio", http.StatusInternalServerError)
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		sendJSONError(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Portfolio deleted", "userID", userID, "portfolioID", portfolioID)
	sendJSON(w, map[string]string{"message": "portfolio deleted"}, http.StatusOK)
}
