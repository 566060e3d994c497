// backend/src/handlers/dashboard_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/security/validation"
	"github.com/username/famfolio/backend/src/services"
)

type DashboardHandler struct {
	reportService services.ReportService
}

func NewDashboardHandler(reportService services.ReportService) *DashboardHandler {
	return &DashboardHandler{reportService: reportService}
}

func (h *DashboardHandler) AvailableFundsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	funds, err := h.reportService.GetAvailableFunds(userID)
	if err != nil {
		if errors.Is(err, services.ErrRateLookup) {
			sendJSONError(w, "Exchange rate provider unavailable", http.StatusBadGateway)
			return
		}
		logger.L.Error("Failed to compute available funds", "userID", userID, "error", err)
		sendJSONError(w, "Failed to compute available funds", http.StatusInternalServerError)
		return
	}
	sendJSON(w, funds, http.StatusOK)
}

func (h *DashboardHandler) TotalAssetsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.reportService.GetTotalAssets(userID)
	if err != nil {
		logger.L.Error("Failed to compute total assets", "userID", userID, "error", err)
		sendJSONError(w, "Failed to compute total assets", http.StatusInternalServerError)
		return
	}
	sendJSON(w, summary, http.StatusOK)
}

func (h *DashboardHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
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

	positions, err := h.reportService.GetPositions(userID, portfolioID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to compute positions", "userID", userID, "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to compute positions", http.StatusInternalServerError)
		return
	}
	sendJSON(w, positions, http.StatusOK)
}

// PerformanceHandler computes XIRR, Modified Dietz and TWR for a portfolio
// over ?from=DD-MM-YYYY&to=DD-MM-YYYY (default: trailing year).
func (h *DashboardHandler) PerformanceHandler(w http.ResponseWriter, r *http.Request) {
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

	toDate := time.Now().Truncate(24 * time.Hour)
	fromDate := toDate.AddDate(-1, 0, 0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		fromDate, err = validation.ValidateDateString(raw, "from")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		toDate, err = validation.ValidateDateString(raw, "to")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if toDate.Before(fromDate) {
		sendJSONError(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	result, err := h.reportService.GetPerformance(userID, portfolioID, fromDate, toDate)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Portfolio not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to compute performance", "userID", userID, "portfolioID", portfolioID, "error", err)
		sendJSONError(w, "Failed to compute performance", http.StatusInternalServerError)
		return
	}
	sendJSON(w, result, http.StatusOK)
}
