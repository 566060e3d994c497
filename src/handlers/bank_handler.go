// backend/src/handlers/bank_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/models"
	"github.com/username/famfolio/backend/src/security/validation"
	"github.com/username/famfolio/backend/src/services"
)

type BankHandler struct {
	reportService services.ReportService
}

func NewBankHandler(reportService services.ReportService) *BankHandler {
	return &BankHandler{reportService: reportService}
}

func (h *BankHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	accounts, err := services.FetchBankAccounts(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to list bank accounts", "userID", userID, "error", err)
		sendJSONError(w, "Failed to list bank accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []models.BankAccount{}
	}
	sendJSON(w, accounts, http.StatusOK)
}

type bankAccountRequest struct {
	BankName     string `json:"bank_name"`
	Currency     string `json:"currency"`
	TotalAssets  string `json:"total_assets"`
	InterestRate string `json:"interest_rate"`
	InterestCap  string `json:"interest_cap"`
	FixedDeposit *struct {
		TermMonths       int    `json:"term_months"`
		StartDate        string `json:"start_date"`
		Status           string `json:"status"`
		ExpectedInterest string `json:"expected_interest"`
	} `json:"fixed_deposit"`
}

func (h *BankHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req bankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	bankName := validation.SanitizeText(req.BankName)
	if err := validation.ValidateStringNotEmpty(bankName, "bank_name"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateCurrencyCode(req.Currency); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	totalAssets, err := validation.ValidateDecimalString(req.TotalAssets, "total_assets", false)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	interestRate := decimal.Zero
	if req.InterestRate != "" {
		interestRate, err = validation.ValidateDecimalString(req.InterestRate, "interest_rate", false)
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	interestCap := decimal.Zero
	if req.InterestCap != "" {
		interestCap, err = validation.ValidateDecimalString(req.InterestCap, "interest_cap", false)
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	var fdTermMonths interface{}
	var fdStartDate interface{}
	var fdStatus interface{}
	var fdExpected interface{}
	if req.FixedDeposit != nil {
		status := models.FixedDepositStatus(strings.ToUpper(strings.TrimSpace(req.FixedDeposit.Status)))
		switch status {
		case models.FixedDepositActive, models.FixedDepositMatured, models.FixedDepositClosed, models.FixedDepositEarlyWithdrawal:
		default:
			sendJSONError(w, "fixed_deposit.status must be ACTIVE, MATURED, CLOSED, or EARLY_WITHDRAWAL", http.StatusBadRequest)
			return
		}
		startDate, err := validation.ValidateDateString(req.FixedDeposit.StartDate, "fixed_deposit.start_date")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.FixedDeposit.TermMonths <= 0 {
			sendJSONError(w, "fixed_deposit.term_months must be positive", http.StatusBadRequest)
			return
		}
		expected := decimal.Zero
		if req.FixedDeposit.ExpectedInterest != "" {
			expected, err = validation.ValidateDecimalString(req.FixedDeposit.ExpectedInterest, "fixed_deposit.expected_interest", false)
			if err != nil {
				sendJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		fdTermMonths = req.FixedDeposit.TermMonths
		fdStartDate = startDate
		fdStatus = string(status)
		fdExpected = expected.String()
	}

	res, err := database.DB.Exec(`
	INSERT INTO bank_accounts
		(user_id, bank_name, currency, total_assets, interest_rate, interest_cap,
		 fd_term_months, fd_start_date, fd_status, fd_expected_interest, fd_actual_interest, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '0', CURRENT_TIMESTAMP)`,
		userID, bankName, currency, totalAssets.String(), interestRate.String(), interestCap.String(),
		fdTermMonths, fdStartDate, fdStatus, fdExpected)
	if err != nil {
		logger.L.Error("Failed to create bank account", "userID", userID, "error", err)
		sendJSONError(w, "Failed to create bank account", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Bank account created", "userID", userID, "accountID", id)
	sendJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

func (h *BankHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`DELETE FROM bank_accounts WHERE id = ? AND user_id = ?`, accountID, userID)
	if err != nil {
		logger.L.Error("Failed to delete bank account", "accountID", accountID, "error", err)
		sendJSONError(w, "Failed to delete bank account", http.StatusInternalServerError)
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		sendJSONError(w, "Bank account not found", http.StatusNotFound)
		return
	}

	h.reportService.InvalidateUserCache(userID)
	sendJSON(w, map[string]string{"message": "bank account deleted"}, http.StatusOK)
}

// --- Installments ---

func (h *BankHandler) ListInstallmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	installments, err := services.FetchInstallments(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to list installments", "userID", userID, "error", err)
		sendJSONError(w, "Failed to list installments", http.StatusInternalServerError)
		return
	}
	if installments == nil {
		installments = []models.Installment{}
	}
	sendJSON(w, installments, http.StatusOK)
}

func (h *BankHandler) CreateInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Description          string `json:"description"`
		TotalAmount          string `json:"total_amount"`
		NumberOfInstallments int    `json:"number_of_installments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	totalAmount, err := validation.ValidatePositiveDecimalString(req.TotalAmount, "total_amount")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.NumberOfInstallments <= 0 {
		sendJSONError(w, "number_of_installments must be positive", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(`
	INSERT INTO installments
		(user_id, description, total_amount, number_of_installments, remaining_installments, cancelled, created_at)
	VALUES (?, ?, ?, ?, ?, FALSE, CURRENT_TIMESTAMP)`,
		userID, validation.SanitizeText(req.Description), totalAmount.String(),
		req.NumberOfInstallments, req.NumberOfInstallments)
	if err != nil {
		logger.L.Error("Failed to create installment", "userID", userID, "error", err)
		sendJSONError(w, "Failed to create installment", http.StatusInternalServerError)
		return
	}
	id, _ := res.LastInsertId()

	h.reportService.InvalidateUserCache(userID)
	logger.L.Info("Installment created", "userID", userID, "installmentID", id)
	sendJSON(w, map[string]int64{"id": id}, http.StatusCreated)
}

// UpdateInstallmentHandler records a payment or cancels the installment.
func (h *BankHandler) UpdateInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	installmentID, err := strconv.ParseInt(chi.URLParam(r, "installmentID"), 10, 64)
	if err != nil {
		sendJSONError(w, "Invalid installment ID", http.StatusBadRequest)
		return
	}

	var req struct {
		RemainingInstallments *int  `json:"remaining_installments"`
		Cancelled             *bool `json:"cancelled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.RemainingInstallments == nil && req.Cancelled == nil {
		sendJSONError(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if req.RemainingInstallments != nil && *req.RemainingInstallments < 0 {
		sendJSONError(w, "remaining_installments cannot be negative", http.StatusBadRequest)
		return
	}

	if req.RemainingInstallments != nil {
		if _, err := database.DB.Exec(`
		UPDATE installments SET remaining_installments = ? WHERE id = ? AND user_id = ?`,
			*req.RemainingInstallments, installmentID, userID); err != nil {
			logger.L.Error("Failed to update installment", "installmentID", installmentID, "error", err)
			sendJSONError(w, "Failed to update installment", http.StatusInternalServerError)
			return
		}
	}
	if req.Cancelled != nil {
		if _, err := database.DB.Exec(`
		UPDATE installments SET cancelled = ? WHERE id = ? AND user_id = ?`,
			*req.Cancelled, installmentID, userID); err != nil {
			logger.L.Error("Failed to update installment", "installmentID", installmentID, "error", err)
			sendJSONError(w, "Failed to update installment", http.StatusInternalServerError)
			return
		}
	}

	h.reportService.InvalidateUserCache(userID)
	sendJSON(w, map[string]string{"message": "installment updated"}, http.StatusOK)
}
