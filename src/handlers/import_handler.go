// backend/src/handlers/import_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/famfolio/backend/src/config"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/services"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// UploadHandler ingests a multipart CSV of ledger transactions. The import is
// atomic: any invalid row rejects the whole file with per-row diagnostics.
func (h *ImportHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		sendJSONError(w, "File too large or malformed upload", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSONError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger.L.Info("CSV import started", "userID", userID, "ledgerID", ledgerID, "filename", header.Filename, "size", header.Size)

	result, err := h.importService.ImportCurrencyTransactions(file, userID, ledgerID)
	if err != nil {
		var validationErr *services.ImportValidationError
		if errors.As(err, &validationErr) {
			// Full diagnostics, zero rows committed.
			sendJSON(w, result, http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Ledger not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, services.ErrParsingFailed) {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("CSV import failed", "userID", userID, "ledgerID", ledgerID, "error", err)
		sendJSONError(w, "Import failed", http.StatusInternalServerError)
		return
	}

	sendJSON(w, result, http.StatusOK)
}
