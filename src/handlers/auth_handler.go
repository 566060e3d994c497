// backend/src/handlers/auth_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/username/famfolio/backend/src/config"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/model"
	"github.com/username/famfolio/backend/src/security"
	"github.com/username/famfolio/backend/src/security/validation"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
var passwordRegex = regexp.MustCompile(`^.{8,}$`)

type AuthHandler struct {
	authService security.AuthService
}

func NewAuthHandler(authService security.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		HomeCurrency string `json:"home_currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	req.Username = validation.SanitizeText(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validation.ValidateStringNotEmpty(req.Username, "username"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(req.Email) {
		sendJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if !passwordRegex.MatchString(req.Password) {
		sendJSONError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	homeCurrency := config.Cfg.HomeCurrency
	if req.HomeCurrency != "" {
		if err := validation.ValidateCurrencyCode(req.HomeCurrency); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		homeCurrency = strings.ToUpper(strings.TrimSpace(req.HomeCurrency))
	}

	if existing, err := model.GetUserByEmail(database.DB, req.Email); err == nil && existing != nil {
		sendJSONError(w, "Email already registered", http.StatusConflict)
		return
	}
	if existing, err := model.GetUserByUsername(database.DB, req.Username); err == nil && existing != nil {
		sendJSONError(w, "Username already taken", http.StatusConflict)
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		HomeCurrency: homeCurrency,
	}
	if err := user.HashPassword(req.Password); err != nil {
		logger.L.Error("Password hashing failed", "error", err)
		sendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("User creation failed", "error", err)
		sendJSONError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User registered", "userID", user.ID, "homeCurrency", homeCurrency)
	sendJSON(w, user, http.StatusCreated)
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		logger.L.Error("Login lookup failed", "error", err)
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if err := user.CheckPassword(req.Password); err != nil {
		sendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	h.issueSession(w, r, user)
}

// issueSession creates a fresh token pair and session row for the user.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	userIDStr := strconv.FormatInt(user.ID, 10)
	accessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		logger.L.Error("Access token generation failed", "userID", user.ID, "error", err)
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Refresh token generation failed", "userID", user.ID, "error", err)
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Session creation failed", "userID", user.ID, "error", err)
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if err := user.RecordLogin(database.DB); err != nil {
		logger.L.Warn("Failed to record login", "userID", user.ID, "error", err)
	}

	logger.L.Info("User logged in", "userID", user.ID)
	sendJSON(w, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	}, http.StatusOK)
}

func (h *AuthHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		sendJSONError(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	oldSession, err := model.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		sendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}
	if err := model.DeleteSessionByRefreshToken(database.DB, req.RefreshToken); err != nil {
		logger.L.Error("Failed to delete old session during refresh", "error", err)
	}

	user, err := model.GetUserByID(database.DB, oldSession.UserID)
	if err != nil {
		sendJSONError(w, "Invalid session user", http.StatusUnauthorized)
		return
	}

	userIDStr := strconv.FormatInt(user.ID, 10)
	newAccessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		logger.L.Error("Access token generation failed during refresh", "userID", user.ID, "error", err)
		sendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}
	newRefreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Refresh token generation failed during refresh", "userID", user.ID, "error", err)
		sendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        newAccessToken,
		RefreshToken: newRefreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Session creation failed during refresh", "userID", user.ID, "error", err)
		sendJSONError(w, "Token refresh failed", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Token refreshed successfully", "userID", user.ID)
	sendJSON(w, map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	}, http.StatusOK)
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString != "" {
		if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
			logger.L.Warn("Failed to delete session on logout", "error", err)
		}
	}
	sendJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}
