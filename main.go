package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/famfolio/backend/src/config"
	"github.com/username/famfolio/backend/src/database"
	"github.com/username/famfolio/backend/src/handlers"
	"github.com/username/famfolio/backend/src/logger"
	"github.com/username/famfolio/backend/src/processors"
	"github.com/username/famfolio/backend/src/security"
	"github.com/username/famfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.FrontendBaseURL {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("FamFolio backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)

	positionProcessor := processors.NewPositionProcessor()
	splitProcessor := processors.NewSplitProcessor()
	ledgerProcessor := processors.NewLedgerProcessor()
	returnProcessor := processors.NewReturnProcessor()
	xirrProcessor := processors.NewXirrProcessor()
	interestProcessor := processors.NewInterestProcessor()
	fundsProcessor := processors.NewFundsProcessor(config.Cfg.HomeCurrency)
	assetsProcessor := processors.NewAssetsProcessor(interestProcessor)
	strategyProvider := processors.NewCashFlowStrategyProvider()

	rateSource := services.NewHTTPRateSource(config.Cfg.RateProviderBaseURL)
	rateService := services.NewRateService(rateSource, config.Cfg.HomeCurrency, config.Cfg.RateCacheTTL)

	reportService := services.NewReportService(
		database.DB,
		positionProcessor,
		splitProcessor,
		ledgerProcessor,
		returnProcessor,
		xirrProcessor,
		fundsProcessor,
		assetsProcessor,
		strategyProvider,
		rateService,
		reportCache,
	)
	importService := services.NewImportService(database.DB, reportService)
	linkingService := services.NewLinkingService(database.DB, ledgerProcessor, reportService)

	authHandler := handlers.NewAuthHandler(authService)
	portfolioHandler := handlers.NewPortfolioHandler(reportService)
	stockHandler := handlers.NewStockHandler(reportService, linkingService, positionProcessor, splitProcessor)
	ledgerHandler := handlers.NewLedgerHandler(reportService, ledgerProcessor)
	bankHandler := handlers.NewBankHandler(reportService)
	dashboardHandler := handlers.NewDashboardHandler(reportService)
	importHandler := handlers.NewImportHandler(importService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "FamFolio Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", authHandler.RegisterHandler)
			r.Post("/auth/login", authHandler.LoginHandler)
			r.Post("/auth/refresh", authHandler.RefreshTokenHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(authService))

			r.Post("/auth/logout", authHandler.LogoutHandler)

			r.Get("/portfolios", portfolioHandler.ListHandler)
			r.Post("/portfolios", portfolioHandler.CreateHandler)
			r.Get("/portfolios/{portfolioID}", portfolioHandler.GetHandler)
			r.Delete("/portfolios/{portfolioID}", portfolioHandler.DeleteHandler)
			r.Post("/portfolios/{portfolioID}/snapshots", portfolioHandler.CreateSnapshotHandler)

			r.Get("/portfolios/{portfolioID}/transactions", stockHandler.ListHandler)
			r.Post("/portfolios/{portfolioID}/transactions", stockHandler.CreateHandler)
			r.Delete("/portfolios/{portfolioID}/transactions/{txID}", stockHandler.DeleteHandler)
			r.Get("/portfolios/{portfolioID}/positions", dashboardHandler.PositionsHandler)
			r.Get("/portfolios/{portfolioID}/performance", dashboardHandler.PerformanceHandler)

			r.Get("/splits", stockHandler.ListSplitsHandler)
			r.Post("/splits", stockHandler.CreateSplitHandler)

			r.Get("/ledgers", ledgerHandler.ListHandler)
			r.Post("/ledgers", ledgerHandler.CreateHandler)
			r.Get("/ledgers/{ledgerID}/transactions", ledgerHandler.ListTransactionsHandler)
			r.Post("/ledgers/{ledgerID}/transactions", ledgerHandler.CreateTransactionHandler)
			r.Delete("/ledgers/{ledgerID}/transactions/{txID}", ledgerHandler.DeleteTransactionHandler)
			r.Post("/ledgers/{ledgerID}/import", importHandler.UploadHandler)
			r.Get("/ledgers/{ledgerID}/export", ledgerHandler.ExportTransactionsHandler)

			r.Get("/bank/accounts", bankHandler.ListAccountsHandler)
			r.Post("/bank/accounts", bankHandler.CreateAccountHandler)
			r.Delete("/bank/accounts/{accountID}", bankHandler.DeleteAccountHandler)
			r.Get("/bank/installments", bankHandler.ListInstallmentsHandler)
			r.Post("/bank/installments", bankHandler.CreateInstallmentHandler)
			r.Patch("/bank/installments/{installmentID}", bankHandler.UpdateInstallmentHandler)

			r.Get("/dashboard/available-funds", dashboardHandler.AvailableFundsHandler)
			r.Get("/dashboard/total-assets", dashboardHandler.TotalAssetsHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
