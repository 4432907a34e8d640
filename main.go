package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/config"
	"github.com/almatkai/woolet-sub001/handler"
	"github.com/almatkai/woolet-sub001/metrics"
	"github.com/almatkai/woolet-sub001/rates"
	"github.com/almatkai/woolet-sub001/storage"
)

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// newRateCache prefers Redis when it is configured and reachable.
func newRateCache(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (rates.Cache, func()) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, caching exchange rates in memory")
		return rates.NewMemoryCache(), func() {}
	}
	redisCache := rates.NewRedisCache(cfg.RedisAddr)
	if err := redisCache.Ping(ctx); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis unavailable, caching exchange rates in memory")
		_ = redisCache.Close()
		return rates.NewMemoryCache(), func() {}
	}
	log.WithField("addr", cfg.RedisAddr).Info("Caching exchange rates in Redis")
	return redisCache, func() { _ = redisCache.Close() }
}

// newServer bounds every request, including reading its headers, by
// cfg.RequestTimeout.
func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.TimeoutHandler(h, cfg.RequestTimeout, `{"error":"Request timed out"}`),
		ReadHeaderTimeout: cfg.RequestTimeout,
	}
}

func main() {
	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := newLogger(cfg.LogLevel)

	// Initialize storage
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Info("Database connection established and schema initialized.")

	collector := metrics.NewCollector()

	cache, closeCache := newRateCache(ctx, cfg, log)
	defer closeCache()
	rateService := rates.NewService(rates.NewCBRClient(cfg.RatesURL, log), cache, cfg.RatesTTL, collector, log)
	refresher, err := rateService.StartRefresher(cfg.RatesRefreshSchedule, cfg.RatesWarmCurrencies, cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("Failed to schedule rate refresh: %v", err)
	}
	defer refresher.Stop()

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(store, collector, log)
	transactionHandler := handler.NewTransactionHandler(store, rateService, collector, log)
	loanHandler := handler.NewLoanHandler(store, collector, log)
	depositHandler := handler.NewDepositHandler(store, collector, log)
	investmentHandler := handler.NewInvestmentHandler(store, collector, log)
	splitHandler := handler.NewSplitHandler(store, collector, log)

	// Setup router
	r := mux.NewRouter()
	r.Use(collector.Middleware)
	r.HandleFunc("/accounts", accountHandler.CreateAccountHandler).Methods("POST")
	r.HandleFunc("/accounts/{account_id}", accountHandler.GetAccountHandler).Methods("GET")

	r.HandleFunc("/loans/preview", loanHandler.PreviewLoanHandler).Methods("POST")
	r.HandleFunc("/mortgages", loanHandler.CreateMortgageHandler).Methods("POST")
	r.HandleFunc("/mortgages/{mortgage_id}", loanHandler.GetMortgageHandler).Methods("GET")

	r.HandleFunc("/deposits/preview", depositHandler.PreviewDepositHandler).Methods("POST")
	r.HandleFunc("/deposits", depositHandler.CreateDepositHandler).Methods("POST")
	r.HandleFunc("/deposits/{deposit_id}", depositHandler.GetDepositHandler).Methods("GET")

	r.HandleFunc("/transfers/quote", transactionHandler.QuoteTransferHandler).Methods("POST")
	r.HandleFunc("/transfers", transactionHandler.CreateTransferHandler).Methods("POST")
	r.HandleFunc("/expenses", transactionHandler.CreateExpenseHandler).Methods("POST")

	r.HandleFunc("/investments/quote", investmentHandler.QuoteInvestmentHandler).Methods("POST")

	r.HandleFunc("/splits/preview", splitHandler.PreviewSplitHandler).Methods("POST")
	r.HandleFunc("/splits", splitHandler.CreateSplitHandler).Methods("POST")
	r.HandleFunc("/splits/{split_id}", splitHandler.GetSplitHandler).Methods("GET")
	r.HandleFunc("/splits/participants/{participant_id}/payments", splitHandler.RecordPaymentHandler).Methods("POST")

	r.HandleFunc("/healthz", handler.HealthHandler(store)).Methods("GET")
	r.Handle("/metrics", collector.Handler()).Methods("GET")

	// Create and start server
	server := newServer(cfg, r)

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
		return
	}

	log.Info("Server gracefully stopped")
}
