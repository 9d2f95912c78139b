package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineindex/internal/crawler"
	"cineindex/internal/handlers"
	"cineindex/internal/history"
	"cineindex/internal/logging"
	"cineindex/internal/metrics"
	"cineindex/internal/middleware"
	"cineindex/internal/search"
	"cineindex/internal/startup"
	"cineindex/internal/store"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Seed editable config files on first run
	if err := startup.WriteExampleFiles(config.RootsPath, config.FiltersPath); err != nil {
		logging.Warn("Failed to write example config files: %v", err)
	}

	// Pre-populate metric label combinations
	metrics.InitializeMetrics()

	// baseCtx governs background work (crawls, snapshot rebuilds); the
	// shutdown handler cancels it before stopping the HTTP server.
	baseCtx, cancelBackground := context.WithCancel(context.Background())

	// Initialize index store
	storeStart := time.Now()
	idx, err := store.New(baseCtx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize index store: %v", err)
	}
	defer idx.Close()
	startup.LogStoreInit(time.Since(storeStart))

	// Refresh connection metrics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				idx.UpdateDBMetrics()
			case <-baseCtx.Done():
				return
			}
		}
	}()

	// Initialize crawler and search engine
	crawl := crawler.New(idx, crawler.Config{
		Workers:      config.CrawlWorkers,
		FetchTimeout: config.FetchTimeout,
		FetchRetries: config.FetchRetries,
	})
	engine := search.NewEngine()
	histLog := history.NewLog(config.HistoryPath)

	// Initialize handlers
	h := handlers.New(baseCtx, idx, crawl, engine, histLog, config)

	// Load the initial search snapshot in the background so the server
	// accepts connections immediately; readiness flips once it's done.
	go func() {
		if err := engine.Rebuild(baseCtx, idx); err != nil {
			logging.Error("Initial snapshot load failed: %v", err)
			return
		}
		h.SetReady()
	}()

	// Setup router
	router := setupRouter(h)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, cancelBackground)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/crawl", h.TriggerCrawl).Methods("POST")
	api.HandleFunc("/crawl/status", h.CrawlStatus).Methods("GET")
	api.HandleFunc("/stats", h.Stats).Methods("GET")
	api.HandleFunc("/purge", h.PurgeStale).Methods("POST")
	api.HandleFunc("/history", h.History).Methods("GET")
	api.HandleFunc("/history", h.RecordPlayback).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, cancelBackground context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping background work")
	cancelBackground()
	startup.LogShutdownStepComplete("Background work stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
