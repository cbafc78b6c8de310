package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeflix/internal/catalog"
	"homeflix/internal/handlers"
	"homeflix/internal/logging"
	"homeflix/internal/metrics"
	"homeflix/internal/middleware"
	"homeflix/internal/omdb"
	"homeflix/internal/probe"
	"homeflix/internal/scanner"
	"homeflix/internal/startup"
	"homeflix/internal/thumbnail"
	"homeflix/internal/transcode"

	"github.com/gorilla/mux"
)

const (
	statsInterval     = 30 * time.Second
	dbMetricsInterval = 1 * time.Minute
	viewerHeader      = "X-Viewer-ID"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize catalog database
	dbStart := time.Now()
	store, err := catalog.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize catalog: %v", err)
	}
	defer store.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Verify external tools
	startup.LogToolCheck(config.FFmpegPath, config.FFprobePath)

	// Pre-populate metric label combinations and build info
	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

	// Media pipeline components
	prober := probe.New(config.FFprobePath)
	thumbs := thumbnail.New(config.FFmpegPath)
	converter := transcode.New(config.FFmpegPath)
	enricher := omdb.New(config.OMDbAPIKey, config.OMDbAPIURL)
	scan := scanner.New(store, prober, enricher, thumbs, converter, config.ThumbnailDir)

	// Periodic catalog stats for the metrics endpoint
	collector := metrics.NewCollector(store, statsInterval)
	collector.Start()
	go func() {
		ticker := time.NewTicker(dbMetricsInterval)
		defer ticker.Stop()
		for range ticker.C {
			store.UpdateDBMetrics()
		}
	}()

	// Watch the library directory for new files
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if config.WatchEnabled {
		logging.Info("Watching %s for new video files", config.MoviesDir)
		go scan.Watch(watchCtx, config.MoviesDir)
	}

	// Initialize handlers
	h := handlers.New(store, scan, handlers.HeaderViewerResolver(viewerHeader), config)

	// Setup router
	router := setupRouter(h, config.MetricsEnabled)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Middleware chain: metrics innermost, then access logging, then compression
	meteredRouter := middleware.RequestMetrics(router)
	loggedHandler := middleware.AccessLog(config.LogHealthChecks)(meteredRouter)
	handler := middleware.Compression(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own write deadlines
		IdleTimeout:  60 * time.Second,
	}

	// Serve Prometheus metrics on a separate port
	var metricsSrv *http.Server
	if config.MetricsEnabled && config.MetricsPort != config.Port {
		metricsSrv = startMetricsServer(h, config.MetricsPort)
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, collector, converter, cancelWatch)

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

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Catalog
	api.HandleFunc("/movies", h.ListMovies).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}", h.GetMovie).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}", h.DeleteMovie).Methods("DELETE")

	// Streaming
	api.HandleFunc("/stream/{id:[0-9]+}", h.StreamMovie).Methods("GET")
	api.HandleFunc("/stream/{id:[0-9]+}/info", h.GetStreamInfo).Methods("GET")
	api.HandleFunc("/stream/{id:[0-9]+}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/stream/{id:[0-9]+}/subtitles", h.ListSubtitles).Methods("GET")
	api.HandleFunc("/stream/{id:[0-9]+}/subtitle{ext}", h.GetSubtitle).Methods("GET")

	// Administration
	api.HandleFunc("/admin/scan", h.TriggerScan).Methods("POST")
	api.HandleFunc("/admin/convert", h.TriggerConvert).Methods("POST")
	api.HandleFunc("/admin/refresh-metadata", h.TriggerRefreshMetadata).Methods("POST")

	return r
}

func startMetricsServer(h *handlers.Handlers, port string) *http.Server {
	m := mux.NewRouter()
	m.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      m,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("Metrics server error: %v", err)
		}
	}()

	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, converter *transcode.Converter, cancelWatch context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping directory watcher")
	cancelWatch()
	startup.LogShutdownStepComplete("Directory watcher stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Cleaning up conversion jobs")
	converter.Cleanup()
	startup.LogShutdownStepComplete("Conversion cleanup complete")

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
