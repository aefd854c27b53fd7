package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensor_monitor/internal/config"
	"sensor_monitor/internal/events"
	"sensor_monitor/internal/handlers"
	"sensor_monitor/internal/logger"
	"sensor_monitor/internal/repository"
	"sensor_monitor/internal/repository/db"
	"sensor_monitor/internal/server"
	"sensor_monitor/internal/service"
	"sensor_monitor/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

// source serves both history and latest-reading fetches.
type source interface {
	service.ReadingFetcher
	service.LatestFetcher
}

func main() {
	// load configs/config.yml, .env and SENSOR_* env
	cfg, err := config.Load("configs", ".")
	log := logger.Get(cfg.LogLevel)
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	defer func() { _ = log.Sync() }()

	// open DB
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	src, closeSrc := newSource(cfg, log)
	defer closeSrc()
	checker := newChecker(cfg, src)

	bus := events.NewChannel(log)
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(service.Deps{
		Fetcher:         src,
		Checker:         checker,
		Repos:           repos,
		Events:          bus,
		Log:             log,
		WindowSize:      cfg.WindowSize,
		StableThreshold: cfg.StableThreshold,
		AlarmInterval:   cfg.AlarmInterval,
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// live readings
	poller := service.NewPoller(src, services.Readings, log)
	go poller.Run(ctx, cfg.PollInterval)

	if cfg.AlarmAutostart {
		services.Alarm.Start(ctx, 0)
	}

	// start HTTP server
	srv := server.New(server.Options{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	})
	runHTTPServer(srv, cfg, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, services.Alarm, srv, log)
}

// openDB initializes the SQLite alarm journal.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "alarms.db")
		dbPath = "alarms.db"
	}
	return db.InitDB(dbPath)
}

// newSource picks the readings source named by readings.source.
func newSource(cfg config.Config, log *logger.Logger) (source, func()) {
	switch cfg.ReadingsSource {
	case config.SourceInflux:
		r := repository.NewInfluxReadings(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.Location)
		log.Infow("readings_source", "kind", cfg.ReadingsSource, "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
		return r, r.Close
	case config.SourceHTTP:
		log.Infow("readings_source", "kind", cfg.ReadingsSource, "url", cfg.UpstreamURL)
		return upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, cfg.Location), func() {}
	default:
		log.Infow("readings_source", "kind", config.SourceSimulator, "seed", cfg.SimSeed)
		return service.NewSimulatorSource(cfg.SimSeed, cfg.PollInterval, cfg.Location), func() {}
	}
}

// newChecker picks the alarm collaborator named by alarm.source.
func newChecker(cfg config.Config, src service.LatestFetcher) service.AlarmChecker {
	if cfg.AlarmSource == config.SourceHTTP {
		return upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, cfg.Location)
	}
	return service.NewThresholdChecker(src, cfg.Limits)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, cfg config.Config, h *handlers.Handler, log *logger.Logger) {
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Infow("http_listening", "port", port)
		err := srv.Run(port, h.CORS(h.InitRoutes(), cfg.AllowedOrigins))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, alarm service.Alarm, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	alarm.Stop()
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
