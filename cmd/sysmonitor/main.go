package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notchbar/sysmonitor/internal/collector"
	"notchbar/sysmonitor/internal/config"
	"notchbar/sysmonitor/internal/database"
	"notchbar/sysmonitor/internal/device"
	"notchbar/sysmonitor/internal/logger"
	"notchbar/sysmonitor/internal/platform"
	"notchbar/sysmonitor/internal/recorder"
	"notchbar/sysmonitor/internal/repository"
	"notchbar/sysmonitor/internal/router"
	"notchbar/sysmonitor/internal/sampler"
	"notchbar/sysmonitor/internal/server"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/local.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Print one sample and exit")
	asJSON := flag.Bool("json", false, "With -once, print the sample as JSON")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize platform
	stats, err := platform.NewHostStats(log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize host statistics", zap.Error(err))
	}
	resourceSampler := sampler.NewSampler(stats, cfg.Sampler.RetryDelay, log.Logger)

	if *once {
		if err := printSample(os.Stdout, resourceSampler, cfg.Sampler, *asJSON); err != nil {
			log.Fatal("Failed to print sample", zap.Error(err))
		}
		return
	}

	log.Info("Starting sysmonitor",
		zap.String("env", cfg.Env),
		zap.String("config_path", *configPath),
	)

	// Initialize history recording
	var snapshotRecorder *recorder.Recorder
	var history server.HistoryReader
	if cfg.History.Enabled {
		db, err := database.New(cfg.History.StoragePath, log.Logger)
		if err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close database", zap.Error(err))
			}
		}()

		repo := repository.NewSnapshotRepository(db.DB, log.Logger)
		history = repo

		hostID := device.NewResolver().HostID(cfg.Device.ID)
		if cfg.Device.ID == "" {
			log.Info("Resolved host ID", zap.String("host_id", hostID))
		} else {
			log.Info("Using configured host ID", zap.String("host_id", hostID))
		}

		snapshotCollector := collector.NewSnapshotCollector(
			cfg.History.BatchSize,
			cfg.History.FlushInterval,
			log.Logger,
		)
		snapshotRecorder = recorder.NewRecorder(resourceSampler, snapshotCollector, repo, recorder.Options{
			Interval:      cfg.History.Interval,
			Retention:     cfg.History.Retention,
			RetryAttempts: cfg.Sampler.RetryAttempts,
			DiskPath:      cfg.Sampler.DiskPath,
			HostID:        hostID,
		}, log.Logger)
		snapshotRecorder.Start()
	} else {
		log.Info("History recording disabled in configuration")
	}

	// Initialize query server (for the widget)
	var httpServer *http.Server
	var limiter *server.RateLimiter
	if cfg.Server.Enabled {
		opts := server.Options{
			History:       history,
			RetryAttempts: cfg.Sampler.RetryAttempts,
			DiskPath:      cfg.Sampler.DiskPath,
		}
		if snapshotRecorder != nil {
			opts.Latest = snapshotRecorder
		}
		dispatcher := server.NewDispatcher(resourceSampler, opts, log.Logger)
		limiter = server.NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst)
		queryServer := server.NewServer(dispatcher, limiter, log.Logger)

		addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
		httpServer = &http.Server{
			Addr:         addr,
			Handler:      router.New(queryServer, log.Logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info("Starting query server", zap.String("address", addr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Query server error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Query server disabled in configuration")
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("Query server shutdown error", zap.Error(err))
		} else {
			log.Info("Query server stopped")
		}
		limiter.Stop()
	}

	if snapshotRecorder != nil {
		done := make(chan struct{})
		go func() {
			snapshotRecorder.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(3 * time.Second):
			log.Warn("Recorder shutdown timeout reached, pending snapshots may be lost")
		}
	}

	log.Info("sysmonitor stopped")
}
