package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"score-inverter/internal/api"
	"score-inverter/internal/config"
	"score-inverter/internal/db"
	"score-inverter/internal/inverter"
	"score-inverter/internal/logger"
	"score-inverter/internal/notify"
	"score-inverter/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()
	appLogger := logger.New(500)
	appLogger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	// Initialize database
	var database db.Store
	var err error

	if cfg.DatabaseURL == "" {
		appLogger.Warn("DATABASE_URL not set - running in demo mode")
		database = db.NewMockWithSampleData()
	} else {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Database error: %v", err)
		}
		appLogger.Info("Connected to database")
	}
	defer database.Close()

	// Initialize notifier
	notifier := notify.New(cfg.PushoverAppToken, cfg.PushoverUserKey)
	if notifier.IsEnabled() {
		appLogger.Info("Pushover notifications enabled")
	}

	svc := service.New(database, appLogger.Named("service"), service.Options{
		Solver: inverter.Config{
			Workers:       cfg.Solver.Workers,
			MaxIterations: cfg.Solver.MaxIterations,
		},
		Cache:    cfg.Cache,
		Notifier: notifier,
	})
	appLogger.Info("Solver ready (workers=%d, max_iterations=%d, cache_writers=%d)",
		cfg.Solver.Workers, cfg.Solver.MaxIterations, cfg.Cache.Writers)

	// Initialize API
	handler := api.NewHandler(svc, database, appLogger.Named("api"), nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Start HTTP servers
	var servers []*http.Server
	errCh := make(chan error, 1)
	for _, addr := range strings.Split(cfg.BindAddrs, ",") {
		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%s", strings.TrimSpace(addr), cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)
		appLogger.Info("Starting server on %s", srv.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				select {
				case errCh <- fmt.Errorf("listener %s: %w", srv.Addr, err):
				default:
				}
			}
		}()
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		appLogger.Info("Shutting down...")
	case err := <-errCh:
		appLogger.Error("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Warn("Shutdown %s: %v", srv.Addr, err)
		}
	}

	// Flush queued cache writes before the database closes
	svc.Close()
}
