package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight-tracker/internal/core/cache"
	"flight-tracker/internal/core/config"
	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/core/server"
	flightadapter "flight-tracker/internal/features/flights/adapters"
	flighthandler "flight-tracker/internal/features/flights/handler"
	flightservice "flight-tracker/internal/features/flights/service"
	trackinghandler "flight-tracker/internal/features/tracking/handler"
	trackingservice "flight-tracker/internal/features/tracking/service"
	"flight-tracker/internal/features/tracking/ws"

	"go.uber.org/zap"
)

// @title Flight Tracker API
// @version 1.0
// @description Real-time flight tracking: journey registry, single-flight polling and live WebSocket updates.
// @contact.name API Support
// @contact.email support@flighttracker.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Flight document store
	store, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Redis connection failed", zap.Error(err))
	}
	defer store.Close()
	repo := flightadapter.NewRedisFlightRepository(store)

	collector := metrics.NewCollector()

	// External flight-data feed
	feed := flightadapter.NewAeroAPIAdapter(cfg.Feed).WithMetrics(collector)
	if err := feed.HealthCheck(context.Background()); err != nil {
		l.Fatal("Feed health check failed", zap.Error(err))
	}
	l.Info("Feed connection verified")

	// Subscriber registry and tracking coordinator
	registry := ws.NewRegistry(ws.Options{
		SetupDelay:    time.Duration(cfg.WS.SetupDelayMs) * time.Millisecond,
		SetupTimeout:  time.Duration(cfg.WS.SetupTimeoutMs) * time.Millisecond,
		SweepInterval: time.Duration(cfg.WS.SweepIntervalSeconds) * time.Second,
	}, collector)

	coordinator := trackingservice.NewCoordinator(repo, feed, registry, collector, trackingservice.Options{
		PollInterval:   time.Duration(cfg.Tracking.PollIntervalSeconds) * time.Second,
		ErrorThreshold: cfg.Tracking.ErrorThreshold,
		BackfillWindow: time.Duration(cfg.Tracking.BackfillWindowSeconds) * time.Second,
	})
	registry.SetStateFunc(func() interface{} {
		return coordinator.CurrentState(context.Background())
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Run(sweepCtx)

	// Pick up tracking interrupted by a previous process
	if err := trackingservice.NewRecoveryManager(coordinator).Run(context.Background()); err != nil {
		l.Error("Recovery pass failed", zap.Error(err))
	}

	flightSvc := flightservice.NewFlightService(repo, feed)
	flightHdl := flighthandler.NewFlightHandler(flightSvc)
	trackingHdl := trackinghandler.NewTrackingHandler(coordinator, registry)

	srv := server.New(cfg)
	srv.RegisterOps(store.Ping, collector)

	// Register Routes
	srv.App.Get("/flights", flightHdl.ListFlights)
	srv.App.Get("/flights/:id", flightHdl.GetFlight)
	srv.App.Post("/flights/:id", flightHdl.RegisterFlight)
	srv.App.Delete("/flights/:id", flightHdl.DeleteFlight)
	srv.App.Post("/tracking/:id/start", trackingHdl.StartTracking)
	srv.App.Post("/tracking/:id/stop", trackingHdl.StopTracking)
	srv.App.Get("/tracking/state", trackingHdl.TrackingState)
	srv.App.Get("/ws", trackingHdl.UpgradeWS, trackingHdl.SubscribeWS())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		l.Fatal("Server failed to start", zap.Error(err))
	case sig := <-sigCh:
		l.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coordinator.Shutdown(shutdownCtx)
	registry.CloseAll()
	stopSweep()

	if err := srv.App.ShutdownWithContext(shutdownCtx); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}
	l.Info("Shutdown complete")
}
