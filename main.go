package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tasktrophy/internal/config"
	"tasktrophy/internal/database"
	"tasktrophy/internal/device"
	"tasktrophy/internal/handlers"
	logger "tasktrophy/internal/logging"
	"tasktrophy/internal/models"
	"tasktrophy/internal/repository"
	"tasktrophy/internal/router"
	"tasktrophy/internal/tracker"

	"go.uber.org/zap"
)

func main() {
	// A minimal bootstrap logger until the configured one is up.
	bootLog, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize bootstrap logger: " + err.Error())
	}

	conf, err := config.Load(".", bootLog)
	if err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.Init(logger.Options{
		Directory:  conf.Logging.Directory,
		MaxSize:    conf.Logging.MaxSize,
		MaxBackups: conf.Logging.MaxBackups,
		MaxAge:     conf.Logging.MaxAge,
		Compress:   conf.Logging.Compress,
	})
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	challenges, err := models.LoadChallenges(conf.Challenges.File)
	if err != nil {
		log.Fatal("Failed to load challenge tuning", zap.Error(err))
	}

	db, err := database.Open(conf.Database, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	stepRepo := repository.NewStepRepo(db)
	runRepo := repository.NewRunRepo(db)
	focusRepo := repository.NewFocusRepo(db)
	sleepRepo := repository.NewSleepRepo(db)

	state := device.NewState()
	profile := device.NewProfile(
		conf.Bridge.PackageID,
		conf.Bridge.ExpectedPackage,
		conf.Bridge.DataDir,
		conf.Bridge.FilesDir,
		conf.Bridge.StateDir,
		nil,
		log,
	)

	hub := handlers.NewEventHub(log)
	clock := tracker.SystemClock()

	steps, err := tracker.NewStepTracker(log, clock, state, stepRepo, hub)
	if err != nil {
		log.Fatal("Failed to initialize step tracker", zap.Error(err))
	}
	runs, err := tracker.NewRunTracker(log, clock, state, runRepo, hub, challenges.GhostRunner)
	if err != nil {
		log.Fatal("Failed to initialize run tracker", zap.Error(err))
	}
	focus, err := tracker.NewFocusTracker(log, clock, state, profile, focusRepo, hub, challenges.DeepWork)
	if err != nil {
		log.Fatal("Failed to initialize focus tracker", zap.Error(err))
	}
	sleep, err := tracker.NewSleepTracker(log, clock, sleepRepo, hub, challenges.Sleep)
	if err != nil {
		log.Fatal("Failed to initialize sleep tracker", zap.Error(err))
	}

	r := router.Setup(log, conf, router.Handlers{
		Hub:      hub,
		Step:     handlers.NewStepHandler(log, steps),
		Run:      handlers.NewRunHandler(log, runs),
		Focus:    handlers.NewFocusHandler(log, focus),
		Sleep:    handlers.NewSleepHandler(log, sleep),
		Platform: handlers.NewPlatformHandler(log, state, profile, hub, steps, runs, focus, sleep),
	})

	srv := &http.Server{
		Addr:    net.JoinHostPort(conf.Server.Host, conf.Server.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Bridge listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	// Accumulated-but-unwritten state must survive the restart.
	runs.Shutdown()
	focus.Flush()
}
