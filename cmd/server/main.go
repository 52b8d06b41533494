package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zgreco2000/hivqe-workbench/internal/clients/hivqe"
	"github.com/zgreco2000/hivqe-workbench/internal/config"
	"github.com/zgreco2000/hivqe-workbench/internal/database"
	"github.com/zgreco2000/hivqe-workbench/internal/events"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/convergence"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/pes"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/reference"
	"github.com/zgreco2000/hivqe-workbench/internal/scheduler"
	"github.com/zgreco2000/hivqe-workbench/internal/server"
	"github.com/zgreco2000/hivqe-workbench/pkg/logger"
)

func main() {
	// Load configuration first so the log level applies from the start
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting HI-VQE workbench")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Shared collaborators
	eventManager := events.NewManager(log)
	client := hivqe.New(cfg.HIVQEServiceURL, cfg.HIVQEAPIToken, log)
	jobsRepo := jobs.NewRepository(db.Conn(), log)
	refsRepo := reference.NewRepository(db.Conn(), log)

	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second
	scanner := convergence.NewScanner(client, jobsRepo, eventManager, pollInterval, log)
	assembler := pes.NewAssembler(client, jobsRepo, eventManager, pollInterval, log)

	// Background refresh keeps ledger statuses current so HTTP reads never
	// block on remote completion
	sched := scheduler.New(log)
	refresh := scheduler.NewJobRefresh(client, jobsRepo, eventManager, log)
	if err := sched.AddJob(fmt.Sprintf("@every %ds", cfg.PollIntervalSec), refresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	if err := sched.AddJob("@every 6h", scheduler.NewHealthCheck(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check job")
	}
	sched.Start()
	defer sched.Stop()

	defaults := convergence.Defaults{Backend: cfg.Backend, UseSession: cfg.UseSession}
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		Convergence: convergence.NewHandler(scanner, refsRepo, defaults, log),
		PES:         pes.NewHandler(assembler, pes.Defaults{Backend: cfg.Backend, UseSession: cfg.UseSession}, log),
		Jobs:        jobs.NewHandler(jobsRepo, log),
		Reference:   reference.NewHandler(refsRepo, log),
		DevMode:     cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
