package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/kartlab/catalogd/internal/config"
	"github.com/kartlab/catalogd/internal/db"
	"github.com/kartlab/catalogd/internal/ingestion"
	"github.com/kartlab/catalogd/internal/logging"
	"github.com/kartlab/catalogd/internal/matching"
	"github.com/kartlab/catalogd/internal/repository"
	"github.com/kartlab/catalogd/internal/review"
	"github.com/kartlab/catalogd/internal/scanner"
	"github.com/kartlab/catalogd/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging)

	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, "./migrations", logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	jobRepo := repository.NewImportJobRepository(conn.Pool)
	recordRepo := repository.NewRawRecordRepository(conn.Pool)
	proposalRepo := repository.NewProposalRepository(conn.Pool)
	catalogRepo := repository.NewCatalogRepository(conn.Pool)
	auditRepo := repository.NewAuditLogRepository(conn.Pool)

	scorer := matching.NewScorer(matching.DefaultWeights())
	matcher := matching.NewMatcher(scorer, matching.Thresholds{
		AutoMatch: cfg.Pipeline.AutoMatchThreshold,
		Review:    cfg.Pipeline.ReviewThreshold,
	})

	runner := ingestion.NewRunner(jobRepo, recordRepo, proposalRepo, catalogRepo, matcher, cfg.Pipeline.Workers, logger)
	reviewSvc := review.NewService(proposalRepo, auditRepo, repository.NewTxManager(conn), logger)
	scan := scanner.NewScanner(catalogRepo, scorer, cfg.Pipeline.DuplicateThreshold, cfg.Pipeline.ScannerConcurrency, logger)

	srv := server.New(jobRepo, recordRepo, proposalRepo, catalogRepo, runner, reviewSvc, scan, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      corsHandler.Handler(srv.Routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting catalog pipeline server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server exited")
}
