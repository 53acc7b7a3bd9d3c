package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/database"
	"github.com/examly/examly-backend/internal/handler"
	"github.com/examly/examly-backend/internal/logger"
	"github.com/examly/examly-backend/internal/repository"
	"github.com/examly/examly-backend/internal/router"
	"github.com/examly/examly-backend/internal/service"
	"github.com/examly/examly-backend/internal/validator"
	"github.com/examly/examly-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := validator.Setup(); err != nil {
		log.Fatal().Err(err).Msg("validator setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	examRepo := repository.NewExamRepository(pool)
	subRepo := repository.NewSubmissionRepository(pool)
	monitorRepo := repository.NewMonitorRepository(rdb)
	violationQueue := repository.NewViolationQueue(rdb)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	examSvc := service.NewExamService(examRepo, subRepo, monitorRepo, log)
	violationSvc := service.NewViolationService(examRepo, violationQueue, subRepo, monitorRepo, log)

	violationWorker := worker.NewViolationWorker(violationQueue, subRepo, log)
	go violationWorker.Run(ctx)

	r := router.New(router.Deps{
		Config:     cfg,
		Auth:       authSvc,
		Exams:      handler.NewExamHandler(examSvc, log),
		Violations: handler.NewViolationHandler(violationSvc, log),
		Monitor:    handler.NewMonitorHandler(examSvc, monitorRepo, cfg.AllowedOrigins, log),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
