package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/quizflash/internal/api"
	"github.com/vytor/quizflash/internal/config"
	"github.com/vytor/quizflash/internal/db"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/repository/kv"
	"github.com/vytor/quizflash/internal/services"
	"github.com/vytor/quizflash/internal/shuffle"
	"github.com/vytor/quizflash/internal/store"
	"github.com/vytor/quizflash/internal/store/redis"
	"github.com/vytor/quizflash/internal/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("QuizFlash Server Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("store_backend=%s", cfg.StoreBackend)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("exam_warning_seconds=%d", cfg.ExamWarningSeconds)
	log.Debug("default_exam_minutes=%d", cfg.DefaultExamMinutes)
	log.Debug("max_exam_minutes=%d", cfg.MaxExamMinutes)
	log.Debug("max_upload_bytes=%d", cfg.MaxUploadBytes)

	ctx := logger.NewContext(context.Background(), log)

	kvStore, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open %s store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing store")
		if err := closer.Close(); err != nil {
			log.Warn("failed to close store: %v", err)
		}
	}()

	// Initialize repositories and services
	subjectRepo := kv.NewSubjectRepository(kvStore)
	examRepo := kv.NewExamRepository(kvStore)
	rnd := shuffle.New()

	examService := services.NewExamService(subjectRepo, examRepo, rnd, services.ExamConfig{
		WarningSeconds: cfg.ExamWarningSeconds,
		DefaultMinutes: cfg.DefaultExamMinutes,
		MaxMinutes:     cfg.MaxExamMinutes,
	})

	if _, err := examService.ResumeExam(ctx); err != nil {
		if !errors.HasCode(err, errors.ErrCodeNotFound) {
			log.Warn("failed to resume exam: %v", err)
		}
	} else {
		log.Info("resumed in-progress exam")
	}

	srv := &api.Server{
		SubjectService:  services.NewSubjectService(subjectRepo),
		MCQService:      services.NewMCQService(subjectRepo, int64(cfg.MaxUploadBytes)),
		ExamService:     examService,
		PracticeService: services.NewPracticeService(subjectRepo, rnd),
		MaxUploadBytes:  int64(cfg.MaxUploadBytes),
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	if p, ok := kvStore.(store.Pinger); ok {
		srv.Pinger = p
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// The exam snapshot stays stored and resumes on the next start.
	log.Debug("stopping exam timer")
	examService.Shutdown()

	log.Info("===========================================")
	log.Info("QuizFlash Server Stopped")
	log.Info("===========================================")
}

// openStore builds the configured key-value backend.
func openStore(ctx context.Context, cfg config.Config) (store.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.New(database.DB), database, nil
	case config.BackendMemory:
		logger.FromContext(ctx).Warn("using in-memory store, data is lost on exit")
		return store.NewMemory(), io.NopCloser(nil), nil
	case config.BackendRedis:
		s, err := redis.Dial(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
