package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/institute-fee-api/api/swagger"
	"github.com/noah-isme/institute-fee-api/internal/handler"
	"github.com/noah-isme/institute-fee-api/internal/repository"
	"github.com/noah-isme/institute-fee-api/internal/router"
	"github.com/noah-isme/institute-fee-api/internal/service"
	"github.com/noah-isme/institute-fee-api/pkg/cache"
	"github.com/noah-isme/institute-fee-api/pkg/config"
	"github.com/noah-isme/institute-fee-api/pkg/database"
	"github.com/noah-isme/institute-fee-api/pkg/jobs"
	"github.com/noah-isme/institute-fee-api/pkg/logger"
	"github.com/noah-isme/institute-fee-api/pkg/storage"
)

// @title Institute Fee API
// @version 1.0.0
// @description Fee computation and billing API for multi-student families
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Fees.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, fee summary caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Fees.FamilySummaryTTL, logr, true)
		}
	}

	store, err := storage.NewLocalStorage(cfg.Statements.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare statement storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Statements.SignedURLSecret, cfg.Statements.SignedURLTTL)

	validate := validator.New()

	familyRepo := repository.NewFamilyRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	feeSvc := service.NewFeeService(subscriptionRepo, catalogRepo, studentRepo, familyRepo, cacheSvc, cfg.Fees.FamilySummaryTTL, logr)
	familySvc := service.NewFamilyService(familyRepo, feeSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, familyRepo, feeSvc, validate, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, feeSvc, validate, logr)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, studentRepo, catalogRepo, feeSvc, validate, logr)
	allocationSvc := service.NewAllocationService(studentRepo, subscriptionRepo, catalogRepo, allocationRepo, metrics, validate, logr, cfg.Fees.MaterializePageSize)
	paymentSvc := service.NewPaymentService(paymentRepo, allocationRepo, studentRepo, familyRepo, validate, logr)
	statementSvc := service.NewStatementService(feeSvc, store, signer, fmt.Sprintf("%s/statements", cfg.APIPrefix), logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "institute-fee-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("allocations", allocationSvc.JobHandler(), jobs.QueueConfig{
		Workers:    cfg.Fees.AsyncWorkers,
		MaxRetries: cfg.Fees.AsyncRetries,
		RetryDelay: cfg.Fees.AsyncRetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	allocationSvc.AttachQueue(queue)

	// Expired statement files are swept hourly; downloads only live as long
	// as their signed URLs anyway.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := statementSvc.CleanupExpired(cfg.Statements.Retention); err != nil {
					logr.Sugar().Warnw("statement cleanup failed", "error", err)
				}
			}
		}
	}()

	r := router.New(router.Dependencies{
		Config:        cfg,
		Logger:        logr,
		Auth:          authSvc,
		Metrics:       metrics,
		Families:      handler.NewFamilyHandler(familySvc, feeSvc, statementSvc),
		Students:      handler.NewStudentHandler(studentSvc, feeSvc),
		Catalog:       handler.NewCatalogHandler(catalogSvc),
		Subscriptions: handler.NewSubscriptionHandler(subscriptionSvc),
		Allocations:   handler.NewAllocationHandler(allocationSvc),
		Payments:      handler.NewPaymentHandler(paymentSvc),
		Statements:    handler.NewStatementHandler(statementSvc),
		AuthHandler:   handler.NewAuthHandler(authSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
