package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/hanuri-school/registration-api/internal/handler"
	"github.com/hanuri-school/registration-api/internal/middleware"
	"github.com/hanuri-school/registration-api/internal/repository"
	"github.com/hanuri-school/registration-api/internal/service"
	"github.com/hanuri-school/registration-api/pkg/cache"
	"github.com/hanuri-school/registration-api/pkg/config"
	"github.com/hanuri-school/registration-api/pkg/database"
	"github.com/hanuri-school/registration-api/pkg/logger"
	corsmiddleware "github.com/hanuri-school/registration-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hanuri-school/registration-api/pkg/middleware/requestid"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	queueRepo := repository.NewQueueRepository(redisClient, cfg.Registration.QueueKeyPrefix)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	catalogSvc := service.NewCatalogService(offeringRepo, cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, catalogSvc, metricsSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	registrationSvc := service.NewRegistrationService(queueRepo, studentRepo, metricsSvc, validate, logr, service.RegistrationSessionConfig{
		SessionKeySecret: cfg.Registration.SessionKeySecret,
		SessionKeyTTL:    cfg.Registration.SessionKeyTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Registration: handler.NewRegistrationHandler(registrationSvc, enrollmentSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		Schedules:    handler.NewScheduleHandler(scheduleSvc),
		Offerings:    handler.NewOfferingHandler(catalogSvc),
		Students:     handler.NewStudentHandler(studentSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
