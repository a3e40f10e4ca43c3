package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campuspulse/attendance-api/api/swagger"
	"github.com/campuspulse/attendance-api/internal/handler"
	"github.com/campuspulse/attendance-api/internal/middleware"
	"github.com/campuspulse/attendance-api/internal/models"
	"github.com/campuspulse/attendance-api/internal/repository"
	"github.com/campuspulse/attendance-api/internal/service"
	"github.com/campuspulse/attendance-api/pkg/cache"
	"github.com/campuspulse/attendance-api/pkg/config"
	"github.com/campuspulse/attendance-api/pkg/database"
	"github.com/campuspulse/attendance-api/pkg/events"
	"github.com/campuspulse/attendance-api/pkg/export"
	"github.com/campuspulse/attendance-api/pkg/logger"
	corsmiddleware "github.com/campuspulse/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuspulse/attendance-api/pkg/middleware/requestid"
	"github.com/campuspulse/attendance-api/pkg/signing"
)

// @title CampusPulse Attendance API
// @version 1.0.0
// @description Attendance strategy classification, checkpoint scheduling, dual-layer mark verification and completion scoring.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, completion cache disabled", zap.Error(err))
		redisClient = nil
	}

	// Repositories.
	eventRepo := repository.NewEventRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)
	markRepo := repository.NewMarkRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Domain event fan-out.
	dispatcher := events.NewDispatcher(events.Config{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		Logger:     logr,
	})
	dispatcher.Subscribe(func(_ context.Context, evt events.Event) {
		logr.Info("domain event",
			zap.String("type", evt.Type),
			zap.String("event_id", evt.EventID),
			zap.String("checkpoint_id", evt.CheckpointID),
			zap.String("participant_id", evt.ParticipantID))
	})
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(rootCtx)
	defer dispatcher.Stop()

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret)
	strategySvc := service.NewStrategyService(eventRepo, strategyRepo, checkpointRepo, dispatcher, metricsSvc, service.SynthesizerOptions{
		MaxSessions:  cfg.Attendance.MaxSessions,
		SessionHours: cfg.Attendance.SessionHours,
	}, logr)
	scheduleSvc := service.NewScheduleService(eventRepo, checkpointRepo, nil, logr)
	participationSvc := service.NewParticipationService(markRepo, checkpointRepo, registrationRepo, nil, dispatcher, metricsSvc, nil, logr)
	completionSvc := service.NewCompletionService(strategySvc, eventRepo, checkpointRepo, participationSvc, registrationRepo, cacheRepo, metricsSvc, service.CompletionConfig{
		DefaultPresencePolicy: models.PresencePolicy(cfg.Attendance.PresencePolicy),
		CacheTTL:              cfg.Attendance.CompletionCacheTTL,
		CacheEnabled:          cfg.Attendance.CacheEnabled && redisClient != nil,
	}, logr)
	participationSvc.SetInvalidator(completionSvc)
	verificationSvc := service.NewVerificationService(tokenRepo, registrationRepo, participationSvc, checkpointRepo, auditRepo, signing.NewQRSigner(cfg.Verification.QRTokenSecret), metricsSvc, service.VerificationConfig{
		GraceWindow:          cfg.Verification.GraceWindow,
		CodeLength:           cfg.Verification.CodeLength,
		CodeRotationInterval: cfg.Verification.CodeRotationInterval,
	}, logr)
	exportSvc := service.NewExportService(eventRepo, checkpointRepo, participationSvc, registrationRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	// Handlers.
	strategyHandler := handler.NewStrategyHandler(strategySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	participationHandler := handler.NewParticipationHandler(participationSvc, exportSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc)
	completionHandler := handler.NewCompletionHandler(completionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	go sweepExpiredTokens(rootCtx, tokenRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		eventsGroup := api.Group("/events/:id")
		{
			eventsGroup.POST("/strategy/decide", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), strategyHandler.Decide)
			eventsGroup.GET("/strategy", strategyHandler.Get)
			eventsGroup.PUT("/strategy/override", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), strategyHandler.Override)

			eventsGroup.GET("/checkpoints", scheduleHandler.List)
			eventsGroup.PUT("/checkpoints", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer), scheduleHandler.Replace)

			eventsGroup.POST("/codes", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), verificationHandler.IssueRotatingCode)
			eventsGroup.POST("/codes/validate", verificationHandler.ValidateCode)
			eventsGroup.GET("/audit", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), verificationHandler.ListAudit)

			eventsGroup.POST("/self-report", participationHandler.SelfReport)
			eventsGroup.POST("/marks/bulk", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), participationHandler.BulkOverride)
			eventsGroup.GET("/participants/:participantId/marks", participationHandler.ListParticipantMarks)

			eventsGroup.GET("/completion", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), completionHandler.GetEvent)
			eventsGroup.GET("/participants/:participantId/completion", completionHandler.GetParticipant)
			eventsGroup.DELETE("/completion/cache", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), completionHandler.Invalidate)
		}

		checkpoints := api.Group("/checkpoints/:id")
		{
			checkpoints.POST("/qr-token", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), verificationHandler.IssueSessionToken)
			checkpoints.GET("/marks", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), participationHandler.ListCheckpointMarks)
			checkpoints.GET("/marks/export", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), participationHandler.ExportCheckpointMarks)
			checkpoints.GET("/sheet", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), participationHandler.SignInSheet)
		}

		api.POST("/scan", middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer, models.RoleOperator), verificationHandler.Scan)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// sweepExpiredTokens prunes verification tokens a day past expiry. Audit
// rows keep the token reference, so retention stays generous.
func sweepExpiredTokens(ctx context.Context, tokens *repository.TokenRepository, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-24 * time.Hour)
			deleted, err := tokens.DeleteExpired(ctx, cutoff)
			if err != nil {
				logr.Warn("token sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logr.Info("expired tokens pruned", zap.Int64("count", deleted))
			}
		}
	}
}
