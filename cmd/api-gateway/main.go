package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/coursework-ledger-api/api/swagger"
	"github.com/noah-isme/coursework-ledger-api/internal/handler"
	"github.com/noah-isme/coursework-ledger-api/internal/middleware"
	"github.com/noah-isme/coursework-ledger-api/internal/repository"
	"github.com/noah-isme/coursework-ledger-api/internal/service"
	"github.com/noah-isme/coursework-ledger-api/pkg/config"
	"github.com/noah-isme/coursework-ledger-api/pkg/database"
	"github.com/noah-isme/coursework-ledger-api/pkg/jobs"
	"github.com/noah-isme/coursework-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursework-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coursework-ledger-api/pkg/middleware/requestid"
	"github.com/noah-isme/coursework-ledger-api/pkg/storage"

	rediscache "github.com/noah-isme/coursework-ledger-api/pkg/cache"
)

// @title Coursework Ledger API
// @version 1.0.0
// @description Assignment, submission, grading and reward settlement ledger
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	txRunner := repository.NewTxRunner(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	eventRepo := repository.NewEventRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	exportRepo := repository.NewExportRepository(db)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSeed()
	if err := roleRepo.EnsureSeed(seedCtx, cfg.Ledger.OwnerAddress, time.Now().UTC()); err != nil {
		logr.Sugar().Fatalw("failed to seed roles", "error", err)
	}
	if err := settingsRepo.EnsureSeed(seedCtx, cfg.Ledger.MinPassingGrade, time.Now().UTC()); err != nil {
		logr.Sugar().Fatalw("failed to seed settings", "error", err)
	}

	// Optional redis-backed cache for assignment reads.
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := rediscache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.AssignmentTTL, logr, true)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret:          cfg.JWT.Secret,
		Expiration:      cfg.JWT.Expiration,
		Issuer:          cfg.JWT.Issuer,
		AdminAPIKeyHash: cfg.Ledger.AdminAPIKeyHash,
	})
	eventSvc := service.NewEventService(eventRepo, logr)
	accessSvc := service.NewAccessService(roleRepo, txRunner, eventRepo, metrics, logr)
	catalogSvc := service.NewCatalogService(assignmentRepo, settingsRepo, roleRepo, txRunner, eventRepo, cacheSvc, metrics, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, balanceRepo, settingsRepo, roleRepo, txRunner, eventRepo, catalogSvc, metrics, logr)
	tokenSvc := service.NewTokenService(tokenRepo, roleRepo, txRunner, eventRepo, cfg.Ledger.TreasuryAddress, metrics, logr)
	settlementSvc := service.NewSettlementService(submissionRepo, assignmentRepo, balanceRepo, settingsRepo, roleRepo, tokenSvc, txRunner, eventRepo, cfg.Ledger.TreasuryAddress, metrics, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, roleRepo, txRunner, eventRepo, metrics, logr)

	// Exports run on a background queue when enabled.
	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(submissionRepo, exportRepo, roleRepo, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr)
		exportQueue = jobs.NewQueue("ledger_export", exportSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(context.Background())
		defer exportQueue.Stop()
		exportSvc.SetQueue(exportQueue)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc,
		handler.NewAuthHandler(authSvc),
		handler.NewAssignmentHandler(catalogSvc),
		handler.NewSubmissionHandler(submissionSvc),
		handler.NewSettlementHandler(settlementSvc),
		handler.NewAccessHandler(accessSvc),
		handler.NewSettingsHandler(settingsSvc),
		handler.NewTokenHandler(tokenSvc),
		handler.NewEventHandler(eventSvc),
		exportSvc,
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	auth *handler.AuthHandler,
	assignments *handler.AssignmentHandler,
	submissions *handler.SubmissionHandler,
	settlement *handler.SettlementHandler,
	access *handler.AccessHandler,
	settings *handler.SettingsHandler,
	tokens *handler.TokenHandler,
	events *handler.EventHandler,
	exportSvc *service.ExportService,
) {
	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/token", auth.Token)

	// Read endpoints are public; the ledger state is not secret.
	api.GET("/assignments", assignments.List)
	api.GET("/assignments/:id", assignments.Get)
	api.GET("/assignments/:id/submission-count", assignments.SubmissionCount)
	api.GET("/assignments/:id/submissions/:student", submissions.Get)
	api.GET("/assignments/:id/submissions/:student/eligibility", submissions.Eligibility)
	api.GET("/students/:address/submissions", submissions.StudentHistory)
	api.GET("/students/:address/balance", submissions.Balance)
	api.GET("/roles/:capability", access.List)
	api.GET("/roles/:capability/:address", access.Check)
	api.GET("/settings", settings.Get)
	api.GET("/token/balances/:address", tokens.Balance)
	api.GET("/token/supply", tokens.Supply)
	api.GET("/events", events.List)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	protected.GET("/auth/me", auth.Me)
	protected.POST("/assignments", assignments.Create)
	protected.POST("/assignments/:id/deactivate", assignments.Deactivate)
	protected.POST("/assignments/:id/submissions", submissions.Submit)
	protected.POST("/assignments/:id/submissions/:student/grade", submissions.Grade)
	protected.POST("/claims", settlement.Claim)
	protected.POST("/claims/batch", settlement.ClaimBatch)
	protected.POST("/treasury/deposit", settlement.Deposit)
	protected.POST("/treasury/withdraw", settlement.Withdraw)
	protected.POST("/roles/grant", access.Grant)
	protected.POST("/roles/revoke", access.Revoke)
	protected.POST("/roles/transfer-ownership", access.TransferOwnership)
	protected.PUT("/settings/min-passing-grade", settings.UpdateMinPassingGrade)
	protected.POST("/settings/pause", settings.Pause)
	protected.POST("/settings/unpause", settings.Unpause)
	protected.POST("/token/mint", tokens.Mint)
	protected.POST("/token/burn", tokens.Burn)

	if exportSvc != nil {
		exports := handler.NewExportHandler(exportSvc)
		api.GET("/exports/download/:token", exports.Download)
		protected.POST("/exports", exports.Create)
		protected.GET("/exports/:id", exports.Get)
	}
}
