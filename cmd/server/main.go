package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appaccounting "github.com/fiscaltms/backend/internal/application/accounting"
	appfiscal "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/fiscaltms/backend/internal/domain/shared"
	"github.com/fiscaltms/backend/internal/domain/shared/valueobject"
	"github.com/fiscaltms/backend/internal/infrastructure/auth"
	"github.com/fiscaltms/backend/internal/infrastructure/cache"
	"github.com/fiscaltms/backend/internal/infrastructure/config"
	"github.com/fiscaltms/backend/internal/infrastructure/logger"
	"github.com/fiscaltms/backend/internal/infrastructure/nfe"
	"github.com/fiscaltms/backend/internal/infrastructure/persistence"
	"github.com/fiscaltms/backend/internal/infrastructure/storage"
	"github.com/fiscaltms/backend/internal/interfaces/http/handler"
	"github.com/fiscaltms/backend/internal/interfaces/http/middleware"
	"github.com/fiscaltms/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting fiscal TMS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database with zap-backed GORM logger
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database connection", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	// Initialize repositories
	fiscalDocRepo := persistence.NewGormFiscalDocumentRepository(db.DB)
	nfseRepo := persistence.NewGormNFSeDocumentRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Idempotency store: Redis when reachable, in-process otherwise
	var idempotency shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotency = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotency = redisStore
		log.Info("Redis idempotency store connected",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// XML archive: S3-compatible object storage, stub when unconfigured
	var archive appfiscal.XMLArchive
	s3Archive, err := storage.NewS3XMLArchive(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Warn("Object storage unavailable, archiving XML in memory", zap.Error(err))
		archive = storage.NewStubXMLArchive(cfg.Storage.Bucket)
	} else {
		bucketCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s3Archive.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Failed to ensure XML archive bucket", zap.Error(err))
		}
		cancel()
		archive = s3Archive
		log.Info("XML archive ready", zap.String("bucket", s3Archive.GetBucket()))
	}

	// Domain calculators. The PIS/COFINS regime is a deployment-wide
	// default; per-document overrides go through the tax endpoints.
	classifier := fiscal.NewNFeClassifier()
	var taxCalc *fiscal.TaxCreditCalculator
	if cfg.Tax.DefaultPISCOFINSRegime == "CUMULATIVE" {
		taxCalc = fiscal.NewTaxCreditCalculatorWithRate(valueobject.CumulativeRegime())
	} else {
		taxCalc = fiscal.NewTaxCreditCalculator()
	}
	ibsCalc := fiscal.NewIBSCalculator()

	// Initialize application services
	parser := nfe.NewParser()
	documentService := appfiscal.NewDocumentService(
		fiscalDocRepo, classifier, taxCalc, ibsCalc, parser, idempotency, archive, log,
	)
	nfseService := appfiscal.NewNFSeService(nfseRepo, log)
	engineService := appaccounting.NewEngineService(txScope, log)
	accountService := appaccounting.NewAccountService(accountRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(db.DB)
	fiscalHandler := handler.NewFiscalDocumentHandler(documentService)
	nfseHandler := handler.NewNFSeHandler(nfseService)
	accountingHandler := handler.NewAccountingHandler(engineService, accountService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodySizeLimit(cfg.HTTP.MaxBodySize))

	// Setup API routes. Health probes stay public, everything else
	// requires a tenant-scoped JWT.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/health",
			"/api/v1/ready",
		},
		Logger: log,
	}
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig)).
		Register(systemHandler).
		Register(fiscalHandler).
		Register(nfseHandler).
		Register(accountingHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
