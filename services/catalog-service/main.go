package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awspkg "github.com/dailykart/dailykart/pkg/aws"
	ddbpkg "github.com/dailykart/dailykart/pkg/dynamodb"
	"github.com/dailykart/dailykart/pkg/telemetry"
	"github.com/dailykart/dailykart/services/catalog-service/config"
	"github.com/dailykart/dailykart/services/catalog-service/controllers"
	"github.com/dailykart/dailykart/services/catalog-service/repository"
	"github.com/dailykart/dailykart/services/catalog-service/routes"
	"github.com/dailykart/dailykart/services/catalog-service/seed"
	"github.com/dailykart/dailykart/services/catalog-service/services"
	"github.com/dailykart/dailykart/services/common/logger"
	commonmw "github.com/dailykart/dailykart/services/common/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "catalog-service"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		awsCfg  sdkaws.Config
		logSink *awspkg.CloudWatchLogsClient
		sinkErr error
	)
	if cfg.NeedsAWS() {
		c, err := awspkg.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			bootstrapFatal("AWS config init failed", err)
		}
		awsCfg = c
		if err := cfg.ResolveSecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			bootstrapFatal("Secrets resolution failed", err)
		}
		if cfg.CloudWatchEnabled {
			logSink, sinkErr = awspkg.NewCloudWatchLogsClient(ctx, awsCfg, "", serviceName)
		}
	}

	var flush func()
	if sinkErr == nil && logSink != nil {
		flush = logger.Initialize(cfg.Environment, logSink)
	} else {
		flush = logger.Initialize(cfg.Environment, nil)
	}
	defer flush()
	if sinkErr != nil {
		zap.L().Warn("CloudWatch Logs init failed, logging to stdout only", zap.Error(sinkErr))
	}
	if err := cfg.Validate(); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	var metrics *awspkg.MetricsClient
	if cfg.NeedsAWS() {
		metrics = awspkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchEnabled)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv(serviceName, cfg.Environment))
	if err != nil {
		zap.L().Warn("Tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// ── Storage ──
	var productRepo repository.ProductRepo = repository.NewMemoryRepo()
	if cfg.Store == config.StoreDynamoDB {
		ddb := ddbpkg.NewClientFromConfig(awsCfg, cfg.AWS.Endpoint)
		if err := ddbpkg.EnsureTable(ctx, ddb, cfg.ProductsTable, repository.HashKey); err != nil {
			zap.L().Fatal("Failed to ensure products table", zap.Error(err))
		}
		productRepo = repository.NewDynamoAdapter(ddb, cfg.ProductsTable)
		zap.L().Info("Products stored in DynamoDB", zap.String("table", cfg.ProductsTable))
	} else {
		zap.L().Warn("CATALOG_STORE=memory, products are lost on restart")
	}

	productService := services.NewProductService(productRepo)
	if inputs, err := seed.Load(cfg.SeedFile); err != nil {
		zap.L().Warn("Failed to load seed catalog", zap.Error(err))
	} else if n, err := productService.SeedIfEmpty(ctx, inputs); err != nil {
		zap.L().Warn("Failed to seed catalog", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("Seeded catalog", zap.Int("products", n))
	}

	// ── Admin auth ──
	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		zap.L().Fatal("Failed to init token service", zap.Error(err))
	}
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		zap.L().Warn("ADMIN_PASSWORD_HASH not set, hashing ADMIN_PASSWORD at startup")
		if hash, err = services.HashPassword(cfg.AdminPassword); err != nil {
			zap.L().Fatal("Failed to hash admin password", zap.Error(err))
		}
	}
	authService := services.NewAuthService(cfg.AdminUsername, hash, tokens)

	productController := controllers.NewProductController(productService)
	adminController := controllers.NewAdminController(authService)

	// ── HTTP ──
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := commonmw.NewRateLimiter(rate.Limit(50), 100, 10*time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		commonmw.RequestLogger(zap.L()),
		commonmw.Timeout(cfg.RequestTimeout),
		commonmw.SecurityHeaders(),
		commonmw.CORSMiddleware(cfg.AllowedOrigins),
		limiter.Middleware(),
		commonmw.MetricsMiddleware(metrics, serviceName),
	)
	routes.RegisterRoutes(r, productController, adminController, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.Handler(r, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Catalog service listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down catalog service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zap.L().Warn("Failed to flush traces", zap.Error(err))
	}
	zap.L().Info("Catalog service exited")
}

// bootstrapFatal reports failures that happen before the logger exists.
func bootstrapFatal(msg string, err error) {
	log, _ := logger.New(os.Getenv("ENVIRONMENT"), nil)
	if log == nil {
		log = zap.NewExample()
	}
	log.Fatal(msg, zap.Error(err))
}
