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
	"github.com/dailykart/dailykart/pkg/telemetry"
	apperrors "github.com/dailykart/dailykart/services/common/errors"
	"github.com/dailykart/dailykart/services/common/logger"
	commonmw "github.com/dailykart/dailykart/services/common/middleware"
	"github.com/dailykart/dailykart/services/storefront/adminsession"
	"github.com/dailykart/dailykart/services/storefront/backend"
	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/catalog"
	"github.com/dailykart/dailykart/services/storefront/config"
	"github.com/dailykart/dailykart/services/storefront/controllers"
	"github.com/dailykart/dailykart/services/storefront/products"
	"github.com/dailykart/dailykart/services/storefront/routes"
	"github.com/dailykart/dailykart/services/storefront/session"
	"github.com/dailykart/dailykart/services/storefront/views"
	"github.com/dailykart/dailykart/services/storefront/whatsapp"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "storefront"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ── AWS: secrets, CloudWatch Logs + Metrics, S3 ──
	var (
		awsCfg    sdkaws.Config
		awsLoaded bool
		logSink   *awspkg.CloudWatchLogsClient
		sinkErr   error
	)
	if cfg.NeedsAWS() {
		c, err := awspkg.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			bootstrapFatal("AWS config init failed", err)
		}
		awsCfg, awsLoaded = c, true
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

	var metrics *awspkg.MetricsClient
	if awsLoaded {
		metrics = awspkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchEnabled)
	}
	zap.L().Info("Starting storefront",
		zap.String("environment", cfg.Environment),
		zap.Bool("cloudwatch_logs", logSink != nil),
		zap.Bool("cloudwatch_metrics", metrics.IsEnabled()),
	)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv(serviceName, cfg.Environment))
	if err != nil {
		zap.L().Warn("Tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// ── Session storage and catalog cache ──
	var (
		redisClient  *redis.Client
		sessionStore session.Storage = session.NewMemoryStorage()
		catalogCache catalog.Cache   = catalog.NewMemoryCache(cfg.CatalogCacheTTL)
	)
	if cfg.RedisURL != "" {
		redisClient, err = session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		sessionStore = session.NewRedisStorage(redisClient, cfg.SessionTTL)
		catalogCache = catalog.NewRedisCache(redisClient, cfg.CatalogCacheTTL, metrics)
		zap.L().Info("Connected to Redis")
	} else {
		zap.L().Warn("REDIS_URL not set, sessions and catalog cache are kept in memory")
	}

	// ── Image storage ──
	var imageStore blob.Store = blob.InlineStore{}
	imgSources := []string{}
	if cfg.S3.Bucket != "" {
		s3 := awspkg.NewS3Store(awsCfg, cfg.S3)
		imageStore = blob.NewS3Store(s3)
		if cfg.S3.CDNDomain != "" {
			imgSources = append(imgSources, "https://"+cfg.S3.CDNDomain)
		}
		if cfg.S3.Endpoint != "" {
			imgSources = append(imgSources, cfg.S3.Endpoint)
		}
		zap.L().Info("Product images stored in S3", zap.String("bucket", cfg.S3.Bucket))
	}

	// ── Services ──
	client := backend.NewHTTPClient(cfg.CatalogServiceURL, cfg.BackendTimeout)
	catalogSvc := catalog.NewService(client, catalogCache)
	sessions := adminsession.NewManager(client, catalogSvc, cfg.AdminStaleTime)
	mutations := products.NewMutationService(client, imageStore, catalogSvc, metrics)

	storeCtrl := controllers.NewStorefrontController(catalogSvc, whatsapp.NewBuilder(cfg.WhatsAppNumber), metrics)
	adminCtrl := controllers.NewAdminController(sessions, catalogSvc, mutations, metrics)
	apiCtrl := controllers.NewAPIController(storeCtrl, adminCtrl)

	// ── HTTP ──
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	tmpl, err := views.Templates()
	if err != nil {
		zap.L().Fatal("Failed to parse templates", zap.Error(err))
	}

	limiter := commonmw.NewRateLimiter(rate.Limit(20), 40, 10*time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = 8 << 20
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		commonmw.RequestLogger(zap.L()),
		commonmw.Timeout(cfg.RequestTimeout),
		commonmw.SecurityHeaders(imgSources...),
		commonmw.CORSMiddleware(cfg.AllowedOrigins),
		limiter.Middleware(),
		commonmw.MetricsMiddleware(metrics, serviceName),
		session.Middleware(sessionStore, session.CookieOptions{Secure: cfg.SessionCookieSecure}),
		apperrors.ErrorMiddleware(),
	)
	routes.RegisterRoutes(r, sessions, storeCtrl, adminCtrl, apiCtrl)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.Handler(r, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Storefront listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down storefront...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zap.L().Warn("Failed to close Redis", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zap.L().Warn("Failed to flush traces", zap.Error(err))
	}
	zap.L().Info("Storefront exited")
}

// bootstrapFatal reports failures that happen before the logger exists.
func bootstrapFatal(msg string, err error) {
	log, _ := logger.New(os.Getenv("ENVIRONMENT"), nil)
	if log == nil {
		log = zap.NewExample()
	}
	log.Fatal(msg, zap.Error(err))
}
