package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analysis"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analyzer"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/cache"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/database"
	middleware "github.com/nimeshabuddhika/qr-fraud-scanner/pkg/middlewares"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/repositories"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/configs"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/handlers"
	"github.com/nimeshabuddhika/qr-fraud-scanner/services/scan-api/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKey = "qrscan:global:scan_rate"

// RouterConfig carries what the HTTP layer needs.
type RouterConfig struct {
	Logger         *zap.Logger
	ScanService    services.ScanService
	Limiter        *pkg.DistributedLimiter
	MaxUploadBytes int64
}

// NewRouter builds the Gin engine with UI, API and base routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())
	if cfg.Limiter != nil {
		api.Use(middleware.RateLimit(cfg.Logger, cfg.Limiter))
	}

	handlers.NewScanHandler(cfg.Logger, cfg.ScanService, cfg.MaxUploadBytes).RegisterRoutes(api)
	handlers.NewUIHandler().RegisterRoutes(r)
	handlers.NewBaseHandler(cfg.Logger).RegisterRoutes(r)
	return r
}

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var backend analysis.Backend = analysis.NewClient(analysis.ClientConfig{
		Logger:     logger,
		BaseURL:    cfg.BackendURL,
		HTTPClient: utils.NewHTTPClient(cfg.HTTPClientOptions()...),
	})

	// Optional redis: verdict cache and global rate limit
	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		client, redisCloser, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, redisCloser)
		redisClient = client
		backend = cache.NewCachingBackend(logger, backend, cache.NewRedisResultStore(client, cache.ResultStoreConfig{TTL: cfg.VerdictCacheTTL}))
		logger.Info("verdict cache enabled", zap.Duration("ttl", cfg.VerdictCacheTTL))
	}

	// Optional postgres: scan history
	var scanRepo repositories.ScanRepository
	var aesKey []byte
	if cfg.HistoryEnabled() {
		aesKey, err = utils.DecodeString(cfg.AesKey)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		db, disconnect, err := database.New(ctx, logger, database.Config{
			PrimaryDSN: cfg.PrimaryDbAddr,
			ReadDSNs:   []string{cfg.ReadDbAddr},
			MaxConns:   cfg.MaxDbCons,
			MinConns:   cfg.MinDbCons,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, disconnect)

		// Run migrations on primary
		if _, err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
			cleanup()
			return nil, nil, err
		}
		scanRepo = repositories.NewScanRepository(db)
		logger.Info("scan history enabled")
	}

	uploadAnalyzer := analyzer.NewUploadAnalyzer(analyzer.UploadAnalyzerConfig{
		Logger:  logger,
		Backend: backend,
	})
	scanService := services.NewScanService(services.ScanServiceConfig{
		Logger:        logger,
		Analyzer:      uploadAnalyzer,
		ScanRepo:      scanRepo,
		EncryptionKey: aesKey,
		PageLimit:     cfg.HistoryPageLimit,
	})

	limiter := pkg.NewDistributedLimiter(redisClient, rateLimitKey, cfg.RateLimitPerSec, cfg.RateLimitBurst, time.Second, logger)

	r := NewRouter(RouterConfig{
		Logger:         logger,
		ScanService:    scanService,
		Limiter:        limiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	return srv, cleanup, nil
}
