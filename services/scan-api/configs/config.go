package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for scan-api.
type Config struct {
	Port             string        `mapstructure:"PORT" validate:"required,numeric"`
	BackendURL       string        `mapstructure:"BACKEND_URL" validate:"required,url"`
	BackendTimeout   time.Duration `mapstructure:"BACKEND_TIMEOUT" validate:"min=0"` // 0 disables the request deadline
	BackendHeaderTTL time.Duration `mapstructure:"BACKEND_RESPONSE_HEADER_TIMEOUT" validate:"min=0"`
	BackendDialTTL   time.Duration `mapstructure:"BACKEND_DIAL_TIMEOUT" validate:"min=0"`
	BackendMaxConns  int           `mapstructure:"BACKEND_MAX_CONNS_PER_HOST" validate:"min=1"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES" validate:"min=1"`
	RateLimitPerSec  int           `mapstructure:"RATE_LIMIT_PER_SEC" validate:"min=0"` // 0 disables rate limiting
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST" validate:"min=1"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"` // optional: verdict cache and global rate limit
	VerdictCacheTTL  time.Duration `mapstructure:"VERDICT_CACHE_TTL" validate:"required"`
	PrimaryDbAddr    string        `mapstructure:"PRIMARY_DB_ADDR"` // optional: scan history
	ReadDbAddr       string        `mapstructure:"READ_DB_ADDR"`
	MaxDbCons        int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons        int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	AesKey           string        `mapstructure:"AES_KEY" validate:"required_with=PrimaryDbAddr"`
	HistoryPageLimit int           `mapstructure:"HISTORY_PAGE_LIMIT" validate:"min=1,max=200"`
}

// HistoryEnabled reports whether scans are recorded in Postgres.
func (c *Config) HistoryEnabled() bool {
	return !utils.IsEmpty(c.PrimaryDbAddr)
}

// CacheEnabled reports whether Redis is configured.
func (c *Config) CacheEnabled() bool {
	return !utils.IsEmpty(c.RedisAddr)
}

// HTTPClientOptions turns the backend settings into options for utils.NewHTTPClient.
func (c *Config) HTTPClientOptions() []utils.ClientOption {
	return []utils.ClientOption{
		utils.WithClientTimeout(c.BackendTimeout),
		utils.WithResponseHeaderTimeout(c.BackendHeaderTTL),
		utils.WithDialerTimeout(c.BackendDialTTL),
		utils.WithMaxConnsPerHost(c.BackendMaxConns),
	}
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BACKEND_URL", "http://127.0.0.1:8000")
	viper.SetDefault("BACKEND_TIMEOUT", "0s")
	viper.SetDefault("BACKEND_RESPONSE_HEADER_TIMEOUT", "0s")
	viper.SetDefault("BACKEND_DIAL_TIMEOUT", "2s")
	viper.SetDefault("BACKEND_MAX_CONNS_PER_HOST", "32")
	viper.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	viper.SetDefault("RATE_LIMIT_PER_SEC", "20")
	viper.SetDefault("RATE_LIMIT_BURST", "40")
	viper.SetDefault("VERDICT_CACHE_TTL", "10m")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("HISTORY_PAGE_LIMIT", "50")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running_in_test_mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running_in_development_mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/scan-api/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}

	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
