package configs

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds configuration for scan-cli. Flags override these values.
type Config struct {
	BackendURL     string        `mapstructure:"BACKEND_URL" validate:"required,url"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT" validate:"min=0"`
	DialTimeout    time.Duration `mapstructure:"BACKEND_DIAL_TIMEOUT" validate:"min=0"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app")
	viper.AutomaticEnv()

	viper.SetDefault("BACKEND_URL", "http://127.0.0.1:8000")
	viper.SetDefault("BACKEND_TIMEOUT", "0s")
	viper.SetDefault("BACKEND_DIAL_TIMEOUT", "2s")

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate(logger)
}

// HTTPClientOptions turns the backend settings into options for utils.NewHTTPClient.
// A single scan needs one connection.
func (c *Config) HTTPClientOptions() []utils.ClientOption {
	return []utils.ClientOption{
		utils.WithClientTimeout(c.BackendTimeout),
		utils.WithDialerTimeout(c.DialTimeout),
		utils.WithMaxConnsPerHost(1),
	}
}

// Validate checks the config after flag overrides were applied.
func (c *Config) Validate(logger *zap.Logger) error {
	if err := validator.New().Struct(c); err != nil {
		return utils.FormatConfigErrors(logger, err, c)
	}
	return nil
}
