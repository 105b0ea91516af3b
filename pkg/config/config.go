package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	CORS       CORSConfig
	Catalog    CatalogConfig
	MediaStore MediaStoreConfig
	Session    SessionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}
	if err := cfg.MediaStore.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOOLDEPOT_APP_ENV" required:"true"`
	Port         string `envconfig:"TOOLDEPOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOOLDEPOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOOLDEPOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TOOLDEPOT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// CatalogConfig points at the product service that owns persistence.
type CatalogConfig struct {
	BaseURL  string        `envconfig:"TOOLDEPOT_CATALOG_BASE_URL" required:"true"`
	APIToken string        `envconfig:"TOOLDEPOT_CATALOG_API_TOKEN"`
	Timeout  time.Duration `envconfig:"TOOLDEPOT_CATALOG_TIMEOUT" default:"10s"`
}

func (c CatalogConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%s is required", EnvCatalogBaseURL)
	}
	return nil
}

// MediaStoreConfig points at the file-upload service.
type MediaStoreConfig struct {
	BaseURL           string        `envconfig:"TOOLDEPOT_MEDIASTORE_BASE_URL" required:"true"`
	APIToken          string        `envconfig:"TOOLDEPOT_MEDIASTORE_API_TOKEN"`
	Timeout           time.Duration `envconfig:"TOOLDEPOT_MEDIASTORE_TIMEOUT" default:"30s"`
	UploadConcurrency int           `envconfig:"TOOLDEPOT_MEDIASTORE_UPLOAD_CONCURRENCY" default:"4"`
	MaxUploadMB       int           `envconfig:"TOOLDEPOT_MAX_UPLOAD_MB" default:"20"`
}

func (m MediaStoreConfig) validate() error {
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("%s is required", EnvMediaStoreBaseURL)
	}
	if m.UploadConcurrency <= 0 {
		return fmt.Errorf("%s must be positive", EnvUploadConcurrency)
	}
	return nil
}

// MaxUploadBytes converts the configured megabyte cap to bytes.
func (m MediaStoreConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type SessionConfig struct {
	TTL time.Duration `envconfig:"TOOLDEPOT_SESSION_TTL" default:"2h"`
}
