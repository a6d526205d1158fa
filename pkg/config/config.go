package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "pffield"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv        = "PFFIELD_APP_ENV"
	EnvPort          = "PFFIELD_APP_PORT"
	EnvRemoteBaseURL = "PFFIELD_REMOTE_BASE_URL"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Remote  RemoteConfig
	Sync    SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Remote.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PFFIELD_APP_ENV" required:"true"`
	Port         string `envconfig:"PFFIELD_APP_PORT" default:"7077"`
	LogLevel     string `envconfig:"PFFIELD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PFFIELD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Path        string        `envconfig:"PFFIELD_STORAGE_PATH" default:"pffield.db"`
	InMemory    bool          `envconfig:"PFFIELD_STORAGE_IN_MEMORY" default:"false"`
	BusyTimeout time.Duration `envconfig:"PFFIELD_STORAGE_BUSY_TIMEOUT" default:"5s"`
	QueueKey    string        `envconfig:"PFFIELD_STORAGE_QUEUE_KEY" default:"offline_queue"`
}

type RemoteConfig struct {
	BaseURL     string        `envconfig:"PFFIELD_REMOTE_BASE_URL" required:"true"`
	BearerToken string        `envconfig:"PFFIELD_REMOTE_BEARER_TOKEN"`
	Timeout     time.Duration `envconfig:"PFFIELD_REMOTE_TIMEOUT" default:"30s"`
}

type SyncConfig struct {
	Debounce time.Duration `envconfig:"PFFIELD_SYNC_DEBOUNCE" default:"1500ms"`
}

func (r *RemoteConfig) validate() error {
	base := strings.TrimSpace(r.BaseURL)
	if base == "" {
		return fmt.Errorf("%s is required", EnvRemoteBaseURL)
	}
	r.BaseURL = strings.TrimRight(base, "/")
	return nil
}
