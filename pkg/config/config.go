package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`
	LogFile   string `mapstructure:"LOG_FILE"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret      string  `mapstructure:"JWT_SECRET"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	HTTPClientTimeout time.Duration `mapstructure:"HTTP_CLIENT_TIMEOUT" validate:"required"`

	StorageURL         string `mapstructure:"STORAGE_URL" validate:"omitempty,url"`
	VMManagementURL    string `mapstructure:"VM_MANAGEMENT_URL" validate:"required,url"`
	RepositoryProvider string `mapstructure:"REPOSITORY_PROVIDER" validate:"required,oneof=storage gitlab"`
	RepositoryGroup    string `mapstructure:"REPOSITORY_GROUP" validate:"required"`
	GitLabURL          string `mapstructure:"GITLAB_URL" validate:"omitempty,url"`
	GitLabToken        string `mapstructure:"GITLAB_TOKEN"`

	Keycloak KeycloakConfig `mapstructure:",squash"`
	Deletion DeletionConfig `mapstructure:",squash"`
}

// KeycloakConfig configures the identity provider admin session and the per-project realm template.
type KeycloakConfig struct {
	ServerURL           string   `mapstructure:"KEYCLOAK_SERVER_URL" validate:"required,url"`
	AdminUsername       string   `mapstructure:"KEYCLOAK_ADMIN_USERNAME" validate:"required"`
	AdminPassword       string   `mapstructure:"KEYCLOAK_ADMIN_PASSWORD" validate:"required"`
	MasterRealm         string   `mapstructure:"KEYCLOAK_MASTER_REALM" validate:"required"`
	ClientID            string   `mapstructure:"KEYCLOAK_CLIENT_ID" validate:"required"`
	RedirectURIs        []string `mapstructure:"KEYCLOAK_CLIENT_REDIRECT_URIS"`
	DefaultUserPassword string   `mapstructure:"KEYCLOAK_DEFAULT_USER_PASSWORD"`
	VerifySSL           bool     `mapstructure:"KEYCLOAK_VERIFY_SSL"`
}

// DeletionConfig controls how detached project deletions run.
type DeletionConfig struct {
	Executor     string        `mapstructure:"DELETION_EXECUTOR" validate:"required,oneof=inprocess queue"`
	PollInterval time.Duration `mapstructure:"DELETION_POLL_INTERVAL" validate:"required"`
	Timeout      time.Duration `mapstructure:"DELETION_TIMEOUT" validate:"required,gtfield=PollInterval"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"HTTP_CLIENT_TIMEOUT",
	"STORAGE_URL",
	"VM_MANAGEMENT_URL",
	"REPOSITORY_PROVIDER",
	"REPOSITORY_GROUP",
	"GITLAB_URL",
	"GITLAB_TOKEN",
	"KEYCLOAK_SERVER_URL",
	"KEYCLOAK_ADMIN_USERNAME",
	"KEYCLOAK_ADMIN_PASSWORD",
	"KEYCLOAK_MASTER_REALM",
	"KEYCLOAK_CLIENT_ID",
	"KEYCLOAK_CLIENT_REDIRECT_URIS",
	"KEYCLOAK_DEFAULT_USER_PASSWORD",
	"KEYCLOAK_VERIFY_SSL",
	"DELETION_EXECUTOR",
	"DELETION_POLL_INTERVAL",
	"DELETION_TIMEOUT",
}

// durations are parsed by hand since env values arrive as strings.
var durations = map[string]func(*Config) *time.Duration{
	"SHUTDOWN_TIMEOUT":       func(c *Config) *time.Duration { return &c.ShutdownTimeout },
	"HTTP_CLIENT_TIMEOUT":    func(c *Config) *time.Duration { return &c.HTTPClientTimeout },
	"DELETION_POLL_INTERVAL": func(c *Config) *time.Duration { return &c.Deletion.PollInterval },
	"DELETION_TIMEOUT":       func(c *Config) *time.Duration { return &c.Deletion.Timeout },
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "30s")
	v.SetDefault("REPOSITORY_PROVIDER", "storage")
	v.SetDefault("REPOSITORY_GROUP", "desp-aas-projects")
	v.SetDefault("KEYCLOAK_MASTER_REALM", "master")
	v.SetDefault("KEYCLOAK_CLIENT_ID", "sandbox-client")
	v.SetDefault("KEYCLOAK_CLIENT_REDIRECT_URIS", "http://localhost:8080/*")
	v.SetDefault("KEYCLOAK_VERIFY_SSL", true)
	v.SetDefault("DELETION_EXECUTOR", "inprocess")
	v.SetDefault("DELETION_POLL_INTERVAL", "5s")
	v.SetDefault("DELETION_TIMEOUT", "600s")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	for key, field := range durations {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*field(&c) = d
		}
	}
	c.Keycloak.RedirectURIs = splitList(v.GetString("KEYCLOAK_CLIENT_REDIRECT_URIS"))

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.checkProvider(); err != nil {
		return nil, err
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

func (c *Config) checkProvider() error {
	switch c.RepositoryProvider {
	case "storage":
		if c.StorageURL == "" {
			return fmt.Errorf("invalid configuration: STORAGE_URL is required for the storage repository provider")
		}
	case "gitlab":
		if c.GitLabURL == "" || c.GitLabToken == "" {
			return fmt.Errorf("invalid configuration: GITLAB_URL and GITLAB_TOKEN are required for the gitlab repository provider")
		}
	}
	if c.Deletion.Executor == "queue" && c.RedisAddr == "" {
		return fmt.Errorf("invalid configuration: REDIS_ADDR is required when DELETION_EXECUTOR=queue")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
