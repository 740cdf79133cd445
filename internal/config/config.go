// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ErrMissingAPIToken is returned when UPSTREAM_API_TOKEN is not set.
var ErrMissingAPIToken = errors.New("UPSTREAM_API_TOKEN is required")

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Refresh  RefreshConfig
	Realtime  RealtimeConfig
	Analytics AnalyticsConfig
	Backup    BackupConfig
	Worker    WorkerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RabbitMQ  RabbitMQConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type UpstreamConfig struct {
	APIToken        string        `envconfig:"UPSTREAM_API_TOKEN"`
	BaseURL         string        `envconfig:"UPSTREAM_BASE_URL" default:"https://upnshare.com/api/v1"`
	RequestTimeout  time.Duration `envconfig:"UPSTREAM_REQUEST_TIMEOUT" default:"8s"`
	RealtimeTimeout time.Duration `envconfig:"UPSTREAM_REALTIME_TIMEOUT" default:"5s"`
	PageSize        int           `envconfig:"UPSTREAM_PAGE_SIZE" default:"100"`
	PageConcurrency int           `envconfig:"UPSTREAM_PAGE_CONCURRENCY" default:"4"`
	PageStagger     time.Duration `envconfig:"UPSTREAM_PAGE_STAGGER" default:"50ms"`
	MaxPages        int           `envconfig:"UPSTREAM_MAX_PAGES" default:"500"`
	DefaultAssetURL string        `envconfig:"UPSTREAM_DEFAULT_ASSET_URL" default:"https://assets.upns.net"`
}

type RefreshConfig struct {
	Interval          time.Duration `envconfig:"REFRESH_INTERVAL" default:"60s"`
	FolderConcurrency int           `envconfig:"REFRESH_FOLDER_CONCURRENCY" default:"3"`
	CycleTimeout      time.Duration `envconfig:"REFRESH_CYCLE_TIMEOUT" default:"2m"`
}

type RealtimeConfig struct {
	FreshTTL time.Duration `envconfig:"REALTIME_FRESH_TTL" default:"30s"`
	StaleTTL time.Duration `envconfig:"REALTIME_STALE_TTL" default:"10m"`
}

type AnalyticsConfig struct {
	SessionTTL     time.Duration `envconfig:"ANALYTICS_SESSION_TTL" default:"6h"`
	MaxProgressGap time.Duration `envconfig:"ANALYTICS_MAX_PROGRESS_GAP" default:"5s"`
	RecentSessions int           `envconfig:"ANALYTICS_RECENT_SESSIONS" default:"50"`
}

type BackupConfig struct {
	Interval  time.Duration `envconfig:"BACKUP_INTERVAL" default:"24h"`
	Retention time.Duration `envconfig:"BACKUP_RETENTION" default:"168h"`
	Prefix    string        `envconfig:"BACKUP_PREFIX" default:"backups/"`
	LogLimit  int           `envconfig:"BACKUP_LOG_LIMIT" default:"10000"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"true"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"videohub"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"videohub"`
	DBName   string `envconfig:"POSTGRES_DB" default:"videohub"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"videohub-backups"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Enabled  bool   `envconfig:"RABBITMQ_ENABLED" default:"true"`
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"videohub"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"videohub"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type AdminConfig struct {
	// JWTSecret enables admin route authentication when set.
	JWTSecret string `envconfig:"ADMIN_JWT_SECRET" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations no component can start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.APIToken) == "" {
		return ErrMissingAPIToken
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.Refresh.Interval)
	}
	if c.Refresh.FolderConcurrency <= 0 {
		return fmt.Errorf("REFRESH_FOLDER_CONCURRENCY must be positive, got %d", c.Refresh.FolderConcurrency)
	}
	if c.Upstream.PageConcurrency <= 0 {
		return fmt.Errorf("UPSTREAM_PAGE_CONCURRENCY must be positive, got %d", c.Upstream.PageConcurrency)
	}
	if c.Backup.Interval <= 0 {
		return fmt.Errorf("BACKUP_INTERVAL must be positive, got %s", c.Backup.Interval)
	}
	if c.Analytics.SessionTTL <= 0 {
		return fmt.Errorf("ANALYTICS_SESSION_TTL must be positive, got %s", c.Analytics.SessionTTL)
	}
	if c.Realtime.StaleTTL < c.Realtime.FreshTTL {
		return fmt.Errorf("REALTIME_STALE_TTL (%s) must not be shorter than REALTIME_FRESH_TTL (%s)", c.Realtime.StaleTTL, c.Realtime.FreshTTL)
	}
	return nil
}
