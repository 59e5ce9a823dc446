package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	PublicDatabase PublicDatabaseConfig
	Redis          RedisConfig
	Typesense      TypesenseConfig
	Geocoding      GeocodingConfig
	OpenAI         OpenAIConfig
	Email          EmailConfig
	Admin          AdminConfig
	Cron           CronConfig
	Storage        StorageConfig
	OTEL           OTELConfig
	Log            LogConfig
	Site           SiteConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int      `envconfig:"SERVER_PORT" default:"8080"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// Peers (IPs or CIDRs) whose X-Forwarded-For header is believed.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds the privileged (read/write) database connection.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Database        string        `envconfig:"DB_NAME" default:"afferentology"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// PublicDatabaseConfig holds the read-mostly role used by public routes.
// Empty fields fall back to the privileged connection.
type PublicDatabaseConfig struct {
	User     string `envconfig:"PUBLIC_DB_USER"`
	Password string `envconfig:"PUBLIC_DB_PASSWORD"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool   `envconfig:"TYPESENSE_ENABLED" default:"true"`
	URL     string `envconfig:"TYPESENSE_URL" default:"http://localhost:8108"`
	APIKey  string `envconfig:"TYPESENSE_API_KEY" default:"xyz"`
}

// GeocodingConfig holds geocoding provider configuration
type GeocodingConfig struct {
	Provider       string        `envconfig:"GEOCODING_PROVIDER" default:"nominatim"`
	BaseURL        string        `envconfig:"GEOCODING_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent      string        `envconfig:"GEOCODING_USER_AGENT" default:"Afferentology Directory (afferentology.org)"`
	RetryDelay     time.Duration `envconfig:"GEOCODING_RETRY_DELAY" default:"500ms"`
	RequestsPerSec float64       `envconfig:"GEOCODING_RPS" default:"1"`
	CacheTTL       time.Duration `envconfig:"GEOCODING_CACHE_TTL" default:"720h"`
	GoogleAPIKey   string        `envconfig:"GOOGLE_MAPS_API_KEY"`
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
}

// EmailConfig holds outbound SMTP configuration
type EmailConfig struct {
	Enabled       bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	SMTPHost      string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser      string `envconfig:"SMTP_USER"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	From          string `envconfig:"EMAIL_FROM" default:"Afferentology Directory <noreply@afferentology.org>"`
	IntakeAddress string `envconfig:"EMAIL_INTAKE_ADDRESS" default:"info@afferentology.org"`
}

// AdminConfig holds admin credential and session settings
type AdminConfig struct {
	Password     string        `envconfig:"ADMIN_PASSWORD"`
	PasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	JWTSecret    string        `envconfig:"ADMIN_JWT_SECRET"`
	TokenTTL     time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"12h"`
	VerifyRPS    float64       `envconfig:"ADMIN_VERIFY_RPS" default:"0.2"`
	VerifyBurst  int           `envconfig:"ADMIN_VERIFY_BURST" default:"5"`
}

// CronConfig holds scheduled publication settings
type CronConfig struct {
	Secret        string        `envconfig:"CRON_SECRET"`
	SweepInterval time.Duration `envconfig:"PUBLISH_SWEEP_INTERVAL" default:"0"`
}

// StorageConfig holds article image storage settings
type StorageConfig struct {
	UploadDir     string `envconfig:"UPLOAD_DIR" default:"./uploads/article-images"`
	PublicBaseURL string `envconfig:"UPLOAD_PUBLIC_BASE_URL" default:"/uploads/article-images"`
	MaxBytes      int64  `envconfig:"UPLOAD_MAX_BYTES" default:"5242880"`
	MaxWidth      int    `envconfig:"UPLOAD_MAX_WIDTH" default:"1600"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"afferentology-api"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"1.0.0"`
	Endpoint       string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Enabled        bool   `envconfig:"OTEL_ENABLED" default:"false"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// SiteConfig holds public site settings used in generated links
type SiteConfig struct {
	URL string `envconfig:"SITE_URL" default:"https://www.afferentology.org"`
}

// Load loads configuration from the environment, reading an optional .env file first.
func Load() (*Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	} else {
		// Missing .env is the normal case in deployed environments.
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.Site.URL = strings.TrimRight(cfg.Site.URL, "/")
	return &cfg, nil
}

// DatabaseDSN returns the privileged PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return c.dsn(c.Database.User, c.Database.Password)
}

// PublicDatabaseDSN returns the connection string for the public role.
func (c *Config) PublicDatabaseDSN() string {
	if c.PublicDatabase.User == "" {
		return c.DatabaseDSN()
	}
	return c.dsn(c.PublicDatabase.User, c.PublicDatabase.Password)
}

func (c *Config) dsn(user, password string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		user,
		password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the HTTP listen address
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
