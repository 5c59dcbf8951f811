package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Optional .env for local development.
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Kakao    KakaoConfig
	Invite   InviteConfig
	Cache    CacheConfig
	Push     PushConfig
	Email    EmailConfig
	Backup   BackupConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
	BaseURL         string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	ClientDir       string        `envconfig:"CLIENT_DIR" default:"./web/dist"`
}

type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// AdminUserIDs may run and list server backups. Empty disables the admin API.
	AdminUserIDs []int64 `envconfig:"ADMIN_USER_IDS"`
}

type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"foodian.db"`
}

type SessionConfig struct {
	TTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	Secure bool          `envconfig:"SESSION_SECURE" default:"false"`
}

// KakaoConfig holds the OAuth client used for "login with Kakao".
type KakaoConfig struct {
	ClientID     string `envconfig:"KAKAO_CLIENT_ID" default:""`
	ClientSecret string `envconfig:"KAKAO_CLIENT_SECRET" default:""`
	RedirectURL  string `envconfig:"KAKAO_REDIRECT_URL" default:"http://localhost:5173/kakao-auth"`
	AuthURL      string `envconfig:"KAKAO_AUTH_URL" default:"https://kauth.kakao.com/oauth/authorize"`
	TokenURL     string `envconfig:"KAKAO_TOKEN_URL" default:"https://kauth.kakao.com/oauth/token"`
	ProfileURL   string `envconfig:"KAKAO_PROFILE_URL" default:"https://kapi.kakao.com/v2/user/me"`
}

type InviteConfig struct {
	Secret   string        `envconfig:"INVITE_SECRET" default:"change-me"`
	TTL      time.Duration `envconfig:"INVITE_TTL" default:"168h"`
	LinkBase string        `envconfig:"INVITE_LINK_BASE" default:"https://foodian.app"`
}

type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY" default:""`
	VAPIDPrivateKey string        `envconfig:"VAPID_PRIVATE_KEY" default:""`
	Subscriber      string        `envconfig:"VAPID_SUBSCRIBER" default:"noreply@foodian.app"`
	Interval        time.Duration `envconfig:"PUSH_INTERVAL" default:"60s"`
}

type EmailConfig struct {
	PostmarkToken string `envconfig:"POSTMARK_SERVER_TOKEN" default:""`
	From          string `envconfig:"EMAIL_FROM" default:"noreply@foodian.app"`
}

type BackupConfig struct {
	Endpoint      string `envconfig:"BACKUP_S3_ENDPOINT" default:""`
	Bucket        string `envconfig:"BACKUP_S3_BUCKET" default:""`
	Region        string `envconfig:"BACKUP_S3_REGION" default:"auto"`
	AccessKey     string `envconfig:"BACKUP_S3_ACCESS_KEY" default:""`
	SecretKey     string `envconfig:"BACKUP_S3_SECRET_KEY" default:""`
	Passphrase    string `envconfig:"BACKUP_PASSPHRASE" default:""`
	Hour          int    `envconfig:"BACKUP_HOUR" default:"3"`
	RetentionDays int    `envconfig:"BACKUP_RETENTION_DAYS" default:"30"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsAdmin reports whether userID is an operator listed in ADMIN_USER_IDS.
func (a *AppConfig) IsAdmin(userID int64) bool {
	return userID != 0 && slices.Contains(a.AdminUserIDs, userID)
}

func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// KakaoEnabled reports whether the Kakao OAuth client is configured.
func (k *KakaoConfig) KakaoEnabled() bool {
	return k.ClientID != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
