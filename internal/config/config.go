package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the console
type Config struct {
	AppMode   string
	Port      string
	Upstream  UpstreamConfig
	Store     StoreConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	WhatsApp  WhatsAppConfig
	Reconcile ReconcileConfig
	Payment   PaymentConfig
	Service   ServiceAccountConfig
	Cron      CronConfig
}

// UpstreamConfig points at the collections REST API
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StoreConfig holds the local key/value store location
type StoreConfig struct {
	Path       string
	SealSecret string
}

// DatabaseConfig holds the notification audit database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds console session token configuration
type JWTConfig struct {
	Secret         string
	SessionMinutes int
}

// CookieConfig holds session cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// WhatsAppConfig holds the messaging provider configuration
type WhatsAppConfig struct {
	APIURL        string
	Token         string
	Sender        string
	RatePerSecond float64
}

// ReconcileConfig tunes comment reconciliation
type ReconcileConfig struct {
	MaxAttempts int
	NoticeTTL   time.Duration
}

// PaymentConfig tunes payment initiation
type PaymentConfig struct {
	RefreshDelay time.Duration
}

// ServiceAccountConfig is the upstream account background jobs log in with
type ServiceAccountConfig struct {
	Username string
	Password string
}

// Configured reports whether background jobs can authenticate
func (s ServiceAccountConfig) Configured() bool {
	return s.Username != "" && s.Password != ""
}

// CronConfig holds background job schedules
type CronConfig struct {
	ReconcileSpec string
	ReminderSpec  string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		Upstream:  loadUpstreamConfig(),
		Store:     loadStoreConfig(appMode),
		Database:  loadDatabaseConfig(appMode),
		JWT:       loadJWTConfig(appMode),
		Cookie:    loadCookieConfig(appMode),
		WhatsApp:  loadWhatsAppConfig(),
		Reconcile: loadReconcileConfig(),
		Payment: PaymentConfig{
			RefreshDelay: getDuration("PAYMENT_REFRESH_DELAY", 5*time.Second),
		},
		Service: ServiceAccountConfig{
			Username: getEnv("SERVICE_USERNAME", ""),
			Password: getEnv("SERVICE_PASSWORD", ""),
		},
		Cron: CronConfig{
			ReconcileSpec: getEnv("RECONCILE_CRON", "*/15 * * * *"),
			ReminderSpec:  getEnv("REMINDER_CRON", "30 8 * * *"),
		},
	}

	if config.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if appMode == "prod" && config.JWT.Secret == "default_secret" {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

func loadUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		BaseURL: strings.TrimSuffix(getEnv("UPSTREAM_BASE_URL", "http://localhost:5000"), "/"),
		Timeout: getDuration("UPSTREAM_TIMEOUT", 15*time.Second),
	}
}

func loadStoreConfig(mode string) StoreConfig {
	return StoreConfig{
		Path:       getEnv("STORE_PATH", "console.db"),
		SealSecret: getEnv(modePrefix(mode)+"SEAL_SECRET", "default_seal_secret"),
	}
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	enabled, _ := strconv.ParseBool(getEnv("AUDIT_DB_ENABLED", "false"))

	return DatabaseConfig{
		Enabled:  enabled,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "collections_console"),
	}
}

func loadJWTConfig(mode string) JWTConfig {
	minutes, _ := strconv.Atoi(getEnv("SESSION_MINUTES", "720"))
	return JWTConfig{
		Secret:         getEnv(modePrefix(mode)+"JWT_SECRET", "default_secret"),
		SessionMinutes: minutes,
	}
}

func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadWhatsAppConfig() WhatsAppConfig {
	rate, err := strconv.ParseFloat(getEnv("WHATSAPP_RATE_PER_SEC", "1"), 64)
	if err != nil || rate <= 0 {
		rate = 1
	}
	return WhatsAppConfig{
		APIURL:        getEnv("WHATSAPP_API_URL", ""),
		Token:         getEnv("WHATSAPP_TOKEN", ""),
		Sender:        getEnv("WHATSAPP_SENDER", ""),
		RatePerSecond: rate,
	}
}

func loadReconcileConfig() ReconcileConfig {
	maxAttempts, _ := strconv.Atoi(getEnv("RECONCILE_MAX_ATTEMPTS", "0"))
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	return ReconcileConfig{
		MaxAttempts: maxAttempts,
		NoticeTTL:   getDuration("NOTICE_TTL", 4*time.Second),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration ("15s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️ Invalid duration for %s: %q, using %s", key, raw, defaultValue)
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://console.collections.local"
	}
	return origins
}
