package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gigmarket/internal/domain/listing"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv            = "dev"
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "gigmarket.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTTTL            = "24h"
	defaultS3Endpoint        = "s3.amazonaws.com"
	defaultS3Region          = "ap-south-1"
	defaultS3Bucket          = "dzns-ecommerce"
	defaultS3PublicDomain    = "amazonaws.com"
	defaultUploadCacheDir    = "uploads"
	defaultUploadPolicy      = listing.PolicyDrop
	defaultUploadTimeout     = "0s"
	defaultMaxUploadMemory   = "33554432" // 32 MB
	defaultCacheTTL          = "1h"
	defaultDBMaxOpenConns    = "25"
	defaultDBMaxIdleConns    = "5"
	defaultDBConnMaxLifetime = "30m"
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	S3 S3Config

	UploadCacheDir     string
	UploadPolicy       string
	UploadConcurrency  int
	UploadTimeout      time.Duration
	MaxUploadMemory    int64
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	NATSURL string

	LogLevel  string
	LogFormat string
}

// S3Config describes the bucket listing images are stored in.
type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	PublicDomain string
	UseSSL       bool
	EnsureBucket bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	cfg.S3 = S3Config{
		Endpoint:     strings.TrimSpace(getEnv("S3_ENDPOINT", defaultS3Endpoint)),
		Region:       strings.TrimSpace(getEnv("S3_REGION", defaultS3Region)),
		AccessKey:    strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		Bucket:       strings.TrimSpace(getEnv("S3_BUCKET", defaultS3Bucket)),
		PublicDomain: strings.TrimSpace(getEnv("S3_PUBLIC_DOMAIN", defaultS3PublicDomain)),
		UseSSL:       parseBoolEnv("S3_USE_SSL", "true"),
		EnsureBucket: parseBoolEnv("S3_ENSURE_BUCKET", "false"),
	}

	cfg.UploadCacheDir = strings.TrimSpace(getEnv("UPLOAD_CACHE_DIR", defaultUploadCacheDir))
	cfg.UploadPolicy = strings.ToLower(strings.TrimSpace(getEnv("UPLOAD_FAILURE_POLICY", defaultUploadPolicy)))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat)))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.UploadTimeout, err = parseDurationEnv("UPLOAD_TIMEOUT", defaultUploadTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}
	if cfg.DBConnMaxLifetime, err = parseDurationEnv("DB_CONN_MAX_LIFETIME", defaultDBConnMaxLifetime); err != nil {
		return nil, err
	}
	if cfg.UploadConcurrency, err = parseIntEnv("UPLOAD_CONCURRENCY", "0"); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = parseIntEnv("DB_MAX_OPEN_CONNS", defaultDBMaxOpenConns); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = parseIntEnv("DB_MAX_IDLE_CONNS", defaultDBMaxIdleConns); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	maxMem, err := parseIntEnv("MAX_UPLOAD_MEMORY", defaultMaxUploadMemory)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadMemory = int64(maxMem)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET must not be empty")
	}
	if cfg.S3.Endpoint == "" {
		return fmt.Errorf("S3_ENDPOINT must not be empty")
	}
	if cfg.UploadPolicy != listing.PolicyDrop && cfg.UploadPolicy != listing.PolicyReject {
		return fmt.Errorf("UPLOAD_FAILURE_POLICY must be one of: %s, %s", listing.PolicyDrop, listing.PolicyReject)
	}
	if cfg.UploadConcurrency < 0 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be >= 0")
	}
	if cfg.UploadTimeout < 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be >= 0")
	}
	if cfg.MaxUploadMemory <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MEMORY must be > 0")
	}
	if cfg.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be > 0")
	}
	if cfg.DBMaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be >= 0")
	}
	if cfg.RedisAddr != "" && cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0 when REDIS_ADDR is set")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
			return fmt.Errorf("in prod/release S3_ACCESS_KEY and S3_SECRET_ACCESS_KEY must be set")
		}
	}

	return nil
}

// IsProdLike reports whether env names a production deployment.
func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
