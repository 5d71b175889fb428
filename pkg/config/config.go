package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Fees       FeesConfig
	Statements StatementsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FeesConfig tunes the fee computation engine and the allocation materializer.
type FeesConfig struct {
	CacheEnabled        bool
	FamilySummaryTTL    time.Duration
	MaterializePageSize int
	AsyncWorkers        int
	AsyncRetries        int
	AsyncRetryDelay     time.Duration
}

// StatementsConfig controls fee statement exports.
type StatementsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	pageSize := v.GetInt("FEES_MATERIALIZE_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 200
	}
	cfg.Fees = FeesConfig{
		CacheEnabled:        v.GetBool("FEES_CACHE_ENABLED"),
		FamilySummaryTTL:    parseDuration(v.GetString("FEES_FAMILY_SUMMARY_TTL"), 10*time.Minute),
		MaterializePageSize: pageSize,
		AsyncWorkers:        v.GetInt("FEES_ASYNC_WORKERS"),
		AsyncRetries:        v.GetInt("FEES_ASYNC_RETRIES"),
		AsyncRetryDelay:     parseDuration(v.GetString("FEES_ASYNC_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Statements = StatementsConfig{
		StorageDir:      v.GetString("STATEMENTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("STATEMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STATEMENTS_SIGNED_URL_TTL"), 30*time.Minute),
		Retention:       parseDuration(v.GetString("STATEMENTS_RETENTION"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "institute_fees")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FEES_CACHE_ENABLED", false)
	v.SetDefault("FEES_FAMILY_SUMMARY_TTL", "10m")
	v.SetDefault("FEES_MATERIALIZE_PAGE_SIZE", 200)
	v.SetDefault("FEES_ASYNC_WORKERS", 1)
	v.SetDefault("FEES_ASYNC_RETRIES", 3)
	v.SetDefault("FEES_ASYNC_RETRY_DELAY", "5s")

	v.SetDefault("STATEMENTS_STORAGE_DIR", "./statements")
	v.SetDefault("STATEMENTS_SIGNED_URL_SECRET", "dev_statements_secret")
	v.SetDefault("STATEMENTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("STATEMENTS_RETENTION", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
