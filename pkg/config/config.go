package config

import (
	"errors"
	"io/fs"
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
	Log        LogConfig
	Assignment AssignmentConfig
	Roster     RosterConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// AssignmentConfig governs the project assignment run.
type AssignmentConfig struct {
	Seed            int64
	ConfirmedPolicy string
	LockTTL         time.Duration
	CacheTTL        time.Duration
	Scheduled       bool
	Interval        time.Duration
}

// RosterConfig configures participation roster exports.
type RosterConfig struct {
	StorageDir string
	Format     string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Assignment = AssignmentConfig{
		Seed:            v.GetInt64("ASSIGNMENT_SEED"),
		ConfirmedPolicy: strings.ToLower(strings.TrimSpace(v.GetString("ASSIGNMENT_CONFIRMED_POLICY"))),
		LockTTL:         parseDuration(v.GetString("ASSIGNMENT_LOCK_TTL"), 10*time.Minute),
		CacheTTL:        parseDuration(v.GetString("ASSIGNMENT_CACHE_TTL"), 7*24*time.Hour),
		Scheduled:       v.GetBool("ENABLE_SCHEDULED_ASSIGNMENT"),
		Interval:        parseDuration(v.GetString("ASSIGNMENT_INTERVAL"), time.Hour),
	}

	cfg.Roster = RosterConfig{
		StorageDir: v.GetString("ROSTER_STORAGE_DIR"),
		Format:     strings.ToLower(v.GetString("ROSTER_FORMAT")),
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
	v.SetDefault("DB_NAME", "practicum")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ASSIGNMENT_SEED", 0)
	v.SetDefault("ASSIGNMENT_CONFIRMED_POLICY", "exempt")
	v.SetDefault("ASSIGNMENT_LOCK_TTL", "10m")
	v.SetDefault("ASSIGNMENT_CACHE_TTL", "168h")
	v.SetDefault("ENABLE_SCHEDULED_ASSIGNMENT", false)
	v.SetDefault("ASSIGNMENT_INTERVAL", "1h")

	v.SetDefault("ROSTER_STORAGE_DIR", "./rosters")
	v.SetDefault("ROSTER_FORMAT", "csv")
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
