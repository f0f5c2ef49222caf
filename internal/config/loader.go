package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// PipelineConfig holds the ingestion and scanning knobs.
type PipelineConfig struct {
	Workers            int
	AutoMatchThreshold float64
	ReviewThreshold    float64
	DuplicateThreshold float64
	ScannerConcurrency int
}

// LoggingConfig holds the log sink settings.
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
}

// Load reads config.yaml from configPath, with CATALOGD_-prefixed
// environment variables overriding file values. Missing file is not an
// error; defaults plus env vars apply.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("CATALOGD")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "catalogd")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.auto_match_threshold", 0.90)
	v.SetDefault("pipeline.review_threshold", 0.60)
	v.SetDefault("pipeline.duplicate_threshold", 0.85)
	v.SetDefault("pipeline.scanner_concurrency", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	for _, key := range []string{
		"database.host", "database.port", "database.user",
		"database.password", "database.dbname", "database.sslmode",
		"server.port", "logging.level",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Pipeline: PipelineConfig{
			Workers:            v.GetInt("pipeline.workers"),
			AutoMatchThreshold: v.GetFloat64("pipeline.auto_match_threshold"),
			ReviewThreshold:    v.GetFloat64("pipeline.review_threshold"),
			DuplicateThreshold: v.GetFloat64("pipeline.duplicate_threshold"),
			ScannerConcurrency: v.GetInt("pipeline.scanner_concurrency"),
		},
		Logging: LoggingConfig{
			Level:      v.GetString("logging.level"),
			File:       v.GetString("logging.file"),
			MaxSizeMB:  v.GetInt("logging.max_size_mb"),
			MaxBackups: v.GetInt("logging.max_backups"),
			MaxAgeDays: v.GetInt("logging.max_age_days"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	p := c.Pipeline
	if p.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got %d", p.Workers)
	}
	if p.ReviewThreshold <= 0 || p.AutoMatchThreshold > 1 {
		return fmt.Errorf("pipeline thresholds must fall in (0, 1]")
	}
	if p.ReviewThreshold >= p.AutoMatchThreshold {
		return fmt.Errorf("pipeline.review_threshold %.2f must be below auto_match_threshold %.2f",
			p.ReviewThreshold, p.AutoMatchThreshold)
	}
	return nil
}
