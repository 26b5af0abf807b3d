package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from an optional
// yaml file and overridable through the environment variables the
// deployment (docker-compose) sets: DB_HOST, DB_USER, DB_PASSWORD,
// DB_NAME, DB_PORT and SESSION_SECRET.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string `yaml:"dsn"`    // sqlite file path; ignored for postgres
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AIConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxSimilar          int     `yaml:"max_similar"`
}

// Default returns the configuration used when no file is present:
// a local sqlite database, matching the original deployment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			SessionSecret: "dev-key-for-testing-change-in-production",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "test_platform.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		AI: AIConfig{
			SimilarityThreshold: 0.3,
			MaxSimilar:          5,
		},
	}
}

// Load reads the yaml config at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.AI.SimilarityThreshold <= 0 {
		cfg.AI.SimilarityThreshold = 0.3
	}
	if cfg.AI.MaxSimilar <= 0 {
		cfg.AI.MaxSimilar = 5
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Server.SessionSecret = v
	}
}
