package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config - настройки приложения. Базовые значения берутся из YAML-файла
// (опционально), переменные окружения перекрывают файл - так контейнерный
// запуск живет без конфига вообще.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	DB struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Port     string `yaml:"port"`
	} `yaml:"db"`

	Jobs struct {
		// Интервалы в формате time.ParseDuration ("1h", "24h")
		PurgeInterval    string `yaml:"purge_interval"`
		SnapshotInterval string `yaml:"snapshot_interval"`
	} `yaml:"jobs"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.DB.Port = "5432"
	cfg.Jobs.PurgeInterval = "1h"
	cfg.Jobs.SnapshotInterval = "24h"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv перекрывает конфиг переменными окружения (для Docker)
func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Server.Port, "SERVER_PORT")
	setFromEnv(&cfg.DB.Host, "DB_HOST")
	setFromEnv(&cfg.DB.User, "DB_USER")
	setFromEnv(&cfg.DB.Password, "DB_PASSWORD")
	setFromEnv(&cfg.DB.Name, "DB_NAME")
	setFromEnv(&cfg.DB.Port, "DB_PORT")
	setFromEnv(&cfg.Jobs.PurgeInterval, "PURGE_INTERVAL")
	setFromEnv(&cfg.Jobs.SnapshotInterval, "SNAPSHOT_INTERVAL")
}

func setFromEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// PurgeInterval парсит интервал чистки архива
func (c *Config) PurgeInterval() (time.Duration, error) {
	return parseInterval("purge_interval", c.Jobs.PurgeInterval)
}

// SnapshotInterval парсит интервал съема снапшотов
func (c *Config) SnapshotInterval() (time.Duration, error) {
	return parseInterval("snapshot_interval", c.Jobs.SnapshotInterval)
}

func parseInterval(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return d, nil
}
