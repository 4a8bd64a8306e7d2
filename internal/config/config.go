package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Значения-заглушки из шаблона .env: считаются отсутствующей настройкой
const (
	PlaceholderBackendURL = "YOUR_BACKEND_URL_HERE"
	PlaceholderBackendKey = "YOUR_BACKEND_KEY_HERE"
)

// Драйверы доставки событий реального времени
const (
	RealtimeDriverPostgres = "postgres"
	RealtimeDriverRedis    = "redis"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	// Hosted backend: URL подключения и ключ доступа. Пустые значения переводят шлюз в офлайн-режим.
	BackendURL string `env:"BACKEND_URL"`
	BackendKey string `env:"BACKEND_KEY"`

	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Ротация файла логов
	LogMaxSize    int `env:"LOG_MAX_SIZE" envDefault:"50"`
	LogMaxAge     int `env:"LOG_MAX_AGE" envDefault:"28"`
	LogMaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"3"`

	// Локальное хранилище устройства
	LocalStore  string `env:"LOCAL_STORE" envDefault:"sqlite"`
	LocalDBPath string `env:"LOCAL_DB_PATH" envDefault:"data/local.db"`

	RunMigrations bool `env:"RUN_MIGRATIONS" envDefault:"false"`

	// Realtime Config
	RealtimeDriver string `env:"REALTIME_DRIVER" envDefault:"postgres"`

	// Relay Config: пауза перед повторным подключением к ленте backend
	RelayRetryDelay time.Duration `env:"RELAY_RETRY_DELAY" envDefault:"5s"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	// соединения для PUBLISH и PING; подписки открывают свои соединения
	RedisPoolSize int `env:"REDIS_POOL_SIZE" envDefault:"4"`

	// Object storage Config
	StorageEndpoint   string `env:"STORAGE_ENDPOINT"`
	StorageAccessKey  string `env:"STORAGE_ACCESS_KEY"`
	StorageSecretKey  string `env:"STORAGE_SECRET_KEY"`
	StorageBucket     string `env:"STORAGE_BUCKET" envDefault:"alert-images"`
	StorageUseSSL     bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	StoragePublicBase string `env:"STORAGE_PUBLIC_BASE"`

	// API Keys для доступа к шлюзу (пусто - без проверки)
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла.
// Отсутствие настроек backend не является ошибкой.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		BackendURL:        strings.TrimSpace(os.Getenv("BACKEND_URL")),
		BackendKey:        strings.TrimSpace(os.Getenv("BACKEND_KEY")),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 50),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 28),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LocalStore:        getEnv("LOCAL_STORE", "sqlite"),
		LocalDBPath:       getEnv("LOCAL_DB_PATH", "data/local.db"),
		RunMigrations:     getEnvAsBool("RUN_MIGRATIONS", false),
		RealtimeDriver:    getEnv("REALTIME_DRIVER", RealtimeDriverPostgres),
		RelayRetryDelay:   getEnvAsDuration("RELAY_RETRY_DELAY", 5*time.Second),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		RedisPoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 4),
		StorageEndpoint:   os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey:  os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:  os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "alert-images"),
		StorageUseSSL:     getEnvAsBool("STORAGE_USE_SSL", false),
		StoragePublicBase: os.Getenv("STORAGE_PUBLIC_BASE"),
	}

	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	switch cfg.RealtimeDriver {
	case RealtimeDriverPostgres, RealtimeDriverRedis:
	default:
		return nil, fmt.Errorf("unsupported REALTIME_DRIVER %q", cfg.RealtimeDriver)
	}

	return cfg, nil
}

// BackendConfigured сообщает, заданы ли URL и ключ backend (не пустые и не заглушки)
func (c *Config) BackendConfigured() bool {
	return c.BackendURL != "" &&
		c.BackendKey != "" &&
		c.BackendURL != PlaceholderBackendURL &&
		c.BackendKey != PlaceholderBackendKey
}

// StorageConfigured сообщает, задано ли объектное хранилище
func (c *Config) StorageConfigured() bool {
	return c.StorageEndpoint != "" && c.StorageAccessKey != "" && c.StorageSecretKey != ""
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool возвращает значение переменной окружения как bool или значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
