package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// BackendConfig describes the pharmacy REST backend the shell talks to.
type BackendConfig struct {
	APIURL  string
	Timeout time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

type StorageConfig struct {
	// Driver is "redis" or "memory".
	Driver string
}

type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
}

type OrdersConfig struct {
	PollInterval  time.Duration
	PendingStatus string
	PageSize      int
}

type LogConfig struct {
	Level string
	File  string
}

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Redis   RedisConfig
	Storage StorageConfig
	Session SessionConfig
	Orders  OrdersConfig
	Log     LogConfig
}

func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded.")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Backend: BackendConfig{
			APIURL:  getEnv("BACKEND_API_URL", "http://localhost:8000/api/"),
			Timeout: getDuration("BACKEND_TIMEOUT", 20*time.Second),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_STORAGE_CHANNEL", "pharmacie:storage"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "redis"),
		},
		Session: SessionConfig{
			SecretKey: getEnv("SESSION_SECRET_KEY", "change-me-in-production"),
			TTL:       getDuration("SESSION_TTL", 24*time.Hour),
		},
		Orders: OrdersConfig{
			PollInterval:  getDuration("PENDING_ORDERS_POLL_INTERVAL", 30*time.Second),
			PendingStatus: getEnv("PENDING_ORDERS_STATUS", "BROUILLON"),
			PageSize:      getInt("PENDING_ORDERS_PAGE_SIZE", 100),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: %s=%q is not a valid duration, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
