package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects the durable room store at startup.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	StoreBackend  string
	RedisURL      string
	RedisPassword string
	RoomTTL       time.Duration

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	BoardRows     int
	BoardCols     int
	MaxPlayers    int
	WinningLength int

	InactivityTimeout time.Duration
	CleanupInterval   time.Duration
	RateLimitRPS      float64
}

func LoadConfig() *Config {
	allowedOrigins := []string{
		"http://localhost:5173", // Local development
		"http://localhost:3000",
	}
	if extras := GetEnv("ALLOWED_ORIGINS", ""); extras != "" {
		for _, origin := range strings.Split(extras, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	backend := GetEnv("STORE_BACKEND", StoreMemory)
	if backend != StoreMemory && backend != StoreRedis {
		log.Printf("Unknown STORE_BACKEND %q, using %q", backend, StoreMemory)
		backend = StoreMemory
	}

	return &Config{
		Port:           GetEnv("PORT", "8080"),
		AllowedOrigins: allowedOrigins,

		StoreBackend:  backend,
		RedisURL:      GetEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RoomTTL:       time.Duration(GetEnvAsInt("ROOM_TTL_HOURS", 24)) * time.Hour,

		DatabaseURL:          GetEnv("DATABASE_URL", ""),
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),

		BoardRows:     GetEnvAsInt("BOARD_ROWS", 6),
		BoardCols:     GetEnvAsInt("BOARD_COLS", 7),
		MaxPlayers:    GetEnvAsInt("MAX_PLAYERS", 3),
		WinningLength: GetEnvAsInt("WINNING_LENGTH", 4),

		InactivityTimeout: time.Duration(GetEnvAsInt("ROOM_INACTIVITY_MINUTES", 240)) * time.Minute,
		CleanupInterval:   time.Duration(GetEnvAsInt("CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		RateLimitRPS:      float64(GetEnvAsInt("RATE_LIMIT_RPS", 20)),
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
