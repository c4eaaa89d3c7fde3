package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Object storage (S3 / MinIO)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// AI engine
	ActiveAIEngine  string
	GeminiAPIKey    string
	GeminiModelName string

	// Worker
	WorkerCount int

	// Presigned URL lifetime
	PresignExpirySeconds int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),

		S3Endpoint:  mustGetEnv("S3_ENDPOINT"),
		S3AccessKey: mustGetEnv("AWS_ACCESS_KEY_ID"),
		S3SecretKey: mustGetEnv("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:    mustGetEnv("S3_BUCKET_NAME"),
		S3Region:    getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3UseSSL:    getEnvAsBoolOrDefault("S3_USE_SSL", true),

		ActiveAIEngine:  getEnvOrDefault("ACTIVE_AI_ENGINE", "gemini"),
		GeminiAPIKey:    getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModelName: getEnvOrDefault("GEMINI_MODEL_NAME", "gemini-2.5-flash-lite"),

		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 5),
		PresignExpirySeconds: getEnvAsIntOrDefault("PRESIGN_EXPIRY_SECONDS", 3600),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
