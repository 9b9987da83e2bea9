package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/termbase/termbase-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort     string
	JWTSecret      string
	JWTExpiration  time.Duration
	MetadataDbDir  string
	MetadataDbFile string

	// Tenant data lives in a shared PostgreSQL database, one schema per user.
	DatabaseURL string

	// Model inference service (OpenAI-compatible). An empty API key disables
	// the AI routes with a configuration error instead of failing startup.
	AIAPIKey      string
	AIBaseURL     string
	AIModel       string
	AITemperature float64
	AITimeout     time.Duration
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	// Attempt to load .env file if in development environment (skip in production)
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	// Read values from environment variables, providing defaults where appropriate
	port := getEnv("SERVER_PORT", ":8080")                 // Default to :8080
	jwtSecret := os.Getenv("JWT_SECRET")                   // No sensible default for secret!
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24") // Default to 24 hours
	dbDir := getEnv("METADATA_DB_DIR", "data")
	dbFile := getEnv("METADATA_DB_FILE", "metadata.db")
	databaseURL := os.Getenv("DATABASE_URL")

	aiKey := os.Getenv("AI_API_KEY")
	aiBaseURL := getEnv("AI_BASE_URL", "https://api.openai.com")
	aiModel := getEnv("AI_MODEL", "gpt-4o-mini")
	aiTempStr := getEnv("AI_TEMPERATURE", "0.1")
	aiTimeoutStr := getEnv("AI_TIMEOUT_SECONDS", "30")

	// --- Validation and Parsing ---
	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}
	if jwtSecret == "!!replace_this_with_a_real_secret_key!!" {
		customLog.Warnln("WARNING: JWT_SECRET is set to the default placeholder!")
	}
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable must be set")
	}
	if aiKey == "" {
		customLog.Warnln("AI_API_KEY is not set; AI-assisted queries will be unavailable.")
	}

	// Parse JWT Expiration (hours)
	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24 // Default to 24 hours
	}
	jwtExpiration := time.Hour * time.Duration(jwtExpHours)

	aiTemp, err := strconv.ParseFloat(aiTempStr, 64)
	if err != nil || aiTemp < 0 {
		customLog.Warnf("Invalid AI_TEMPERATURE '%s'. Using default 0.1.", aiTempStr)
		aiTemp = 0.1
	}
	aiTimeoutSecs, err := strconv.Atoi(aiTimeoutStr)
	if err != nil || aiTimeoutSecs <= 0 {
		customLog.Warnf("Invalid AI_TIMEOUT_SECONDS '%s'. Using default 30s.", aiTimeoutStr)
		aiTimeoutSecs = 30
	}

	// Return final Config struct
	cfg := &Config{
		ServerPort:     port,
		JWTSecret:      jwtSecret,
		JWTExpiration:  jwtExpiration,
		MetadataDbDir:  dbDir,
		MetadataDbFile: dbFile,
		DatabaseURL:    databaseURL,
		AIAPIKey:       aiKey,
		AIBaseURL:      aiBaseURL,
		AIModel:        aiModel,
		AITemperature:  aiTemp,
		AITimeout:      time.Duration(aiTimeoutSecs) * time.Second,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v", cfg.ServerPort, cfg.JWTExpiration)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
