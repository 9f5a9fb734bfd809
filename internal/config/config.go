package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup, then from real
// environment variables.
type Config struct {
	// ServerPort is the port the HTTP server listens on
	ServerPort string `envconfig:"PORT" default:"8080"`

	// JWTSecret signs and verifies bearer tokens
	JWTSecret string `envconfig:"JWT_SECRET"`

	// TokenDuration is how long issued tokens stay valid
	TokenDuration time.Duration `envconfig:"AUTH_TOKEN_DURATION" default:"168h"`

	// DataDir is the directory the embedded store writes to
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// CORSOrigins is the comma-separated list of allowed origins
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment
// variables. Falls back to sensible defaults if values are not set.
func Load() *Config {
	// Attempt to load .env file - not an error if it doesn't exist
	// as we may be running in production with real environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	// Validate required configuration
	if config.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set")
	}

	// Default to localhost for development
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}

	return &config
}
