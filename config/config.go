package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Vector store configuration
	VectorAPIURL    string
	VectorAPIKey    string
	VectorNamespace string

	// Key-value store configuration
	AWSRegion   string
	RecipeTable string
	UserTable   string

	// Object storage
	S3Bucket string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT configuration
	JWTSecret string
}

// LoadConfig builds a Config from environment variables, with secret-file
// fallbacks for sensitive values.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		ServerHost:      getEnv("SERVER_HOST", "0.0.0.0"),
		VectorAPIURL:    os.Getenv("VECTOR_API_URL"),
		VectorAPIKey:    getSecret("VECTOR_API_KEY"),
		VectorNamespace: getEnv("VECTOR_NAMESPACE", "recipes"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		RecipeTable:     getEnv("RECIPE_TABLE", "recipes"),
		UserTable:       getEnv("USER_TABLE", "users"),
		S3Bucket:        getEnv("S3_BUCKET_NAME", "recipelens-recipe-images"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getSecret("REDIS_PASSWORD"),
		JWTSecret:       getSecret("JWT_SECRET"),
	}

	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value %q: %w", dbStr, err)
		}
		cfg.RedisDB = db
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// RedisAddr is the host:port Redis address.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// getSecret reads NAME, then NAME_FILE, then the Docker secrets directory.
func getSecret(name string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if file := os.Getenv(name + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return readSecret(strings.ToLower(name))
}

// readSecret reads a Docker secret from the secrets directory.
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
