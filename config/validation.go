package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that every value the services need at startup is
// present. API keys for the language model are read by the services
// themselves and validated there.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if cfg.VectorAPIURL == "" {
		errs = append(errs, "VECTOR_API_URL is required")
	}
	if cfg.VectorAPIKey == "" {
		errs = append(errs, "VECTOR_API_KEY is required")
	}
	if cfg.RecipeTable == "" {
		errs = append(errs, "RECIPE_TABLE is required")
	}
	if cfg.UserTable == "" {
		errs = append(errs, "USER_TABLE is required")
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
