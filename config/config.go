package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application, resolved once at
// startup from the environment.
type Config struct {
	Port           string
	LogLevel       string
	LogFile        string
	DataDir        string
	AllowedOrigins []string

	// Headless CMS
	CMSProjectID string
	CMSDataset   string
	CMSBaseURL   string // optional override, mainly for tests

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// PayPal
	PayPalClientID     string
	PayPalClientSecret string
	PayPalEnv          string // "sandbox" | "live"
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present. Vendor credentials are optional at load
// time; the payment services report a distinct "not configured" error when
// they are exercised without them.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments use actual env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
		DataDir:  getEnvOrDefault("DATA_DIR", "./data"),

		CMSProjectID: os.Getenv("CMS_PROJECT_ID"),
		CMSDataset:   getEnvOrDefault("CMS_DATASET", "production"),
		CMSBaseURL:   os.Getenv("CMS_BASE_URL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		PayPalClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalEnv:          getEnvOrDefault("PAYPAL_ENV", "live"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	if env := strings.ToLower(cfg.PayPalEnv); env != "sandbox" && env != "live" {
		return nil, fmt.Errorf("PAYPAL_ENV must be \"sandbox\" or \"live\", got %q", cfg.PayPalEnv)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
