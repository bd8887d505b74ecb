package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ConfigurationError reports required deployment settings that are absent.
// It is operator-fixable and never retried automatically.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

type Config struct {
	Addr string

	// BaseURL is the public site root used to build the success/cancel
	// redirect targets.
	BaseURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIBase       string
	StripeTimeout       time.Duration

	// Webhook signatures older than this are rejected.
	WebhookTolerance time.Duration

	AutomationURL    string
	AutomationSecret string
	ForwardTimeout   time.Duration

	// CatalogPath optionally replaces the built-in SKU/price catalog.
	CatalogPath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:             getenv("HTTP_ADDR", ":8080"),
		StripeAPIBase:    getenv("STRIPE_API_BASE", "https://api.stripe.com"),
		StripeTimeout:    getenvDuration("STRIPE_TIMEOUT", 10*time.Second),
		WebhookTolerance: getenvDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
		ForwardTimeout:   getenvDuration("FORWARD_TIMEOUT", 8*time.Second),
		CatalogPath:      os.Getenv("CATALOG_PATH"),
	}

	var missing []string
	require := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.BaseURL = strings.TrimSuffix(require("BASE_URL"), "/")
	cfg.StripeSecretKey = require("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = require("STRIPE_WEBHOOK_SECRET")
	cfg.AutomationURL = require("AUTOMATION_URL")
	cfg.AutomationSecret = require("AUTOMATION_SECRET")

	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
