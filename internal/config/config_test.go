package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "https://tickets.example.com/")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("AUTOMATION_URL", "https://n8n.example.com/webhook/tickets")
	t.Setenv("AUTOMATION_SECRET", "shared-secret")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tickets.example.com", cfg.BaseURL, "trailing slash stripped")
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://api.stripe.com", cfg.StripeAPIBase)
	assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("AUTOMATION_SECRET", "  ")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t, []string{"STRIPE_WEBHOOK_SECRET", "AUTOMATION_SECRET"}, cfgErr.Missing)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("WEBHOOK_TOLERANCE", "90s")
	t.Setenv("FORWARD_TIMEOUT", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 90*time.Second, cfg.WebhookTolerance)
	assert.Equal(t, 8*time.Second, cfg.ForwardTimeout, "unparseable duration falls back")
}
