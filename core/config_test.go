package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(WithBaseURL("https://shop.example.com"))
	require.NoError(t, err)

	assert.Equal(t, "lumiere-storefront", cfg.Name)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, float64(999), cfg.Checkout.FreeShippingThreshold)
	assert.Equal(t, float64(79), cfg.Checkout.FlatShippingFee)
	assert.Equal(t, "INR", cfg.Checkout.DefaultCurrency)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestNewConfig_MissingBaseURL(t *testing.T) {
	_, err := NewConfig()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfiguration))
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LUMIERE_API_BASE_URL", "https://env.example.com")
	t.Setenv("LUMIERE_FREE_SHIPPING_THRESHOLD", "500")
	t.Setenv("LUMIERE_LOG_LEVEL", "debug")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, float64(500), cfg.Checkout.FreeShippingThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewConfig_OptionsBeatEnvironment(t *testing.T) {
	t.Setenv("LUMIERE_API_BASE_URL", "https://env.example.com")

	cfg, err := NewConfig(WithBaseURL("https://option.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "https://option.example.com", cfg.API.BaseURL)
}

func TestNewConfig_RedisURLSelectsRedisProvider(t *testing.T) {
	cfg, err := NewConfig(
		WithBaseURL("https://shop.example.com"),
		WithRedisURL("redis://localhost:6379"),
	)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Provider)
}

func TestNewConfig_RedisProviderRequiresURL(t *testing.T) {
	t.Setenv("LUMIERE_STORAGE_PROVIDER", "redis")

	_, err := NewConfig(WithBaseURL("https://shop.example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfiguration))
}

func TestNewConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	content := []byte(`
api:
  base_url: https://file.example.com
checkout:
  flat_shipping_fee: 49
logging:
  level: warn
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := NewConfig(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.API.BaseURL)
	assert.Equal(t, float64(49), cfg.Checkout.FlatShippingFee)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestNewConfig_FileLosesToEnvAndOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0o600))

	t.Setenv("LUMIERE_API_BASE_URL", "https://env.example.com")

	cfg, err := NewConfig(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown storage provider",
			mutate:  func(c *Config) { c.Storage.Provider = "dynamo" },
			wantErr: ErrInvalidConfiguration,
		},
		{
			name:    "negative shipping fee",
			mutate:  func(c *Config) { c.Checkout.FlatShippingFee = -1 },
			wantErr: ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.API.BaseURL = "https://shop.example.com"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}
