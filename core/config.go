package core

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storefront client.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// A YAML file may be loaded via WithConfigFile; file values sit between
// defaults and environment variables.
//
// Example usage:
//
//	cfg, err := core.NewConfig(
//	    core.WithBaseURL("https://shop.example.com"),
//	    core.WithRedisURL("redis://localhost:6379"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Name identifies this client instance in logs and telemetry
	Name string `yaml:"name" env:"LUMIERE_CLIENT_NAME"`

	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`

	// configFile is set by WithConfigFile and consumed before the env pass
	configFile string `yaml:"-"`
}

// APIConfig contains the backend REST API connection settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"LUMIERE_API_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"LUMIERE_API_TIMEOUT" default:"30s"`
}

// StorageConfig contains client-side persistence settings.
// The durable scope holds remembered credentials and the guest cart key.
// Provider "memory" keeps everything in-process; "redis" survives restarts.
type StorageConfig struct {
	Provider      string        `yaml:"provider" env:"LUMIERE_STORAGE_PROVIDER" default:"memory"`
	RedisURL      string        `yaml:"redis_url" env:"LUMIERE_REDIS_URL,REDIS_URL"`
	Namespace     string        `yaml:"namespace" env:"LUMIERE_STORAGE_NAMESPACE" default:"lumiere:storefront"`
	CredentialTTL time.Duration `yaml:"credential_ttl" env:"LUMIERE_CREDENTIAL_TTL" default:"720h"`
}

// CheckoutConfig contains pricing constants used by the checkout orchestrator.
// Shipping is a flat fee waived at or above the free-shipping threshold.
type CheckoutConfig struct {
	FreeShippingThreshold float64       `yaml:"free_shipping_threshold" env:"LUMIERE_FREE_SHIPPING_THRESHOLD" default:"999"`
	FlatShippingFee       float64       `yaml:"flat_shipping_fee" env:"LUMIERE_FLAT_SHIPPING_FEE" default:"79"`
	DefaultCurrency       string        `yaml:"default_currency" env:"LUMIERE_DEFAULT_CURRENCY" default:"INR"`
	DefaultCountry        string        `yaml:"default_country" env:"LUMIERE_DEFAULT_COUNTRY" default:"IN"`
	CODProcessingDelay    time.Duration `yaml:"cod_processing_delay" env:"LUMIERE_COD_PROCESSING_DELAY" default:"600ms"`
}

// TelemetryConfig contains observability configuration for distributed tracing.
// This is an optional module - telemetry is only initialized when Enabled=true.
// The endpoint should be an OTLP gRPC receiver address; when empty, spans are
// written to stdout.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"LUMIERE_TELEMETRY_ENABLED" default:"false"`
	Endpoint    string `yaml:"endpoint" env:"LUMIERE_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"LUMIERE_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	Insecure    bool   `yaml:"insecure" env:"LUMIERE_TELEMETRY_INSECURE" default:"true"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LUMIERE_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"LUMIERE_LOG_FORMAT" default:"json"`
}

// Option is a functional option for configuring the client
type Option func(*Config)

// NewConfig creates a configuration with defaults, environment overrides,
// and functional options applied in priority order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := defaultConfig()

	// Config file first so env vars and options can override it
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.configFile != "" {
		if err := cfg.loadFile(cfg.configFile); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvironment()

	// Re-apply options: they carry the highest priority
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Name: "lumiere-storefront",
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Provider:      "memory",
			Namespace:     "lumiere:storefront",
			CredentialTTL: 720 * time.Hour,
		},
		Checkout: CheckoutConfig{
			FreeShippingThreshold: 999,
			FlatShippingFee:       79,
			DefaultCurrency:       "INR",
			DefaultCountry:        "IN",
			CODProcessingDelay:    600 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api base URL is required", ErrMissingConfiguration)
	}
	if _, err := url.Parse(c.API.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid api base URL: %v", ErrInvalidConfiguration, err)
	}
	if c.Storage.Provider != "memory" && c.Storage.Provider != "redis" {
		return fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfiguration, c.Storage.Provider)
	}
	if c.Storage.Provider == "redis" && c.Storage.RedisURL == "" {
		return fmt.Errorf("%w: redis storage requires a redis URL", ErrMissingConfiguration)
	}
	if c.Checkout.FlatShippingFee < 0 || c.Checkout.FreeShippingThreshold < 0 {
		return fmt.Errorf("%w: shipping constants must be non-negative", ErrInvalidConfiguration)
	}
	return nil
}

// applyEnvironment applies environment variable overrides.
// Multiple variable names per field are checked in declaration order.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("LUMIERE_CLIENT_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("LUMIERE_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := envDuration("LUMIERE_API_TIMEOUT"); v > 0 {
		c.API.Timeout = v
	}
	if v := os.Getenv("LUMIERE_STORAGE_PROVIDER"); v != "" {
		c.Storage.Provider = v
	}
	if v := firstEnv("LUMIERE_REDIS_URL", "REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
		if os.Getenv("LUMIERE_STORAGE_PROVIDER") == "" {
			c.Storage.Provider = "redis"
		}
	}
	if v := os.Getenv("LUMIERE_STORAGE_NAMESPACE"); v != "" {
		c.Storage.Namespace = v
	}
	if v := envDuration("LUMIERE_CREDENTIAL_TTL"); v > 0 {
		c.Storage.CredentialTTL = v
	}
	if v := envFloat("LUMIERE_FREE_SHIPPING_THRESHOLD"); v >= 0 {
		c.Checkout.FreeShippingThreshold = v
	}
	if v := envFloat("LUMIERE_FLAT_SHIPPING_FEE"); v >= 0 {
		c.Checkout.FlatShippingFee = v
	}
	if v := os.Getenv("LUMIERE_DEFAULT_CURRENCY"); v != "" {
		c.Checkout.DefaultCurrency = v
	}
	if v := os.Getenv("LUMIERE_DEFAULT_COUNTRY"); v != "" {
		c.Checkout.DefaultCountry = v
	}
	if v := envDuration("LUMIERE_COD_PROCESSING_DELAY"); v > 0 {
		c.Checkout.CODProcessingDelay = v
	}
	if v := os.Getenv("LUMIERE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := firstEnv("LUMIERE_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := firstEnv("LUMIERE_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("LUMIERE_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
	if v := os.Getenv("LUMIERE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LUMIERE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// loadFile merges a YAML configuration file into the config
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading config file: %v", ErrInvalidConfiguration, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing config file: %v", ErrInvalidConfiguration, err)
	}
	return nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// envFloat returns -1 when the variable is unset or malformed
func envFloat(name string) float64 {
	v := os.Getenv(name)
	if v == "" {
		return -1
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return -1
	}
	return f
}

// Functional options

// WithName sets the client instance name
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithBaseURL sets the backend API base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Config) { c.API.BaseURL = baseURL }
}

// WithHTTPTimeout sets the HTTP client timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.API.Timeout = timeout }
}

// WithRedisURL enables Redis-backed durable storage
func WithRedisURL(redisURL string) Option {
	return func(c *Config) {
		c.Storage.RedisURL = redisURL
		c.Storage.Provider = "redis"
	}
}

// WithStorageNamespace sets the key namespace for durable storage
func WithStorageNamespace(namespace string) Option {
	return func(c *Config) { c.Storage.Namespace = namespace }
}

// WithFreeShippingThreshold overrides the free-shipping subtotal threshold
func WithFreeShippingThreshold(threshold float64) Option {
	return func(c *Config) { c.Checkout.FreeShippingThreshold = threshold }
}

// WithFlatShippingFee overrides the flat shipping fee
func WithFlatShippingFee(fee float64) Option {
	return func(c *Config) { c.Checkout.FlatShippingFee = fee }
}

// WithDefaultCurrency overrides the fallback display currency
func WithDefaultCurrency(currency string) Option {
	return func(c *Config) { c.Checkout.DefaultCurrency = currency }
}

// WithTelemetry enables OTEL tracing against the given OTLP endpoint.
// An empty endpoint writes spans to stdout.
func WithTelemetry(endpoint string) Option {
	return func(c *Config) {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = endpoint
	}
}

// WithLogLevel sets the logging level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) { c.Logging.Level = level }
}

// WithConfigFile loads configuration from a YAML file before applying
// environment variables and other options
func WithConfigFile(path string) Option {
	return func(c *Config) { c.configFile = path }
}
