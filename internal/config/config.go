package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	emissions "entsoe-bridge/internal/emissions/domain"
	"entsoe-bridge/internal/entsoe"
	platformapp "entsoe-bridge/internal/platform/application"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

// Platform backends.
const (
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
	BackendMemory   = "memory"
)

const (
	defaultCountryCode       = "NL"
	defaultTimezone          = "Europe/Amsterdam"
	defaultMetricsJob        = "entsoe_bridge"
	defaultKafkaTopic        = "entsoe.import.completed"
	defaultTokenTTL          = 15 * time.Minute
	defaultRequestsPerMinute = 300
	defaultTimeout           = 30 * time.Second
)

// EntsoeConfig holds upstream settings.
type EntsoeConfig struct {
	AuthToken           string        `yaml:"auth_token"`
	AuthTokenTestServer string        `yaml:"auth_token_test_server"`
	UseTestServer       bool          `yaml:"use_test_server"`
	BaseURL             string        `yaml:"base_url"`
	TestBaseURL         string        `yaml:"test_base_url"`
	Timeout             time.Duration `yaml:"timeout"`
	RequestsPerMinute   int           `yaml:"requests_per_minute"`
}

// CountryConfig selects the zone to import.
type CountryConfig struct {
	Code     string `yaml:"code"`
	Timezone string `yaml:"timezone"`
}

// PlatformConfig selects and configures the host platform backend.
type PlatformConfig struct {
	Backend     string        `yaml:"backend"`
	DatabaseURL string        `yaml:"database_url"`
	BaseURL     string        `yaml:"base_url"`
	ClientID    string        `yaml:"client_id"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// EventsConfig configures import-completed event sinks.
type EventsConfig struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// MetricsConfig configures the metrics push after each run.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Config is the complete bridge configuration.
type Config struct {
	Entsoe            EntsoeConfig       `yaml:"entsoe"`
	Country           CountryConfig      `yaml:"country"`
	DerivedDataSource string             `yaml:"derived_data_source"`
	TargetResolution  string             `yaml:"target_resolution"`
	ResolutionPolicy  string             `yaml:"resolution_policy"`
	GapTolerance      string             `yaml:"gap_tolerance"`
	StrictFuelTypes   bool               `yaml:"strict_fuel_types"`
	EmissionFactors   map[string]float64 `yaml:"emission_factors"`
	Platform          PlatformConfig     `yaml:"platform"`
	Events            EventsConfig       `yaml:"events"`
	Metrics           MetricsConfig      `yaml:"metrics"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Entsoe: EntsoeConfig{
			BaseURL:           entsoe.ProductionURL,
			TestBaseURL:       entsoe.TestURL,
			Timeout:           defaultTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Country:           CountryConfig{Code: defaultCountryCode},
		DerivedDataSource: emissions.DerivedSource,
		ResolutionPolicy:  string(platformapp.PolicyFail),
		Platform: PlatformConfig{
			Backend:  BackendPostgres,
			TokenTTL: defaultTokenTTL,
		},
		Events:  EventsConfig{KafkaTopic: defaultKafkaTopic},
		Metrics: MetricsConfig{Job: defaultMetricsJob},
	}
}

// Load reads the configuration with Read and validates it.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read applies defaults, then the YAML file at path (or ENTSOE_CONFIG when path is
// empty), then environment overrides. The result is not validated.
func Read(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("ENTSOE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.fillTimezone()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Entsoe.AuthToken = getenvDefault("ENTSOE_AUTH_TOKEN", c.Entsoe.AuthToken)
	c.Entsoe.AuthTokenTestServer = getenvDefault("ENTSOE_AUTH_TOKEN_TEST_SERVER", c.Entsoe.AuthTokenTestServer)
	c.Entsoe.UseTestServer = getenvBoolDefault("ENTSOE_USE_TEST_SERVER", c.Entsoe.UseTestServer)
	c.Entsoe.RequestsPerMinute = getenvIntDefault("ENTSOE_REQUESTS_PER_MINUTE", c.Entsoe.RequestsPerMinute)
	c.Country.Code = getenvDefault("ENTSOE_COUNTRY_CODE", c.Country.Code)
	c.Country.Timezone = getenvDefault("ENTSOE_COUNTRY_TIMEZONE", c.Country.Timezone)
	c.DerivedDataSource = getenvDefault("ENTSOE_DERIVED_DATA_SOURCE", c.DerivedDataSource)
	c.TargetResolution = getenvDefault("ENTSOE_TARGET_RESOLUTION", c.TargetResolution)
	c.ResolutionPolicy = getenvDefault("ENTSOE_RESOLUTION_POLICY", c.ResolutionPolicy)
	c.GapTolerance = getenvDefault("ENTSOE_GAP_TOLERANCE", c.GapTolerance)
	c.StrictFuelTypes = getenvBoolDefault("ENTSOE_STRICT_FUEL_TYPES", c.StrictFuelTypes)

	c.Platform.Backend = getenvDefault("PLATFORM_BACKEND", c.Platform.Backend)
	c.Platform.DatabaseURL = getenvDefault("PG_DSN", c.Platform.DatabaseURL)
	c.Platform.DatabaseURL = getenvDefault("DATABASE_URL", c.Platform.DatabaseURL)
	c.Platform.BaseURL = getenvDefault("PLATFORM_BASE_URL", c.Platform.BaseURL)
	c.Platform.ClientID = getenvDefault("PLATFORM_CLIENT_ID", c.Platform.ClientID)
	c.Platform.JWTSecret = getenvDefault("PLATFORM_JWT_SECRET", c.Platform.JWTSecret)

	if brokers := splitCSV(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		c.Events.KafkaBrokers = brokers
	}
	c.Events.KafkaTopic = getenvDefault("KAFKA_TOPIC", c.Events.KafkaTopic)
	c.Metrics.PushgatewayURL = getenvDefault("METRICS_PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
}

func (c *Config) fillTimezone() {
	if c.Country.Timezone != "" {
		return
	}
	if area, err := entsoe.LookupArea(c.Country.Code); err == nil {
		c.Country.Timezone = area.Timezone
		return
	}
	c.Country.Timezone = defaultTimezone
}

// Validate checks that the configuration can run an import.
func (c Config) Validate() error {
	if _, err := c.Area(); err != nil {
		return err
	}
	if c.Country.Timezone == "" {
		return errors.New("config: country timezone required")
	}
	if _, err := time.LoadLocation(c.Country.Timezone); err != nil {
		return fmt.Errorf("config: country timezone: %w", err)
	}
	if _, err := c.UpstreamToken(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DerivedDataSource) == "" {
		return errors.New("config: derived data source required")
	}
	if _, err := c.Resolution(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Tolerance(); err != nil {
		return err
	}
	if _, err := c.Factors(); err != nil {
		return err
	}
	if c.Entsoe.RequestsPerMinute < 0 {
		return errors.New("config: requests per minute must not be negative")
	}
	switch c.Platform.Backend {
	case BackendPostgres:
		if c.Platform.DatabaseURL == "" {
			return errors.New("config: database url required for postgres backend")
		}
	case BackendHTTP:
		if c.Platform.BaseURL == "" {
			return errors.New("config: platform base url required for http backend")
		}
		if c.Platform.ClientID == "" || c.Platform.JWTSecret == "" {
			return errors.New("config: platform client id and jwt secret required for http backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown platform backend %q", c.Platform.Backend)
	}
	return nil
}

// Area resolves the configured country code.
func (c Config) Area() (entsoe.Area, error) {
	area, err := entsoe.LookupArea(c.Country.Code)
	if err != nil {
		return entsoe.Area{}, fmt.Errorf("config: country code: %w", err)
	}
	return area, nil
}

// UpstreamToken selects the token for the configured server.
func (c Config) UpstreamToken() (string, error) {
	if c.Entsoe.UseTestServer {
		if c.Entsoe.AuthTokenTestServer == "" {
			return "", fmt.Errorf("config: %w: ENTSOE_AUTH_TOKEN_TEST_SERVER not set", entsoe.ErrMissingToken)
		}
		return c.Entsoe.AuthTokenTestServer, nil
	}
	if c.Entsoe.AuthToken == "" {
		return "", fmt.Errorf("config: %w: ENTSOE_AUTH_TOKEN not set", entsoe.ErrMissingToken)
	}
	return c.Entsoe.AuthToken, nil
}

// UpstreamURL selects the endpoint for the configured server.
func (c Config) UpstreamURL() string {
	if c.Entsoe.UseTestServer {
		if c.Entsoe.TestBaseURL != "" {
			return c.Entsoe.TestBaseURL
		}
		return entsoe.TestURL
	}
	if c.Entsoe.BaseURL != "" {
		return c.Entsoe.BaseURL
	}
	return entsoe.ProductionURL
}

// EntsoeClientConfig builds the upstream client settings.
func (c Config) EntsoeClientConfig() (entsoe.Config, error) {
	token, err := c.UpstreamToken()
	if err != nil {
		return entsoe.Config{}, err
	}
	return entsoe.Config{
		BaseURL:           c.UpstreamURL(),
		Token:             token,
		Timeout:           c.Entsoe.Timeout,
		RequestsPerMinute: c.Entsoe.RequestsPerMinute,
	}, nil
}

// Resolution returns the target resolution override, or zero when unset.
func (c Config) Resolution() (time.Duration, error) {
	if strings.TrimSpace(c.TargetResolution) == "" {
		return 0, nil
	}
	res, err := timeseries.ParseResolution(c.TargetResolution)
	if err != nil {
		return 0, fmt.Errorf("config: target resolution: %w", err)
	}
	return res, nil
}

// Policy returns the resolution policy.
func (c Config) Policy() (platformapp.ResolutionPolicy, error) {
	policy, err := platformapp.ParseResolutionPolicy(c.ResolutionPolicy)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return policy, nil
}

// Tolerance returns the longest gap the normalizer accepts.
func (c Config) Tolerance() (time.Duration, error) {
	if strings.TrimSpace(c.GapTolerance) == "" {
		return 0, nil
	}
	if c.GapTolerance == "0" {
		return 0, nil
	}
	tolerance, err := timeseries.ParseResolution(c.GapTolerance)
	if err != nil {
		return 0, fmt.Errorf("config: gap tolerance: %w", err)
	}
	return tolerance, nil
}

// Factors returns the default emission factors with configured overrides applied.
func (c Config) Factors() (emissions.FactorTable, error) {
	factors := emissions.DefaultFactors().Merge(c.EmissionFactors)
	if err := factors.Validate(); err != nil {
		return nil, fmt.Errorf("config: emission factors: %w", err)
	}
	return factors, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.Entsoe.AuthToken = redact(c.Entsoe.AuthToken)
	c.Entsoe.AuthTokenTestServer = redact(c.Entsoe.AuthTokenTestServer)
	c.Platform.JWTSecret = redact(c.Platform.JWTSecret)
	c.Platform.DatabaseURL = redact(c.Platform.DatabaseURL)
	return c
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
