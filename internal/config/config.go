// Package config loads runtime configuration.
//
// Values are layered, lowest priority first: built-in defaults, the optional
// YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jm289765/concept-graph-web/internal/validation"
)

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment" validate:"required,oneof=development test staging production"`

	Logging  Logging  `yaml:"logging"`
	Provider Provider `yaml:"provider"`
	Editor   Editor   `yaml:"editor"`
	Server   Server   `yaml:"server"`
	Tracing  Tracing  `yaml:"tracing"`
	Metrics  Metrics  `yaml:"metrics"`

	// File is the YAML overlay this config was read from, if any.
	File string `yaml:"-"`
}

type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// Output is a zap sink: stdout, stderr or a file path.
	Output string `yaml:"output" validate:"required"`
}

// Provider configures the REST client the editors talk through.
type Provider struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	Breaker Breaker       `yaml:"breaker"`
}

// Breaker configures the provider's circuit breaker.
type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests" validate:"min=1"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Editor holds the interactive timings of the editing workspace.
type Editor struct {
	AutosaveWindow  time.Duration `yaml:"autosave_window" validate:"gt=0"`
	SearchWindow    time.Duration `yaml:"search_window" validate:"gt=0"`
	HistoryCapacity int           `yaml:"history_capacity" validate:"min=1"`
	EditorCount     int           `yaml:"editor_count" validate:"min=1,max=8"`
}

// Server configures the graph backend.
type Server struct {
	Address        string   `yaml:"address" validate:"required"`
	Store          string   `yaml:"store" validate:"oneof=memory dynamodb"`
	TableName      string   `yaml:"table_name" validate:"required"`
	Region         string   `yaml:"region" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"min=1"`
	EventBusName   string   `yaml:"event_bus_name"`
}

type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"service_name" validate:"required"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Logging:     Logging{Level: "info", Output: "stdout"},
		Provider: Provider{
			BaseURL: "http://localhost:8080/",
			Timeout: 10 * time.Second,
			Breaker: Breaker{
				MaxRequests:      3,
				Interval:         60 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 0.5,
				MinRequests:      5,
			},
		},
		Editor: Editor{
			AutosaveWindow:  1000 * time.Millisecond,
			SearchWindow:    300 * time.Millisecond,
			HistoryCapacity: 100,
			EditorCount:     2,
		},
		Server: Server{
			Address:        ":8080",
			Store:          "memory",
			TableName:      "concept-graph",
			Region:         "us-west-2",
			AllowedOrigins: []string{"*"},
		},
		Tracing: Tracing{ServiceName: "concept-graph"},
		Metrics: Metrics{Enabled: true, Namespace: "concept_graph"},
	}
}

// LoadConfig loads configuration from CONFIG_FILE (if set) and the
// environment.
func LoadConfig() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile loads configuration with path as the YAML overlay. An empty path
// skips the overlay.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		cfg.File = path
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.Logging.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logging.Level))
	c.Logging.Output = getEnv("LOG_OUTPUT", c.Logging.Output)

	c.Provider.BaseURL = getEnv("PROVIDER_BASE_URL", c.Provider.BaseURL)
	c.Provider.Timeout = getEnvDuration("PROVIDER_TIMEOUT", c.Provider.Timeout)
	c.Provider.Breaker.MaxRequests = uint32(getEnvInt("BREAKER_MAX_REQUESTS", int(c.Provider.Breaker.MaxRequests)))
	c.Provider.Breaker.Interval = getEnvDuration("BREAKER_INTERVAL", c.Provider.Breaker.Interval)
	c.Provider.Breaker.Timeout = getEnvDuration("BREAKER_TIMEOUT", c.Provider.Breaker.Timeout)
	c.Provider.Breaker.FailureThreshold = getEnvFloat("BREAKER_FAILURE_THRESHOLD", c.Provider.Breaker.FailureThreshold)
	c.Provider.Breaker.MinRequests = uint32(getEnvInt("BREAKER_MIN_REQUESTS", int(c.Provider.Breaker.MinRequests)))

	c.Editor.AutosaveWindow = getEnvDuration("AUTOSAVE_WINDOW", c.Editor.AutosaveWindow)
	c.Editor.SearchWindow = getEnvDuration("SEARCH_WINDOW", c.Editor.SearchWindow)
	c.Editor.HistoryCapacity = getEnvInt("HISTORY_CAPACITY", c.Editor.HistoryCapacity)
	c.Editor.EditorCount = getEnvInt("EDITOR_COUNT", c.Editor.EditorCount)

	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Server.Store = getEnv("GRAPH_STORE", c.Server.Store)
	c.Server.TableName = getEnv("TABLE_NAME", c.Server.TableName)
	c.Server.Region = getEnv("AWS_REGION", c.Server.Region)
	c.Server.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.EventBusName = getEnv("EVENT_BUS_NAME", c.Server.EventBusName)

	c.Tracing.Enabled = getEnvBool("ENABLE_TRACING", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", c.Tracing.ServiceName)

	c.Metrics.Enabled = getEnvBool("ENABLE_METRICS", c.Metrics.Enabled)
	c.Metrics.Namespace = getEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1s") or bare milliseconds ("1000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
