// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads newsmood settings from a YAML or TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tombee/newsmood/internal/log"
	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// DefaultQuery is searched when the user gives none.
const DefaultQuery = "Notícias sobre inflação no Brasil"

// Config represents the complete newsmood configuration.
type Config struct {
	Log           LogConfig           `yaml:"log" toml:"log"`
	LLM           LLMConfig           `yaml:"llm" toml:"llm"`
	Tokenizer     TokenizerConfig     `yaml:"tokenizer" toml:"tokenizer"`
	Search        SearchConfig        `yaml:"search" toml:"search"`
	Pipeline      PipelineConfig      `yaml:"pipeline" toml:"pipeline"`
	Observability ObservabilityConfig `yaml:"observability" toml:"observability"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the log level (trace, debug, info, warn, error).
	Level string `yaml:"level" toml:"level"`

	// Format is the log format (text, json).
	Format string `yaml:"format" toml:"format"`

	// AddSource adds source file and line to log records.
	AddSource bool `yaml:"add_source" toml:"add_source"`
}

// LLMConfig configures the completion provider and the retry loop around it.
type LLMConfig struct {
	// Provider is one of groq, ollama, echo.
	// Environment: NEWSMOOD_PROVIDER
	Provider string `yaml:"provider" toml:"provider"`

	// Model is passed to the provider. Empty means the provider default.
	// Environment: NEWSMOOD_MODEL
	Model string `yaml:"model" toml:"model"`

	// BaseURL overrides the provider endpoint.
	// Environment: OLLAMA_HOST (ollama only)
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// APIKey is the provider API key. Prefer GROQ_API_KEY or the keychain.
	APIKey string `yaml:"api_key" toml:"api_key"`

	// Temperature is sent with every request.
	Temperature float64 `yaml:"temperature" toml:"temperature"`

	// MaxAttempts bounds completion attempts, including the first.
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`

	// BaseDelay is the linear backoff unit between attempts.
	BaseDelay time.Duration `yaml:"base_delay" toml:"base_delay"`

	// RetryPolicy is "all" (retry every error) or "transient".
	RetryPolicy string `yaml:"retry_policy" toml:"retry_policy"`

	// RequestTimeout bounds a single completion request.
	RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout"`
}

// TokenizerConfig selects the scheme used for local token estimation.
type TokenizerConfig struct {
	// Scheme is an encoding name, a model name, or "approx".
	// Environment: NEWSMOOD_TOKENIZER
	Scheme string `yaml:"scheme" toml:"scheme"`
}

// SearchConfig configures the search backend.
type SearchConfig struct {
	// Provider is duckduckgo or static.
	Provider string `yaml:"provider" toml:"provider"`

	// MaxResults caps the number of snippets joined into the news text.
	MaxResults int `yaml:"max_results" toml:"max_results"`

	// Timeout bounds the search request.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`

	// StaticText is returned by the static provider.
	StaticText string `yaml:"static_text" toml:"static_text"`
}

// PipelineConfig toggles optional pipeline behavior.
type PipelineConfig struct {
	// CountSearchTokens adds the query to prompt tokens and the fetched
	// text to completion tokens during fetch.
	CountSearchTokens bool `yaml:"count_search_tokens" toml:"count_search_tokens"`
}

// ObservabilityConfig configures tracing and metrics export.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing" toml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Exporter is stdout, otlp-http or otlp-grpc.
	Exporter string `yaml:"exporter" toml:"exporter"`

	// Endpoint is the OTLP collector address.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// MetricsConfig configures the Prometheus pushgateway.
type MetricsConfig struct {
	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string `yaml:"pushgateway_url" toml:"pushgateway_url"`

	// Job is the pushgateway job label.
	Job string `yaml:"job" toml:"job"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		LLM: LLMConfig{
			Provider:       "groq",
			Model:          "llama-3.1-8b-instant",
			Temperature:    0,
			MaxAttempts:    3,
			BaseDelay:      500 * time.Millisecond,
			RetryPolicy:    "all",
			RequestTimeout: 60 * time.Second,
		},
		Tokenizer: TokenizerConfig{
			Scheme: tokenizer.DefaultScheme,
		},
		Search: SearchConfig{
			Provider:   "duckduckgo",
			MaxResults: 5,
			Timeout:    15 * time.Second,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{Exporter: "stdout"},
			Metrics: MetricsConfig{Job: "newsmood"},
		},
	}
}

// Load reads configuration in order: defaults, file, environment.
//
// An explicit configPath must exist. With an empty configPath the default
// location is tried and silently skipped when absent.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	path := configPath
	if path == "" {
		if p, err := ConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, &nmerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &nmerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file does not exist: %w", err)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults fills zero values left by a partial file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = defaults.LLM.MaxAttempts
	}
	if c.LLM.BaseDelay == 0 {
		c.LLM.BaseDelay = defaults.LLM.BaseDelay
	}
	if c.LLM.RetryPolicy == "" {
		c.LLM.RetryPolicy = defaults.LLM.RetryPolicy
	}
	if c.LLM.RequestTimeout == 0 {
		c.LLM.RequestTimeout = defaults.LLM.RequestTimeout
	}

	if c.Tokenizer.Scheme == "" {
		c.Tokenizer.Scheme = defaults.Tokenizer.Scheme
	}

	if c.Search.Provider == "" {
		c.Search.Provider = defaults.Search.Provider
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = defaults.Search.Timeout
	}

	if c.Observability.Tracing.Exporter == "" {
		c.Observability.Tracing.Exporter = defaults.Observability.Tracing.Exporter
	}
	if c.Observability.Metrics.Job == "" {
		c.Observability.Metrics.Job = defaults.Observability.Metrics.Job
	}
}

// loadFromEnv overrides values from environment variables.
func (c *Config) loadFromEnv() {
	logCfg := &log.Config{Level: c.Log.Level, Format: log.Format(c.Log.Format), AddSource: c.Log.AddSource}
	log.ApplyEnv(logCfg)
	c.Log.Level = logCfg.Level
	c.Log.Format = string(logCfg.Format)
	c.Log.AddSource = logCfg.AddSource

	if val := os.Getenv("NEWSMOOD_PROVIDER"); val != "" {
		c.LLM.Provider = strings.ToLower(val)
	}
	if val := os.Getenv("NEWSMOOD_MODEL"); val != "" {
		c.LLM.Model = val
	}
	if val := os.Getenv("NEWSMOOD_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.LLM.MaxAttempts = n
		}
	}
	if val := os.Getenv("NEWSMOOD_TOKENIZER"); val != "" {
		c.Tokenizer.Scheme = val
	}
	if val := os.Getenv("GROQ_API_KEY"); val != "" && c.LLM.APIKey == "" && c.LLM.Provider == "groq" {
		c.LLM.APIKey = val
	}
	if val := os.Getenv("OLLAMA_HOST"); val != "" && c.LLM.BaseURL == "" && c.LLM.Provider == "ollama" {
		if !strings.Contains(val, "://") {
			val = "http://" + val
		}
		c.LLM.BaseURL = val
	}
	if val := os.Getenv("NEWSMOOD_PUSHGATEWAY_URL"); val != "" {
		c.Observability.Metrics.PushgatewayURL = val
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !log.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	switch c.LLM.Provider {
	case "groq", "ollama", "echo":
	default:
		errs = append(errs, fmt.Sprintf("llm.provider must be one of [groq, ollama, echo], got %q", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts))
	}
	if c.LLM.BaseDelay < 0 {
		errs = append(errs, fmt.Sprintf("llm.base_delay must not be negative, got %v", c.LLM.BaseDelay))
	}
	if c.LLM.RetryPolicy != "all" && c.LLM.RetryPolicy != "transient" {
		errs = append(errs, fmt.Sprintf("llm.retry_policy must be one of [all, transient], got %q", c.LLM.RetryPolicy))
	}
	if c.LLM.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("llm.request_timeout must be positive, got %v", c.LLM.RequestTimeout))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}

	if !ValidScheme(c.Tokenizer.Scheme) {
		errs = append(errs, fmt.Sprintf("tokenizer.scheme %q is not a known encoding, model, or %q", c.Tokenizer.Scheme, tokenizer.ApproxScheme))
	}

	switch c.Search.Provider {
	case "duckduckgo":
	case "static":
		if strings.TrimSpace(c.Search.StaticText) == "" {
			errs = append(errs, "search.static_text is required when search.provider is static")
		}
	default:
		errs = append(errs, fmt.Sprintf("search.provider must be one of [duckduckgo, static], got %q", c.Search.Provider))
	}
	if c.Search.MaxResults < 1 {
		errs = append(errs, fmt.Sprintf("search.max_results must be at least 1, got %d", c.Search.MaxResults))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("search.timeout must be positive, got %v", c.Search.Timeout))
	}

	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case "stdout", "otlp-http", "otlp-grpc":
		default:
			errs = append(errs, fmt.Sprintf("observability.tracing.exporter must be one of [stdout, otlp-http, otlp-grpc], got %q", c.Observability.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidScheme reports whether scheme names a usable tokenization scheme.
func ValidScheme(scheme string) bool {
	if strings.EqualFold(strings.TrimSpace(scheme), tokenizer.ApproxScheme) {
		return true
	}
	_, err := tokenizer.ResolveEncoding(scheme)
	return err == nil
}
