package llm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderConfig carries everything a factory needs to build a provider.
type ProviderConfig struct {
	// APIKey authenticates against hosted APIs. Local providers ignore it.
	APIKey string

	// RequireAPIKey makes Validate reject an empty APIKey.
	RequireAPIKey bool

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds a single completion request. Zero means provider default.
	Timeout time.Duration

	// Logger is used by the provider's HTTP client.
	Logger *slog.Logger
}

// Validate checks that required credentials are present.
// Key formats vary across providers and are not checked here.
func (c ProviderConfig) Validate() error {
	if c.RequireAPIKey && c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

// Redacted returns a safe-to-log version with the API key masked.
func (c ProviderConfig) Redacted() string {
	parts := []string{}
	if c.APIKey != "" {
		parts = append(parts, "APIKey: "+maskSecret(c.APIKey))
	}
	if c.BaseURL != "" {
		parts = append(parts, "BaseURL: "+c.BaseURL)
	}
	if len(parts) == 0 {
		return "(defaults)"
	}
	return strings.Join(parts, ", ")
}

// maskSecret shows the first and last 4 characters of secret.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
