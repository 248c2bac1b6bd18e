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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/secrets"
	"github.com/tombee/newsmood/pkg/llm/providers"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// HealthToolResult represents the health check result
type HealthToolResult struct {
	Healthy bool          `json:"healthy"`
	Version string        `json:"version"`
	Checks  []HealthCheck `json:"checks"`
}

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pass", "warn", "fail"
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

func (s *Server) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResponse("Rate limit exceeded. Please try again later."), nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := runHealthChecks(checkCtx, s.version, s.cfg, s.resolver)

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to encode health result: %v", err)), nil
	}
	return textResponse(string(resultJSON)), nil
}

func runHealthChecks(ctx context.Context, version string, cfg *config.Config, resolver *secrets.Resolver) HealthToolResult {
	result := HealthToolResult{Healthy: true, Version: version}

	add := func(c HealthCheck) {
		result.Checks = append(result.Checks, c)
		if c.Status == "fail" {
			result.Healthy = false
		}
	}

	add(checkConfig(cfg))
	add(checkAPIKey(ctx, cfg, resolver))
	add(checkTokenizer(cfg))
	add(HealthCheck{
		Name:    "Search",
		Status:  "pass",
		Message: fmt.Sprintf("Search provider: %s", cfg.Search.Provider),
	})
	return result
}

func checkConfig(cfg *config.Config) HealthCheck {
	if err := cfg.Validate(); err != nil {
		return HealthCheck{
			Name:        "Configuration",
			Status:      "fail",
			Message:     fmt.Sprintf("Config validation failed: %v", err),
			Remediation: "Fix the values reported above in ~/.config/newsmood/config.yaml",
		}
	}
	return HealthCheck{
		Name:    "Configuration",
		Status:  "pass",
		Message: fmt.Sprintf("Provider %s, model %s", cfg.LLM.Provider, cfg.LLM.Model),
	}
}

func checkAPIKey(ctx context.Context, cfg *config.Config, resolver *secrets.Resolver) HealthCheck {
	name := cfg.LLM.Provider
	if !providers.RequiresAPIKey(name) {
		return HealthCheck{
			Name:    "API Key",
			Status:  "pass",
			Message: fmt.Sprintf("Provider %s needs no API key", name),
		}
	}
	if resolver == nil {
		resolver = secrets.NewDefaultResolver()
	}

	key, source, err := resolver.ResolveAPIKey(ctx, name, cfg.LLM.APIKey)
	switch {
	case err != nil:
		return HealthCheck{
			Name:        "API Key",
			Status:      "warn",
			Message:     fmt.Sprintf("Cannot read secrets: %v", err),
			Remediation: fmt.Sprintf("Set %s", secrets.EnvVarFor(secrets.APIKeyName(name))),
		}
	case key == "":
		return HealthCheck{
			Name:        "API Key",
			Status:      "fail",
			Message:     fmt.Sprintf("No API key for %s", name),
			Remediation: fmt.Sprintf("Run 'newsmood auth set-key %s' or set %s", name, secrets.EnvVarFor(secrets.APIKeyName(name))),
		}
	}
	return HealthCheck{
		Name:    "API Key",
		Status:  "pass",
		Message: fmt.Sprintf("API key for %s found (%s)", name, source),
	}
}

func checkTokenizer(cfg *config.Config) HealthCheck {
	if _, err := tokenizer.Bind(tokenizer.NewMulti(), cfg.Tokenizer.Scheme); err != nil {
		return HealthCheck{
			Name:        "Tokenizer",
			Status:      "fail",
			Message:     err.Error(),
			Remediation: "Use a model name such as gpt-4o-mini, an encoding such as o200k_base, or approx",
		}
	}
	return HealthCheck{
		Name:    "Tokenizer",
		Status:  "pass",
		Message: fmt.Sprintf("Scheme %s", cfg.Tokenizer.Scheme),
	}
}
