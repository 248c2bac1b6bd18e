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

package errors

import (
	"fmt"
	"net/http"
)

// ValidationError represents user input validation failures.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ProviderError represents completion provider failures.
type ProviderError struct {
	// Provider is the name of the completion provider (e.g., "groq", "ollama")
	Provider string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Message is the human-readable error message
	Message string

	// Hint overrides the default suggestion shown to users
	Hint string

	// RequestID correlates this error with provider logs
	RequestID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}

	msg = fmt.Sprintf("%s: %s", msg, e.Message)

	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ProviderError) ErrorType() string {
	return "provider"
}

// IsRetryable reports whether the failure is likely transient: rate limiting,
// server errors, or a transport failure with no HTTP status at all.
func (e *ProviderError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return e.Cause != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsUserVisible implements UserVisibleError.
func (e *ProviderError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ProviderError) UserMessage() string { return e.Message }

// Suggestion implements UserVisibleError.
func (e *ProviderError) Suggestion() string {
	if e.Hint != "" {
		return e.Hint
	}
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "Check the API key with 'newsmood auth set-key " + e.Provider + "'"
	case http.StatusTooManyRequests:
		return "The provider is rate limiting requests; wait and try again"
	}
	return ""
}

// SearchError represents a failure of the search collaborator.
type SearchError struct {
	// Provider is the search backend name (e.g., "duckduckgo")
	Provider string

	// Query is the query that failed
	Query string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s failed for %q: %v", e.Provider, e.Query, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "llm.provider")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s", e.Key)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
