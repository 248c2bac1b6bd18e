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

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// providerEnvVars maps provider names to their conventional API key variable.
var providerEnvVars = map[string]string{
	"groq": "GROQ_API_KEY",
}

// EnvBackend provides read-only access to API keys in environment variables.
type EnvBackend struct {
	lookup func(string) string
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.Getenv}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get resolves keys of the form providers/<name>/api_key.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if envVar := EnvVarFor(key); envVar != "" {
		if value := e.lookup(envVar); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: environment variable not set", ErrSecretNotFound)
}

// Set returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Set(ctx context.Context, key string, value string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// Available is always true.
func (e *EnvBackend) Available() bool {
	return true
}

// EnvVarFor returns the environment variable consulted for key, or "".
func EnvVarFor(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "providers" || parts[2] != "api_key" {
		return ""
	}
	return providerEnvVars[parts[1]]
}
