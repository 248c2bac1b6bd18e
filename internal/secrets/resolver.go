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
	"errors"
	"fmt"
)

// Resolver queries backends in order and returns the first hit.
type Resolver struct {
	backends []Backend
}

// NewResolver creates a resolver over the available backends, keeping order.
func NewResolver(backends ...Backend) *Resolver {
	available := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil && b.Available() {
			available = append(available, b)
		}
	}
	return &Resolver{backends: available}
}

// NewDefaultResolver checks the environment first, then the keychain.
func NewDefaultResolver() *Resolver {
	return NewResolver(NewEnvBackend(), NewKeychainBackend())
}

// Get retrieves a secret. It returns the value and the backend it came from.
func (r *Resolver) Get(ctx context.Context, key string) (string, string, error) {
	if len(r.backends) == 0 {
		return "", "", fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	var lastErr error
	for _, backend := range r.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, backend.Name(), nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("failed to get secret %q: %w", key, lastErr)
	}
	return "", "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
}

// ResolveAPIKey returns configured when it is set, otherwise looks the
// provider key up in the backends. A missing key is not an error; the
// provider factory decides whether it needs one.
func (r *Resolver) ResolveAPIKey(ctx context.Context, provider, configured string) (key, source string, err error) {
	if configured != "" {
		return configured, "config", nil
	}
	key, source, err = r.Get(ctx, APIKeyName(provider))
	if errors.Is(err, ErrSecretNotFound) || errors.Is(err, ErrBackendUnavailable) {
		return "", "", nil
	}
	return key, source, err
}

// Set stores a secret in the first writable backend.
func (r *Resolver) Set(ctx context.Context, key, value string) (string, error) {
	for _, backend := range r.backends {
		err := backend.Set(ctx, key, value)
		if errors.Is(err, ErrReadOnlyBackend) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to set secret in %s: %w", backend.Name(), err)
		}
		return backend.Name(), nil
	}
	return "", fmt.Errorf("%w: no writable backend available", ErrBackendUnavailable)
}

// Delete removes a secret from every writable backend that holds it.
func (r *Resolver) Delete(ctx context.Context, key string) error {
	deleted := false
	for _, backend := range r.backends {
		err := backend.Delete(ctx, key)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrReadOnlyBackend), errors.Is(err, ErrSecretNotFound):
		default:
			return fmt.Errorf("failed to delete secret from %s: %w", backend.Name(), err)
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %q", ErrSecretNotFound, key)
	}
	return nil
}
