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

// Package auth implements commands that store provider API keys in the
// system keychain.
package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/newsmood/internal/commands/shared"
	"github.com/tombee/newsmood/internal/secrets"
	"github.com/tombee/newsmood/pkg/llm/providers"
)

// promptKey asks for the key on the terminal with echo disabled.
func promptKey(provider string) (string, error) {
	var key string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Key").
				Description("Enter your " + provider + " API key").
				EchoMode(huh.EchoModePassword).
				Validate(validateKey).
				Value(&key),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return key, nil
}

// NewCommand creates the auth command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage provider API keys in the system keychain.

Keys are resolved in this order when a run starts:
  1. llm.api_key in the config file
  2. Environment variable (GROQ_API_KEY)
  3. System keychain (macOS Keychain, Linux Secret Service, Windows Credential Manager)

Examples:
  newsmood auth set-key groq
  echo "gsk_..." | newsmood auth set-key groq
  newsmood auth delete-key groq`,
	}

	cmd.AddCommand(newSetKeyCommand())
	cmd.AddCommand(newDeleteKeyCommand())
	return cmd
}

func newSetKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store a provider API key in the keychain",
		Long: `Store a provider API key in the system keychain.

The key is read from a hidden prompt, or from stdin when it is piped or
NEWSMOOD_NON_INTERACTIVE=true is set.`,
		Args: cobra.ExactArgs(1),
		RunE: runSetKey,
	}
}

func newDeleteKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <provider>",
		Short: "Remove a provider API key from the keychain",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteKey,
	}
}

func runSetKey(cmd *cobra.Command, args []string) error {
	provider, err := checkProvider(args[0])
	if err != nil {
		return err
	}

	var key string
	if shared.CanPrompt(cmd.InOrStdin()) {
		key, err = promptKey(provider)
	} else {
		key, err = readKey(cmd.InOrStdin())
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return shared.NewExecutionError("aborted", err)
	}
	if err != nil {
		return shared.NewExecutionError("failed to read API key", err)
	}
	if err := validateKey(key); err != nil {
		return shared.NewExecutionError("invalid API key", err)
	}

	backend, err := secrets.NewDefaultResolver().Set(cmd.Context(), secrets.APIKeyName(provider), key)
	if err != nil {
		return shared.NewExecutionError("failed to store API key", err)
	}

	if !shared.GetQuiet() {
		fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Stored %s API key in %s", provider, backend)))
	}
	return nil
}

func runDeleteKey(cmd *cobra.Command, args []string) error {
	provider, err := checkProvider(args[0])
	if err != nil {
		return err
	}

	if err := secrets.NewDefaultResolver().Delete(cmd.Context(), secrets.APIKeyName(provider)); err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return shared.NewExecutionError(fmt.Sprintf("no stored API key for %s", provider), err)
		}
		return shared.NewExecutionError("failed to delete API key", err)
	}

	if !shared.GetQuiet() {
		fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Deleted %s API key", provider)))
	}
	return nil
}

// checkProvider accepts only providers that take an API key.
func checkProvider(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !providers.RequiresAPIKey(name) {
		return "", shared.NewInvalidConfigError(
			fmt.Sprintf("provider %q does not use an API key", name), nil)
	}
	return name, nil
}

// readKey reads the first line of r.
func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	if strings.ContainsAny(key, " \t") {
		return errors.New("API key cannot contain whitespace")
	}
	return nil
}
