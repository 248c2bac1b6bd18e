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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
)

// Exit codes for newsmood commands
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitInvalidConfig   = 2
	ExitProviderError   = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for run failures
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidConfigError creates an error for bad configuration
func NewInvalidConfigError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidConfig,
		Message: msg,
		Cause:   cause,
	}
}

// NewProviderError creates an error for search or completion provider failures
func NewProviderError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitProviderError,
		Message: msg,
		Cause:   cause,
	}
}

// Classify wraps err in an ExitError whose code follows the error's type.
// Errors that already carry an exit code are returned as they are.
func Classify(msg string, err error) *ExitError {
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}

	var configErr *nmerrors.ConfigError
	var validationErr *nmerrors.ValidationError
	if errors.As(err, &configErr) || errors.As(err, &validationErr) {
		return NewInvalidConfigError(msg, err)
	}

	var searchErr *nmerrors.SearchError
	var providerErr *nmerrors.ProviderError
	if errors.As(err, &searchErr) || errors.As(err, &providerErr) {
		return NewProviderError(msg, err)
	}

	return NewExecutionError(msg, err)
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitExecutionFailed
}

// HandleExitError prints err and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	writeError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func writeError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
}

// printUserVisibleSuggestion checks if an error implements UserVisibleError
// and prints the suggestion if available.
func printUserVisibleSuggestion(w io.Writer, err error) {
	var userErr nmerrors.UserVisibleError
	if !errors.As(err, &userErr) || !userErr.IsUserVisible() {
		return
	}
	if suggestion := userErr.Suggestion(); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}
