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

	nmerrors "github.com/tombee/newsmood/pkg/errors"
)

// Error codes for structured JSON output
const (
	// Execution errors (E100-E199)
	ErrorCodeProviderFailed = "E101" // Completion provider failed
	ErrorCodeSearchFailed   = "E102" // Search provider failed
	ErrorCodeRunFailed      = "E103" // Run failed for another reason

	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E202" // Invalid configuration
	ErrorCodeMissingAPIKey = "E203" // Missing API key
)

// mapExitErrorToCode maps ExitError codes to JSON error codes
func mapExitErrorToCode(exitErr *ExitError) string {
	if exitErr == nil {
		return ""
	}

	switch exitErr.Code {
	case ExitInvalidConfig:
		var configErr *nmerrors.ConfigError
		if errors.As(exitErr, &configErr) && configErr.Key == "llm.api_key" {
			return ErrorCodeMissingAPIKey
		}
		return ErrorCodeInvalidConfig
	case ExitProviderError:
		var searchErr *nmerrors.SearchError
		if errors.As(exitErr, &searchErr) {
			return ErrorCodeSearchFailed
		}
		return ErrorCodeProviderFailed
	default:
		return ErrorCodeRunFailed
	}
}
