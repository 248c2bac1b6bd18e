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
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantJSON string
	}{
		{"config", &nmerrors.ConfigError{Key: "llm.provider", Reason: "unknown"}, ExitInvalidConfig, ErrorCodeInvalidConfig},
		{"missing key", &nmerrors.ConfigError{Key: "llm.api_key", Reason: "missing"}, ExitInvalidConfig, ErrorCodeMissingAPIKey},
		{"validation", &nmerrors.ValidationError{Field: "query", Message: "empty"}, ExitInvalidConfig, ErrorCodeInvalidConfig},
		{"search", fmt.Errorf("stage fetch: %w", &nmerrors.SearchError{Provider: "duckduckgo", Cause: errors.New("x")}), ExitProviderError, ErrorCodeSearchFailed},
		{"provider", &nmerrors.ProviderError{Provider: "groq", StatusCode: 401}, ExitProviderError, ErrorCodeProviderFailed},
		{"other", errors.New("boom"), ExitExecutionFailed, ErrorCodeRunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitErr := Classify("run failed", tt.err)
			require.NotNil(t, exitErr)
			assert.Equal(t, tt.wantCode, exitErr.Code)
			assert.Equal(t, tt.wantCode, ExitCode(exitErr))
			assert.Equal(t, tt.wantJSON, mapExitErrorToCode(exitErr))
			assert.ErrorIs(t, exitErr, tt.err)
		})
	}
}

func TestClassify_KeepsExitError(t *testing.T) {
	orig := NewProviderError("x", nil)
	assert.Same(t, orig, Classify("wrapped", fmt.Errorf("ctx: %w", orig)))
	assert.Nil(t, Classify("x", nil))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitExecutionFailed, ExitCode(errors.New("plain")))
	assert.Equal(t, ExitInvalidConfig, ExitCode(fmt.Errorf("wrap: %w", NewInvalidConfigError("bad", nil))))
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "bad config", NewInvalidConfigError("bad config", nil).Error())
	assert.Equal(t, "run failed: boom", NewExecutionError("run failed", errors.New("boom")).Error())
}

func TestWriteError_Suggestion(t *testing.T) {
	var buf bytes.Buffer
	err := Classify("run failed", &nmerrors.ProviderError{Provider: "groq", StatusCode: 401, Message: "invalid key"})

	writeError(&buf, err)

	assert.Contains(t, buf.String(), "Error: run failed")
	assert.Contains(t, buf.String(), "Suggestion: ")
	assert.Contains(t, buf.String(), "newsmood auth set-key groq")
}

func TestWriteError_NoSuggestion(t *testing.T) {
	var buf bytes.Buffer
	writeError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestNewJSONError(t *testing.T) {
	je := NewJSONError(&nmerrors.ProviderError{Provider: "groq", StatusCode: 429, Message: "slow down"})
	assert.Equal(t, ErrorCodeProviderFailed, je.Code)
	assert.NotEmpty(t, je.Suggestion)

	var buf bytes.Buffer
	require.NoError(t, emitJSON(&buf, errorResponse{
		JSONResponse: JSONResponse{Version: "1.0", Command: "run"},
		Errors:       []JSONError{je},
	}))
	assert.Contains(t, buf.String(), `"@version": "1.0"`)
	assert.Contains(t, buf.String(), `"code": "E101"`)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "12s", formatElapsed(12*time.Second))
	assert.Equal(t, "2m", formatElapsed(2*time.Minute))
	assert.Equal(t, "1m 23s", formatElapsed(83*time.Second))
}
