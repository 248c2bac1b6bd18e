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
	"encoding/json"
	"errors"
	"io"
	"os"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError represents a structured error with code, message and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// emitJSON marshals a response to JSON and writes it to w
func emitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONTo writes response to w, usually cmd.OutOrStdout().
func EmitJSONTo(w io.Writer, response any) error {
	return emitJSON(w, response)
}

// errorResponse is the envelope of a failed command
type errorResponse struct {
	JSONResponse
	Errors []JSONError `json:"errors"`
}

// NewJSONError builds the JSON error entry for err.
func NewJSONError(err error) JSONError {
	je := JSONError{Code: ErrorCodeRunFailed, Message: err.Error()}
	if exitErr := Classify("", err); exitErr != nil {
		je.Code = mapExitErrorToCode(exitErr)
	}
	var userErr nmerrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.IsUserVisible() {
		je.Suggestion = userErr.Suggestion()
	}
	return je
}

// EmitJSONError writes a failure envelope for command to stdout
func EmitJSONError(command string, err error) error {
	return emitJSON(os.Stdout, errorResponse{
		JSONResponse: JSONResponse{Version: "1.0", Command: command, Success: false},
		Errors:       []JSONError{NewJSONError(err)},
	})
}
