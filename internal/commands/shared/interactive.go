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
	"io"
	"os"
	"strconv"

	"golang.org/x/term"
)

// NonInteractiveEnvVar turns off prompts when set to a true value.
const NonInteractiveEnvVar = "NEWSMOOD_NON_INTERACTIVE"

// CanPrompt reports whether "auth set-key" may show a password prompt on in.
// Otherwise the key is read from in as piped text.
func CanPrompt(in io.Reader) bool {
	if envTrue(NonInteractiveEnvVar) || envTrue("CI") {
		return false
	}
	return isTerminal(in)
}

// ShowProgress reports whether the run spinner should draw on w. JSON and
// quiet output never get one.
func ShowProgress(w io.Writer) bool {
	if GetJSON() || GetQuiet() {
		return false
	}
	return isTerminal(w)
}

func envTrue(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
