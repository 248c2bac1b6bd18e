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

package tokenizer

import "strings"

// ApproxScheme names the character-ratio estimator.
const ApproxScheme = "approx"

// Approx estimates tokens as one per four bytes, rounded up.
type Approx struct{}

// CountTokens implements Counter.
func (Approx) CountTokens(text, scheme string) (int, error) {
	if !strings.EqualFold(strings.TrimSpace(scheme), ApproxScheme) {
		return 0, &UnknownSchemeError{Scheme: scheme}
	}
	if len(text) == 0 {
		return 0, nil
	}
	return (len(text) + 3) / 4, nil
}
