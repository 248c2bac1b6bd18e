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

// Package tokenizer counts tokens for named encoding schemes.
//
// Counts are used for cost accounting when a provider does not report usage,
// so they only need to approximate what the provider would bill. The same
// (text, scheme) pair always yields the same count.
package tokenizer

import (
	"fmt"
	"strings"
)

// DefaultScheme is the scheme used when none is configured.
const DefaultScheme = "gpt-4o-mini"

// Counter converts text into a token count for a named scheme.
type Counter interface {
	// CountTokens returns the number of tokens in text under scheme.
	// It fails only when scheme is not recognized; empty text yields 0.
	CountTokens(text, scheme string) (int, error)
}

// Func counts tokens for a scheme that has already been validated.
type Func func(text string) int

// UnknownSchemeError is returned for a scheme identifier the counter does not
// recognize. It is a configuration defect, not a runtime condition.
type UnknownSchemeError struct {
	Scheme string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown tokenization scheme %q", e.Scheme)
}

// Bind validates scheme against counter once and returns a Func that counts
// with it. Any later error from the counter for the same scheme would be a
// bug in the counter, so the returned Func reports 0 in that case.
func Bind(counter Counter, scheme string) (Func, error) {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		scheme = DefaultScheme
	}
	if _, err := counter.CountTokens("", scheme); err != nil {
		return nil, err
	}
	return func(text string) int {
		n, err := counter.CountTokens(text, scheme)
		if err != nil {
			return 0
		}
		return n
	}, nil
}

// Multi dispatches to the approximate counter for ApproxScheme and to the BPE
// counter for everything else.
type Multi struct {
	bpe    *BPE
	approx Approx
}

// NewMulti creates a counter that understands BPE encodings, model names and
// the approximate scheme.
func NewMulti() *Multi {
	return &Multi{bpe: NewBPE()}
}

// CountTokens implements Counter.
func (m *Multi) CountTokens(text, scheme string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(scheme), ApproxScheme) {
		return m.approx.CountTokens(text, scheme)
	}
	return m.bpe.CountTokens(text, scheme)
}
