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

package search

import (
	"context"
)

// Static returns a fixed payload for every query. It backs offline runs
// and tests.
type Static struct {
	Text string
}

// NewStatic creates a Static provider.
func NewStatic(text string) *Static {
	return &Static{Text: text}
}

// Name returns "static".
func (s *Static) Name() string { return "static" }

// Search returns s.Text unless ctx is already done.
func (s *Static) Search(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Text, nil
}
