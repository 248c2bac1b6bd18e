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

// Package search fetches the news text a run classifies.
package search

import (
	"context"
	"strings"
)

// Provider returns a text payload for a query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// NoResults is returned as the payload when a search finds nothing.
const NoResults = "No good DuckDuckGo Search Result was found"

// Join concatenates result snippets into a single payload, falling back to
// the title for results without a snippet.
func Join(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		text := r.Snippet
		if text == "" {
			text = r.Title
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return NoResults
	}
	return strings.Join(parts, " ")
}
