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

package run

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/newsmood/internal/commands/shared"
	"github.com/tombee/newsmood/internal/pipeline"
)

// Report headings.
const (
	headingNews      = "--- NOTÍCIA ENCONTRADA ---"
	headingSentiment = "--- SENTIMENTO ---"
	headingSteps     = "--- PASSOS EXECUTADOS ---"
	headingTokens    = "--- USO DE TOKENS ---"
	headingMetrics   = "--- MÉTRICAS ---"
)

// metricOrder lists the stage timings first; other keys follow sorted.
var metricOrder = []string{
	pipeline.MetricFetchMS,
	pipeline.MetricClassifyMS,
	pipeline.MetricTotalMS,
}

// renderReport writes the human-readable run report.
func renderReport(w io.Writer, state pipeline.RunState) {
	heading := func(s string) {
		fmt.Fprintf(w, "\n%s\n", styled(shared.Header, s))
	}

	heading(headingNews)
	fmt.Fprintln(w, state.News)

	heading(headingSentiment)
	fmt.Fprintln(w, styled(sentimentStyle(state.Sentiment), state.Sentiment))

	heading(headingSteps)
	for i, step := range state.Steps {
		fmt.Fprintf(w, "%d. %s\n", i+1, step)
	}

	heading(headingTokens)
	fmt.Fprintf(w, "%s %d\n", styled(shared.Muted, "Prompt tokens:"), state.TokensPrompt)
	fmt.Fprintf(w, "%s %d\n", styled(shared.Muted, "Completion tokens:"), state.TokensCompletion)
	fmt.Fprintf(w, "%s %d\n", styled(shared.Muted, "Total tokens:"), state.TokensTotal)

	heading(headingMetrics)
	for _, key := range metricKeys(state.Metrics) {
		fmt.Fprintf(w, "%s %.2f\n", styled(shared.Muted, key+":"), state.Metrics[key])
	}
}

func metricKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for _, k := range metricOrder {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range maps.Keys(m) {
		if !slices.Contains(metricOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func sentimentStyle(sentiment string) lipgloss.Style {
	switch sentiment {
	case "POSITIVE":
		return shared.StatusOK.Bold(true)
	case pipeline.SentimentError:
		return shared.StatusError.Bold(true)
	case "NEGATIVE":
		return shared.StatusWarn.Bold(true)
	}
	return shared.Bold
}

func styled(style lipgloss.Style, s string) string {
	if !shared.ColorEnabled() {
		return s
	}
	return style.Render(s)
}
