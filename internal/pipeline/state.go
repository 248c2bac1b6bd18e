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

package pipeline

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Phase is the lifecycle position of a run.
type Phase string

const (
	PhaseCreated    Phase = "created"
	PhaseFetched    Phase = "fetched"
	PhaseClassified Phase = "classified"
	PhaseFinalized  Phase = "finalized"
)

// Step labels appended by the stages.
const (
	StepFetched    = "Buscou notícias"
	StepClassified = "Classificou sentimento"
)

// Metric keys, in milliseconds.
const (
	MetricFetchMS    = "buscar_noticias_ms"
	MetricClassifyMS = "avaliar_sentimento_ms"
	MetricTotalMS    = "total_ms"
)

// SentimentError is the sentinel recorded when classification gives up.
const SentimentError = "ERROR"

// RunState accumulates the results of one run.
type RunState struct {
	RunID     string   `json:"run_id"`
	Input     string   `json:"input"`
	News      string   `json:"news"`
	Sentiment string   `json:"sentiment"`
	Steps     []string `json:"steps"`

	TokensPrompt     int `json:"tokens_prompt"`
	TokensCompletion int `json:"tokens_completion"`
	TokensTotal      int `json:"tokens_total"`

	Metrics map[string]float64 `json:"metrics"`

	// Provider is the completion provider used by classify.
	Provider string `json:"provider,omitempty"`
	// Attempts counts completion attempts, retries included.
	Attempts int `json:"attempts"`
	// UsageSource is "direct", "nested" or "estimated".
	UsageSource string `json:"usage_source,omitempty"`
	// LastError is diagnostic only; no stage reads it.
	LastError string `json:"last_error,omitempty"`

	Phase Phase `json:"phase"`
}

// NewRunState creates the initial state for query.
func NewRunState(query string) RunState {
	return RunState{
		RunID:   uuid.NewString(),
		Input:   query,
		Steps:   []string{},
		Metrics: map[string]float64{},
		Phase:   PhaseCreated,
	}
}

// Clone returns a deep copy; the result shares no slice or map with s.
func (s RunState) Clone() RunState {
	c := s
	c.Steps = slices.Clone(s.Steps)
	if c.Steps == nil {
		c.Steps = []string{}
	}
	c.Metrics = maps.Clone(s.Metrics)
	if c.Metrics == nil {
		c.Metrics = map[string]float64{}
	}
	return c
}

// addTokens increases the counters. Negative deltas are ignored so the
// counters never decrease.
func (s *RunState) addTokens(prompt, completion int) {
	if prompt > 0 {
		s.TokensPrompt += prompt
	}
	if completion > 0 {
		s.TokensCompletion += completion
	}
}

// Degraded reports whether classification ended with the sentinel.
func (s RunState) Degraded() bool {
	return s.Sentiment == SentimentError
}
