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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/newsmood/internal/commands/shared"
	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/pipeline"
)

// echoSetup points the commands at a config using the echo provider.
func echoSetup(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("NEWSMOOD_PROVIDER", "")
	t.Setenv("NEWSMOOD_TOKENIZER", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: echo\ntokenizer:\n  scheme: approx\n"), 0o600))
	t.Setenv(shared.ConfigEnvVar, path)
}

// execute runs "newsmood run args..." under a root carrying the global flags.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "newsmood", SilenceUsage: true, SilenceErrors: true}
	shared.BindGlobalFlags(root.PersistentFlags())
	root.AddCommand(NewCommand())

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"run"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	assert.Equal(t, "run [query]", cmd.Use)
	for _, flag := range []string{"provider", "model", "tokenizer", "max-attempts", "search-text", "trace"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "--%s", flag)
	}
}

func TestRun_Report(t *testing.T) {
	echoSetup(t)

	out, err := execute(t, "--search-text", "POSITIVE", "inflação")
	require.NoError(t, err)

	for _, h := range []string{headingNews, headingSentiment, headingSteps, headingTokens, headingMetrics} {
		assert.Contains(t, out, h)
	}
	assert.Contains(t, out, "1. "+pipeline.StepFetched)
	assert.Contains(t, out, "2. "+pipeline.StepClassified)
	assert.Contains(t, out, "Total tokens:")
	assert.Contains(t, out, pipeline.MetricTotalMS+":")
	assert.True(t, strings.Index(out, headingNews) < strings.Index(out, headingMetrics))
}

func TestRun_JSON(t *testing.T) {
	echoSetup(t)

	out, err := execute(t, "--json", "--search-text", "NEGATIVE")
	require.NoError(t, err)

	var state pipeline.RunState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, config.DefaultQuery, state.Input)
	assert.Equal(t, "NEGATIVE", state.Sentiment)
	assert.Equal(t, pipeline.PhaseFinalized, state.Phase)
	assert.Equal(t, state.TokensPrompt+state.TokensCompletion, state.TokensTotal)
}

func TestRun_InvalidOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown provider", []string{"--provider", "openai"}},
		{"unknown tokenizer", []string{"--tokenizer", "llama-3"}},
		{"negative attempts", []string{"--max-attempts", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			echoSetup(t)

			_, err := execute(t, append(tt.args, "--search-text", "x")...)
			var exitErr *shared.ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, shared.ExitInvalidConfig, exitErr.Code)
		})
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := config.Default()
	overrides{
		provider:    "OLLAMA",
		model:       "llama3.1:8b",
		tokenizer:   "cl100k_base",
		maxAttempts: 5,
		searchText:  "texto",
		trace:       true,
	}.apply(cfg)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.1:8b", cfg.LLM.Model)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer.Scheme)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	assert.Equal(t, "static", cfg.Search.Provider)
	assert.Equal(t, "texto", cfg.Search.StaticText)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Tracing.Exporter)
}

func TestRenderReport(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	state := pipeline.RunState{
		News:             "Inflação cai",
		Sentiment:        "POSITIVE",
		Steps:            []string{pipeline.StepFetched, pipeline.StepClassified},
		TokensPrompt:     40,
		TokensCompletion: 3,
		TokensTotal:      43,
		Metrics: map[string]float64{
			pipeline.MetricTotalMS:    12.346,
			pipeline.MetricFetchMS:    5,
			pipeline.MetricClassifyMS: 7.3,
			"extra_ms":                1,
		},
	}

	var buf bytes.Buffer
	renderReport(&buf, state)
	out := buf.String()

	assert.Contains(t, out, "Prompt tokens: 40\n")
	assert.Contains(t, out, "Completion tokens: 3\n")
	assert.Contains(t, out, "Total tokens: 43\n")
	assert.Contains(t, out, "buscar_noticias_ms: 5.00\n"+
		"avaliar_sentimento_ms: 7.30\n"+
		"total_ms: 12.35\n"+
		"extra_ms: 1.00\n")
}
