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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/newsmood/internal/commands/shared"
	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/runner"
	"github.com/tombee/newsmood/internal/tracing"
)

// overrides holds the run flags that replace config values.
type overrides struct {
	provider    string
	model       string
	tokenizer   string
	maxAttempts int
	searchText  string
	trace       bool
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var o overrides

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Search news and classify their sentiment",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: fmt.Sprintf(`Run searches the web for news matching the query and asks the
configured model whether the result is POSITIVE or NEGATIVE.

The query defaults to %q. All arguments are joined
into one query.

A completion that still fails after --max-attempts is not an error: the
sentiment is reported as ERROR and the command exits 0. Search failures
exit with code 4 and configuration problems with code 2.

Examples:
  newsmood run
  newsmood run "Petrobras resultados"
  newsmood run --provider ollama --model llama3.1:8b
  newsmood run --search-text "Inflação cai para 4,2%%" --json`, config.DefaultQuery),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), o)
		},
	}

	cmd.Flags().StringVar(&o.provider, "provider", "", "Completion provider (groq, ollama, echo)")
	cmd.Flags().StringVar(&o.model, "model", "", "Model name sent to the provider")
	cmd.Flags().StringVar(&o.tokenizer, "tokenizer", "", "Token counting scheme (model name, encoding or approx)")
	cmd.Flags().IntVar(&o.maxAttempts, "max-attempts", 0, "Total completion attempts before giving up")
	cmd.Flags().StringVar(&o.searchText, "search-text", "", "Skip the web search and classify this text")
	cmd.Flags().BoolVar(&o.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	return cmd
}

// apply copies the set overrides onto cfg.
func (o overrides) apply(cfg *config.Config) {
	if o.provider != "" {
		cfg.LLM.Provider = strings.ToLower(o.provider)
	}
	if o.model != "" {
		cfg.LLM.Model = o.model
	}
	if o.tokenizer != "" {
		cfg.Tokenizer.Scheme = o.tokenizer
	}
	if o.maxAttempts != 0 {
		cfg.LLM.MaxAttempts = o.maxAttempts
	}
	if o.searchText != "" {
		cfg.Search.Provider = "static"
		cfg.Search.StaticText = o.searchText
	}
	if o.trace {
		cfg.Observability.Tracing.Enabled = true
		cfg.Observability.Tracing.Exporter = tracing.ExporterStdout
	}
}

func runQuery(cmd *cobra.Command, query string, o overrides) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return shared.NewInvalidConfigError("invalid run options", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := shared.NewLogger(cfg)
	version, _, _ := shared.GetVersion()

	r, err := runner.New(ctx, cfg, logger, runner.WithVersion(version))
	if err != nil {
		return shared.Classify("failed to set up run", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Close(closeCtx)
	}()

	spinner := shared.NewSpinner(cmd.ErrOrStderr())
	if shared.ShowProgress(cmd.ErrOrStderr()) {
		spinner.Start("Buscando notícias e classificando sentimento")
	}
	state, runErr := r.Run(ctx, query)
	spinner.Stop()

	if runErr != nil {
		if shared.GetJSON() {
			_ = shared.EmitJSONError("run", runErr)
		}
		return shared.Classify("run failed", runErr)
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return shared.NewExecutionError("failed to encode run state", err)
		}
		return nil
	}

	renderReport(out, state)
	if state.Degraded() && !shared.GetQuiet() {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.StatusWarn.Render(
			fmt.Sprintf("classification gave up after %d attempt(s): %s", state.Attempts, state.LastError)))
	}
	return nil
}
