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
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tombee/newsmood/pkg/llm"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// DefaultPromptPrefix precedes the news text in the classification prompt.
const DefaultPromptPrefix = "Classifique o sentimento como POSITIVE ou NEGATIVE:\n\n"

// errEmptyCompletion marks a successful call whose text was blank.
var errEmptyCompletion = errors.New("completion returned empty text")

// Invoker sends a prompt with retries. *llm.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) llm.Outcome
	Provider() llm.Provider
}

// ClassifyStage asks the model for the sentiment of the fetched news.
type ClassifyStage struct {
	invoker Invoker
	count   tokenizer.Func
	prefix  string
	clock   Clock
	logger  *slog.Logger
}

// NewClassifyStage creates a classify stage. count estimates tokens when
// the provider reports no usage and must not be nil.
func NewClassifyStage(invoker Invoker, count tokenizer.Func, clock Clock, logger *slog.Logger) *ClassifyStage {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ClassifyStage{
		invoker: invoker,
		count:   count,
		prefix:  DefaultPromptPrefix,
		clock:   clock,
		logger:  logger,
	}
}

// Name returns "classify".
func (c *ClassifyStage) Name() string { return "classify" }

// Prompt returns the exact prompt sent for news.
func (c *ClassifyStage) Prompt(news string) string {
	return c.prefix + news
}

// Run never returns an error. A terminal completion failure sets the
// sentiment sentinel and leaves the token counters untouched.
func (c *ClassifyStage) Run(ctx context.Context, state RunState) (RunState, error) {
	next := state.Clone()
	prompt := c.Prompt(next.News)

	start := c.clock.Now()
	out := c.invoker.Invoke(ctx, prompt)
	next.Metrics[MetricClassifyMS] = milliseconds(c.clock.Since(start))

	next.Provider = c.invoker.Provider().Name()
	next.Attempts += out.Attempts
	next.Steps = append(next.Steps, StepClassified)
	next.Phase = PhaseClassified

	if out.Failed() {
		next.Sentiment = SentimentError
		if out.LastErr != nil {
			next.LastError = out.LastErr.Error()
		}
		c.logger.Warn("classification failed",
			slog.Int("attempts", out.Attempts),
			slog.Any("error", out.LastErr))
		return next, nil
	}

	var counters llm.Counters
	info := llm.ExtractUsage(out.Response, &counters, c.count)
	if _, estimated := info.(llm.NoUsage); estimated {
		counters.Prompt += c.count(prompt)
	}
	next.addTokens(counters.Prompt, counters.Completion)
	next.UsageSource = llm.Source(info)

	next.Sentiment = strings.TrimSpace(out.Response.Content)
	if next.Sentiment == "" {
		next.Sentiment = SentimentError
		next.LastError = errEmptyCompletion.Error()
	}

	c.logger.Debug("sentiment classified",
		slog.String("sentiment", next.Sentiment),
		slog.String("usage_source", next.UsageSource),
		slog.Int("prompt_tokens", counters.Prompt),
		slog.Int("completion_tokens", counters.Completion))
	return next, nil
}
