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
	"fmt"
	"log/slog"

	"github.com/tombee/newsmood/internal/search"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// FetchStage retrieves the news payload for the run's query.
type FetchStage struct {
	searcher search.Provider
	clock    Clock
	logger   *slog.Logger

	// count is set when search tokens are accounted: query tokens as
	// prompt, result tokens as completion.
	count tokenizer.Func
}

// NewFetchStage creates a fetch stage over searcher.
func NewFetchStage(searcher search.Provider, clock Clock, logger *slog.Logger, count tokenizer.Func) *FetchStage {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FetchStage{searcher: searcher, clock: clock, logger: logger, count: count}
}

// Name returns "fetch".
func (f *FetchStage) Name() string { return "fetch" }

// Run calls the searcher once. Only the search call is timed. Errors are
// returned unretried.
func (f *FetchStage) Run(ctx context.Context, state RunState) (RunState, error) {
	start := f.clock.Now()
	news, err := f.searcher.Search(ctx, state.Input)
	elapsed := f.clock.Since(start)
	if err != nil {
		return state, fmt.Errorf("search %s: %w", f.searcher.Name(), err)
	}

	next := state.Clone()
	next.News = news
	next.Metrics[MetricFetchMS] = milliseconds(elapsed)
	if f.count != nil {
		next.addTokens(f.count(next.Input), f.count(news))
	}
	next.Steps = append(next.Steps, StepFetched)
	next.Phase = PhaseFetched

	f.logger.Debug("news fetched",
		slog.Int("chars", len(news)),
		slog.Float64("duration_ms", next.Metrics[MetricFetchMS]))
	return next, nil
}
