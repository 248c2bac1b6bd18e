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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/newsmood/internal/log"
	"github.com/tombee/newsmood/internal/search"
	"github.com/tombee/newsmood/internal/tracing"
	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// Dependencies are the collaborators of a run.
type Dependencies struct {
	Searcher  search.Provider
	Invoker   Invoker
	Tokenizer tokenizer.Counter
	Scheme    string

	// CountSearchTokens also accounts query and search result tokens.
	CountSearchTokens bool
}

// Orchestrator runs the stages in order and finalizes the state.
type Orchestrator struct {
	stages  []Stage
	clock   Clock
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *tracing.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for every timing sample.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithMetrics sets the run instruments.
func WithMetrics(m *tracing.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New builds an Orchestrator. The tokenizer scheme is validated here, so
// an unknown scheme fails construction with a *errors.ConfigError rather
// than surfacing mid-run.
func New(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	if deps.Searcher == nil {
		return nil, errors.New("pipeline: searcher is required")
	}
	if deps.Invoker == nil {
		return nil, errors.New("pipeline: invoker is required")
	}
	if deps.Tokenizer == nil {
		return nil, errors.New("pipeline: tokenizer is required")
	}

	count, err := tokenizer.Bind(deps.Tokenizer, deps.Scheme)
	if err != nil {
		return nil, &nmerrors.ConfigError{
			Key:    "tokenizer.scheme",
			Reason: "cannot count tokens",
			Cause:  err,
		}
	}

	o := &Orchestrator{
		clock:  realClock{},
		logger: slog.New(slog.DiscardHandler),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(o)
	}

	var searchCount tokenizer.Func
	if deps.CountSearchTokens {
		searchCount = count
	}
	o.stages = []Stage{
		NewFetchStage(deps.Searcher, o.clock, log.WithComponent(o.logger, "fetch"), searchCount),
		NewClassifyStage(deps.Invoker, count, o.clock, log.WithComponent(o.logger, "classify")),
	}
	return o, nil
}

// Run executes one query end to end. On a stage error the partial state is
// returned with the error.
func (o *Orchestrator) Run(ctx context.Context, query string) (RunState, error) {
	state := NewRunState(query)
	logger := log.WithRun(o.logger, state.RunID)

	ctx, span := o.tracer.Start(ctx, "newsmood.run", trace.WithAttributes(
		attribute.String("run.id", state.RunID),
		attribute.String("run.query", query),
	))
	defer span.End()

	logger.Info("run started", slog.String("query", query))
	start := o.clock.Now()

	for _, stage := range o.stages {
		next, err := o.runStage(ctx, logger, stage, state)
		if err != nil {
			elapsed := o.clock.Since(start)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.metrics.RecordRun(ctx, "failed", elapsed)
			logger.Error("run failed", slog.String(log.StageKey, stage.Name()), slog.Any("error", err))
			return state, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		state = next
	}

	state = finalize(state, milliseconds(o.clock.Since(start)))

	outcome := "success"
	if state.Degraded() {
		outcome = "degraded"
		span.SetStatus(codes.Error, "classification failed")
	}
	span.SetAttributes(
		attribute.String("run.sentiment", state.Sentiment),
		attribute.Int("run.tokens_total", state.TokensTotal),
		attribute.Int("run.attempts", state.Attempts),
	)
	o.recordMetrics(ctx, state, outcome)

	logger.Info("run finished",
		slog.String("sentiment", state.Sentiment),
		slog.Int("tokens_total", state.TokensTotal),
		slog.Float64(log.DurationKey, state.Metrics[MetricTotalMS]))
	return state, nil
}

func (o *Orchestrator) runStage(ctx context.Context, logger *slog.Logger, stage Stage, state RunState) (RunState, error) {
	ctx, span := o.tracer.Start(ctx, "newsmood.stage."+stage.Name(),
		trace.WithAttributes(attribute.String("stage", stage.Name())))
	defer span.End()

	start := o.clock.Now()
	next, err := stage.Run(ctx, state)
	elapsed := o.clock.Since(start)
	o.metrics.RecordStage(ctx, stage.Name(), elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}
	if next.Degraded() {
		span.SetStatus(codes.Error, next.LastError)
	}
	logger.Debug("stage completed",
		slog.String(log.StageKey, stage.Name()),
		slog.Float64(log.DurationKey, milliseconds(elapsed)))
	return next, nil
}

func (o *Orchestrator) recordMetrics(ctx context.Context, state RunState, outcome string) {
	o.metrics.RecordRun(ctx, outcome, durationFromMS(state.Metrics[MetricTotalMS]))
	o.metrics.RecordAttempts(ctx, state.Provider, state.Attempts)
	source := state.UsageSource
	if source == "" {
		source = "estimated"
	}
	o.metrics.RecordTokens(ctx, "prompt", source, state.TokensPrompt)
	o.metrics.RecordTokens(ctx, "completion", source, state.TokensCompletion)
}

// finalize derives the token total and records the total elapsed time.
func finalize(state RunState, totalMS float64) RunState {
	next := state.Clone()
	next.TokensTotal = next.TokensPrompt + next.TokensCompletion
	next.Metrics[MetricTotalMS] = totalMS
	next.Phase = PhaseFinalized
	return next
}
