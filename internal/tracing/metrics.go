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

package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records pipeline run instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	runsTotal     metric.Int64Counter
	attemptsTotal metric.Int64Counter
	tokensTotal   metric.Int64Counter

	runDuration   metric.Float64Histogram
	stageDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on the given meter provider.
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	meter := meterProvider.Meter("newsmood")
	m := &Metrics{}

	var err error
	m.runsTotal, err = meter.Int64Counter(
		"newsmood_runs_total",
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.attemptsTotal, err = meter.Int64Counter(
		"newsmood_completion_attempts_total",
		metric.WithDescription("Total number of completion attempts, retries included"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.tokensTotal, err = meter.Int64Counter(
		"newsmood_tokens_total",
		metric.WithDescription("Total number of tokens accounted"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	m.runDuration, err = meter.Float64Histogram(
		"newsmood_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.stageDuration, err = meter.Float64Histogram(
		"newsmood_stage_duration_seconds",
		metric.WithDescription("Stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun counts a finished run. Outcome is "success", "degraded" (the
// classifier gave up) or "failed".
func (m *Metrics) RecordRun(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordStage records one stage duration.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordAttempts adds n completion attempts against provider.
func (m *Metrics) RecordAttempts(ctx context.Context, provider string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attemptsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordTokens adds n tokens of kind ("prompt" or "completion") whose count
// came from source ("direct", "nested" or "estimated").
func (m *Metrics) RecordTokens(ctx context.Context, kind, source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("source", source),
	))
}
