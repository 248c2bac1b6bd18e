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

/*
Package tracing wires OpenTelemetry tracing and metrics for pipeline runs.

A Provider owns an SDK tracer provider and a meter provider whose reader is
the OpenTelemetry Prometheus exporter. The exporter writes into a private
prometheus.Registry rather than the default one, so a run's metrics can be
pushed to a Prometheus pushgateway at the end of a batch invocation:

	p, err := tracing.New(ctx, tracing.Config{
	    Enabled:     true,
	    ServiceName: "newsmood",
	    Exporter:    tracing.ExporterStdout,
	})
	if err != nil {
	    return err
	}
	defer p.Shutdown(ctx)

	ctx, span := p.Tracer("newsmood/pipeline").Start(ctx, "run")
	defer span.End()

	p.Metrics().RecordRun(ctx, "success", elapsed)
	_ = p.Push(ctx, "http://pushgateway:9091", "newsmood")

Span export is optional; with tracing disabled spans are still created, so
trace IDs remain available for log correlation, but nothing is exported.
*/
package tracing
