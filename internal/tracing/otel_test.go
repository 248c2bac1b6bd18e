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
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func gatheredNames(t *testing.T, p *Provider) []string {
	t.Helper()
	families, err := p.Gatherer().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func hasPrefix(names []string, prefix string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func TestNew_DisabledStillRecordsSpans(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()

	p, err := New(ctx, Config{}, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	_, span := p.Tracer("test").Start(ctx, "run")
	assert.True(t, span.SpanContext().TraceID().IsValid())
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "run", ended[0].Name())
}

func TestNew_StdoutExporter(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	p, err := New(ctx, Config{Enabled: true, Exporter: ExporterStdout, Writer: &buf})
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(ctx, "classify")
	span.End()
	require.NoError(t, p.Shutdown(ctx))

	assert.Contains(t, buf.String(), `"Name": "classify"`)
}

func TestNew_UnknownExporter(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown exporter type")
}

func TestMetrics_Gathered(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	m := p.Metrics()
	m.RecordRun(ctx, "success", 1500*time.Millisecond)
	m.RecordStage(ctx, "fetch", 200*time.Millisecond)
	m.RecordAttempts(ctx, "groq", 2)
	m.RecordTokens(ctx, "prompt", "direct", 40)

	names := gatheredNames(t, p)
	assert.True(t, hasPrefix(names, "newsmood_runs"), names)
	assert.True(t, hasPrefix(names, "newsmood_stage_duration_seconds"), names)
	assert.True(t, hasPrefix(names, "newsmood_completion_attempts"), names)
	assert.True(t, hasPrefix(names, "newsmood_tokens"), names)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), "failed", time.Second)
		m.RecordStage(context.Background(), "fetch", time.Second)
		m.RecordAttempts(context.Background(), "groq", 1)
		m.RecordTokens(context.Background(), "prompt", "direct", 1)
	})
}

func TestPush(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	p, err := New(ctx, Config{})
	require.NoError(t, err)
	defer p.Shutdown(ctx)
	p.Metrics().RecordRun(ctx, "success", time.Second)

	require.NoError(t, p.Push(ctx, srv.URL, "newsmood"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/newsmood", path)
	assert.NotEmpty(t, body)
}

func TestPush_EmptyURLIsNoop(t *testing.T) {
	assert.NoError(t, Push(context.Background(), "", "job", nil))
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	p, err := New(ctx, Config{})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	assert.ErrorContains(t, p.Push(ctx, srv.URL, "newsmood"), "failed to push metrics")
}

func TestInsecureEndpoint(t *testing.T) {
	assert.True(t, insecureEndpoint(""))
	assert.True(t, insecureEndpoint("localhost:4318"))
	assert.True(t, insecureEndpoint("127.0.0.1:4317"))
	assert.True(t, insecureEndpoint("http://[::1]:4318"))
	assert.False(t, insecureEndpoint("otel.example.com:4317"))
}
