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

// Package runner assembles a pipeline from configuration and runs queries
// through it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tombee/newsmood/internal/config"
	"github.com/tombee/newsmood/internal/log"
	"github.com/tombee/newsmood/internal/pipeline"
	"github.com/tombee/newsmood/internal/search"
	"github.com/tombee/newsmood/internal/secrets"
	"github.com/tombee/newsmood/internal/tracing"
	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/llm"
	"github.com/tombee/newsmood/pkg/llm/providers"
	"github.com/tombee/newsmood/pkg/tokenizer"
)

// Runner owns the collaborators of one process. Runs are serialised: at
// most one query is in flight and each run owns its RunState.
type Runner struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *pipeline.Orchestrator
	telemetry    *tracing.Provider

	mu sync.Mutex
}

// options holds the collaborators that can be substituted, mainly in tests.
type options struct {
	searcher  search.Provider
	provider  llm.Provider
	tokenizer tokenizer.Counter
	resolver  *secrets.Resolver
	sleep     llm.SleepFunc
	version   string
}

// Option overrides a collaborator built from config.
type Option func(*options)

// WithSearcher replaces the configured search provider.
func WithSearcher(s search.Provider) Option {
	return func(o *options) { o.searcher = s }
}

// WithProvider replaces the configured completion provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithTokenizer replaces the token counter.
func WithTokenizer(c tokenizer.Counter) Option {
	return func(o *options) { o.tokenizer = c }
}

// WithResolver replaces the secrets resolver used to find API keys.
func WithResolver(r *secrets.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithSleep replaces the backoff sleeper of the completion invoker.
func WithSleep(s llm.SleepFunc) Option {
	return func(o *options) { o.sleep = s }
}

// WithVersion sets the service version reported on spans.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// New builds a Runner from cfg. Configuration problems come back as
// *errors.ConfigError.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &options{version: "dev"}
	for _, opt := range opts {
		opt(o)
	}

	provider := o.provider
	if provider == nil {
		p, err := newProvider(ctx, cfg, logger, o.resolver)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	searcher := o.searcher
	if searcher == nil {
		s, err := newSearcher(cfg, logger)
		if err != nil {
			return nil, err
		}
		searcher = s
	}

	counter := o.tokenizer
	if counter == nil {
		counter = tokenizer.NewMulti()
	}

	telemetry, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.Tracing.Enabled,
		ServiceName:    "newsmood",
		ServiceVersion: o.version,
		Exporter:       cfg.Observability.Tracing.Exporter,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, &nmerrors.ConfigError{Key: "observability.tracing", Reason: "cannot start tracing", Cause: err}
	}

	policy, ok := llm.ParseRetryPolicy(cfg.LLM.RetryPolicy)
	if !ok {
		return nil, &nmerrors.ConfigError{Key: "llm.retry_policy", Reason: fmt.Sprintf("unknown policy %q", cfg.LLM.RetryPolicy)}
	}
	temperature := cfg.LLM.Temperature
	invokerOpts := []llm.InvokerOption{
		llm.WithMaxAttempts(cfg.LLM.MaxAttempts),
		llm.WithBaseDelay(cfg.LLM.BaseDelay),
		llm.WithRetryPolicy(policy),
		llm.WithModel(cfg.LLM.Model, &temperature),
		llm.WithLogger(log.WithProvider(logger, provider.Name())),
	}
	if o.sleep != nil {
		invokerOpts = append(invokerOpts, llm.WithSleep(o.sleep))
	}

	orchestrator, err := pipeline.New(pipeline.Dependencies{
		Searcher:          searcher,
		Invoker:           llm.NewInvoker(provider, invokerOpts...),
		Tokenizer:         counter,
		Scheme:            cfg.Tokenizer.Scheme,
		CountSearchTokens: cfg.Pipeline.CountSearchTokens,
	},
		pipeline.WithLogger(logger),
		pipeline.WithTracer(telemetry.Tracer("github.com/tombee/newsmood/internal/pipeline")),
		pipeline.WithMetrics(telemetry.Metrics()),
	)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, err
	}

	return &Runner{
		cfg:          cfg,
		logger:       logger,
		orchestrator: orchestrator,
		telemetry:    telemetry,
	}, nil
}

// Run executes one query and pushes metrics when a pushgateway is
// configured. A push failure is logged and never fails the run.
func (r *Runner) Run(ctx context.Context, query string) (pipeline.RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if query == "" {
		query = config.DefaultQuery
	}
	state, err := r.orchestrator.Run(ctx, query)

	metrics := r.cfg.Observability.Metrics
	if metrics.PushgatewayURL != "" {
		if perr := r.telemetry.Push(ctx, metrics.PushgatewayURL, metrics.Job); perr != nil {
			r.logger.Warn("metrics push failed", slog.Any("error", perr))
		}
	}
	return state, err
}

// Close flushes telemetry.
func (r *Runner) Close(ctx context.Context) error {
	return r.telemetry.Shutdown(ctx)
}

func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger, resolver *secrets.Resolver) (llm.Provider, error) {
	name := cfg.LLM.Provider

	apiKey := cfg.LLM.APIKey
	if providers.RequiresAPIKey(name) {
		if resolver == nil {
			resolver = secrets.NewDefaultResolver()
		}
		key, source, err := resolver.ResolveAPIKey(ctx, name, apiKey)
		if err != nil {
			return nil, &nmerrors.ConfigError{Key: "llm.api_key", Reason: "cannot read API key", Cause: err}
		}
		if key == "" {
			return nil, &nmerrors.ConfigError{
				Key: "llm.api_key",
				Reason: fmt.Sprintf("no API key for %s; set %s or run 'newsmood auth set-key %s'",
					name, secrets.EnvVarFor(secrets.APIKeyName(name)), name),
			}
		}
		logger.Debug("api key resolved",
			slog.String(log.ProviderKey, name),
			slog.String("source", source),
			slog.String("key", log.SanitizeAPIKey(key)))
		apiKey = key
	}

	provider, err := providers.NewRegistry().New(name, llm.ProviderConfig{
		APIKey:        apiKey,
		RequireAPIKey: providers.RequiresAPIKey(name),
		BaseURL:       cfg.LLM.BaseURL,
		Timeout:       cfg.LLM.RequestTimeout,
		Logger:        logger,
	})
	if err != nil {
		if errors.Is(err, llm.ErrFactoryNotFound) {
			return nil, &nmerrors.ConfigError{Key: "llm.provider", Reason: "unknown provider", Cause: err}
		}
		return nil, &nmerrors.ConfigError{Key: "llm", Reason: "cannot create provider", Cause: err}
	}
	return provider, nil
}

func newSearcher(cfg *config.Config, logger *slog.Logger) (search.Provider, error) {
	switch cfg.Search.Provider {
	case "static":
		return search.NewStatic(cfg.Search.StaticText), nil
	case "duckduckgo", "":
		ddg, err := search.NewDuckDuckGo(cfg.Search.Timeout,
			search.WithMaxResults(cfg.Search.MaxResults),
			search.WithLogger(log.WithComponent(logger, "search")))
		if err != nil {
			return nil, &nmerrors.ConfigError{Key: "search", Reason: "cannot create searcher", Cause: err}
		}
		return ddg, nil
	default:
		return nil, &nmerrors.ConfigError{Key: "search.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Search.Provider)}
	}
}
