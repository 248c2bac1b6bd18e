package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
)

const (
	// DefaultMaxAttempts is the total number of completion attempts.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the linear backoff unit.
	DefaultBaseDelay = 500 * time.Millisecond
)

// RetryPolicy decides whether a failed attempt may be retried.
type RetryPolicy func(error) bool

// RetryAll treats every error as retryable.
func RetryAll(error) bool { return true }

// RetryTransient retries only rate limiting, server errors and network
// failures. Anything else ends the loop after the first attempt.
func RetryTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var classifier nmerrors.ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// ParseRetryPolicy maps a config value to a policy. Empty means "all".
func ParseRetryPolicy(name string) (RetryPolicy, bool) {
	switch name {
	case "", "all":
		return RetryAll, true
	case "transient":
		return RetryTransient, true
	}
	return nil, false
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome is the result of Invoke. Either Response is set, or the call
// failed terminally and LastErr holds the final error for diagnostics.
type Outcome struct {
	Response *CompletionResponse
	Attempts int
	LastErr  error
}

// Failed reports whether all attempts were exhausted without a response.
func (o Outcome) Failed() bool {
	return o.Response == nil
}

// Invoker calls a provider with bounded retries and linear backoff.
type Invoker struct {
	provider    Provider
	maxAttempts int
	baseDelay   time.Duration
	retryable   RetryPolicy
	sleep       SleepFunc
	logger      *slog.Logger

	model       string
	temperature *float64
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithMaxAttempts sets the total attempt bound. Values below 1 are ignored.
func WithMaxAttempts(n int) InvokerOption {
	return func(i *Invoker) {
		if n >= 1 {
			i.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the backoff unit.
func WithBaseDelay(d time.Duration) InvokerOption {
	return func(i *Invoker) {
		if d >= 0 {
			i.baseDelay = d
		}
	}
}

// WithRetryPolicy sets which errors are retried.
func WithRetryPolicy(p RetryPolicy) InvokerOption {
	return func(i *Invoker) {
		if p != nil {
			i.retryable = p
		}
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to observe delays.
func WithSleep(s SleepFunc) InvokerOption {
	return func(i *Invoker) {
		if s != nil {
			i.sleep = s
		}
	}
}

// WithLogger sets the logger for attempt diagnostics.
func WithLogger(l *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithModel sets the model and temperature sent on every request.
func WithModel(model string, temperature *float64) InvokerOption {
	return func(i *Invoker) {
		i.model = model
		i.temperature = temperature
	}
}

// NewInvoker wraps provider with retry behavior.
func NewInvoker(provider Provider, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		provider:    provider,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		retryable:   RetryAll,
		sleep:       sleepContext,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Provider returns the wrapped provider.
func (i *Invoker) Provider() Provider {
	return i.provider
}

// MaxAttempts returns the configured attempt bound.
func (i *Invoker) MaxAttempts() int {
	return i.maxAttempts
}

// Backoff returns the delay after failed attempt index (0-based).
func (i *Invoker) Backoff(index int) time.Duration {
	return i.baseDelay * time.Duration(index+1)
}

// Invoke sends prompt until it succeeds or attempts run out. It never returns
// an error; callers check Outcome.Failed. A cancelled context during backoff
// ends the loop as a terminal failure.
func (i *Invoker) Invoke(ctx context.Context, prompt string) Outcome {
	req := UserPrompt(prompt)
	req.Model = i.model
	req.Temperature = i.temperature

	var out Outcome
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		out.Attempts = attempt + 1
		i.logger.Debug("completion attempt",
			slog.String("provider", i.provider.Name()),
			slog.Int("attempt", out.Attempts))

		resp, err := i.provider.Complete(ctx, req)
		if err == nil && resp != nil {
			out.Response = resp
			out.LastErr = nil
			return out
		}
		if err == nil {
			err = errors.New("provider returned no response")
		}
		out.LastErr = err

		i.logger.Warn("completion attempt failed",
			slog.String("provider", i.provider.Name()),
			slog.Int("attempt", out.Attempts),
			slog.Int("max_attempts", i.maxAttempts),
			slog.Any("error", err))

		if attempt == i.maxAttempts-1 || !i.retryable(err) {
			break
		}
		if serr := i.sleep(ctx, i.Backoff(attempt)); serr != nil {
			out.LastErr = errors.Join(err, serr)
			break
		}
	}
	return out
}
