package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/llm"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGroqProvider(llm.ProviderConfig{APIKey: "gsk_test", BaseURL: server.URL})
	require.NoError(t, err)
	return p
}

func TestGroqProvider_Complete(t *testing.T) {
	var got openAIChatRequest
	var auth string
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req_abc")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama-3.1-8b-instant",
			"created": 1700000000,
			"choices": [{"message": {"role": "assistant", "content": "  POSITIVE\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 3, "total_tokens": 43}
		}`))
	})

	temp := 0.0
	req := llm.UserPrompt("Classifique")
	req.Temperature = &temp

	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer gsk_test", auth)
	assert.Equal(t, DefaultGroqModel, got.Model)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.0, *got.Temperature)

	assert.Equal(t, "  POSITIVE\n", resp.Content, "content is returned untrimmed")
	assert.Equal(t, "req_abc", resp.RequestID)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, "stop", resp.Metadata["finish_reason"])

	info := llm.ClassifyUsage(resp)
	assert.Equal(t, llm.NestedUsage{Prompt: 40, Completion: 3, Key: "token_usage"}, info)
}

func TestGroqProvider_NoUsage(t *testing.T) {
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","model":"m","choices":[{"message":{"role":"assistant","content":"NEGATIVE"}}]}`))
	})

	resp, err := p.Complete(context.Background(), llm.UserPrompt("p"))
	require.NoError(t, err)
	assert.Equal(t, "x", resp.RequestID)
	assert.Equal(t, llm.NoUsage{Text: "NEGATIVE"}, llm.ClassifyUsage(resp))
}

func TestGroqProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`, "Invalid API Key", false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, "Rate limit reached", true},
		{"server error plain body", http.StatusBadGateway, `upstream down`, "upstream down", true},
		{"empty body", http.StatusServiceUnavailable, ``, "Service Unavailable", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Complete(context.Background(), llm.UserPrompt("p"))
			var perr *nmerrors.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.wantMsg, perr.Message)
			assert.Equal(t, tt.retryable, perr.IsRetryable())
		})
	}
}

func TestGroqProvider_NoChoices(t *testing.T) {
	p := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	_, err := p.Complete(context.Background(), llm.UserPrompt("p"))
	assert.ErrorContains(t, err, "no choices")
}

func TestGroqProvider_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p, err := NewGroqProvider(llm.ProviderConfig{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), llm.UserPrompt("p"))
	var perr *nmerrors.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.IsRetryable())
}
