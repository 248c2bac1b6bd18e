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

func newTestOllama(t *testing.T, handler http.HandlerFunc) llm.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOllamaProvider(llm.ProviderConfig{BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return p
}

func TestOllamaProvider_Name(t *testing.T) {
	p, err := NewOllamaProvider(llm.ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestOllamaProvider_DirectUsage(t *testing.T) {
	var got ollamaChatRequest
	p := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"POSITIVE"},"done":true,"prompt_eval_count":40,"eval_count":3}`))
	})

	temp := 0.0
	req := llm.UserPrompt("Classifique")
	req.Temperature = &temp
	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, got.Stream)
	assert.Equal(t, DefaultOllamaModel, got.Model)
	require.NotNil(t, got.Options)
	require.NotNil(t, got.Options.Temperature)

	assert.Equal(t, "POSITIVE", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, llm.DirectUsage{Prompt: 40, Completion: 3}, llm.ClassifyUsage(resp))
}

func TestOllamaProvider_CachedPromptHasNoUsage(t *testing.T) {
	p := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"NEGATIVE"},"done":true}`))
	})

	resp, err := p.Complete(context.Background(), llm.UserPrompt("p"))
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, llm.NoUsage{Text: "NEGATIVE"}, llm.ClassifyUsage(resp))
}

func TestOllamaProvider_ModelNotFound(t *testing.T) {
	p := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3.1:8b\" not found, try pulling it first"}`))
	})

	_, err := p.Complete(context.Background(), llm.UserPrompt("p"))
	var perr *nmerrors.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Contains(t, perr.Message, "not found")
	assert.False(t, perr.IsRetryable())
}
