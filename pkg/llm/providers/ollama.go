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

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/httpclient"
	"github.com/tombee/newsmood/pkg/llm"
)

const (
	// defaultOllamaURL is the default Ollama API endpoint
	defaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is used when the request does not name a model.
	DefaultOllamaModel = "llama3.1:8b"
)

// OllamaProvider calls a local Ollama server. Ollama reports evaluation
// counts on the response body, which map to a direct usage record.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
func NewOllamaProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	hc := httpclient.DefaultConfig()
	hc.UserAgent = "newsmood-ollama/1.0"
	hc.Logger = cfg.Logger
	// Local models can be slow to load on first use.
	hc.Timeout = 5 * time.Minute
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}

	httpClient, err := httpclient.New(hc)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &OllamaProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Complete sends a completion request to the Ollama API.
func (p *OllamaProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultOllamaModel
	}

	messages := make([]ollamaChatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, ollamaChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	chatReq := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		chatReq.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &nmerrors.ProviderError{
			Provider: p.Name(),
			Message:  "failed to reach Ollama at " + p.baseURL,
			Hint:     "Start Ollama with 'ollama serve' or set OLLAMA_HOST",
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(respBody))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, &nmerrors.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: msg}
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &nmerrors.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to parse response", Cause: err}
	}

	out := &llm.CompletionResponse{
		Content:  chatResp.Message.Content,
		Model:    chatResp.Model,
		Metadata: map[string]any{"done_reason": chatResp.DoneReason},
		Created:  chatResp.CreatedAt,
	}
	// Ollama omits the counts when the prompt is served from cache.
	if chatResp.PromptEvalCount != nil || chatResp.EvalCount != nil {
		out.Usage = &llm.TokenUsage{
			InputTokens:  deref(chatResp.PromptEvalCount),
			OutputTokens: deref(chatResp.EvalCount),
		}
	}
	return out, nil
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// ollamaChatRequest represents a request to POST /api/chat
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// ollamaChatMessage represents a single message in the chat
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatResponse represents the response from POST /api/chat
type ollamaChatResponse struct {
	Model           string            `json:"model"`
	CreatedAt       time.Time         `json:"created_at"`
	Message         ollamaChatMessage `json:"message"`
	Done            bool              `json:"done"`
	DoneReason      string            `json:"done_reason"`
	PromptEvalCount *int              `json:"prompt_eval_count"`
	EvalCount       *int              `json:"eval_count"`
}
