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
	// defaultGroqURL is the OpenAI-compatible Groq endpoint.
	defaultGroqURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is used when the request does not name a model.
	DefaultGroqModel = "llama-3.1-8b-instant"

	maxErrorBody = 4096
)

// GroqProvider talks to any OpenAI-compatible chat completions endpoint.
//
// The usage object is not mapped to a direct usage record. It is passed
// through as response metadata under "token_usage", the same place chat
// client libraries put it, so the nested tier of the usage extractor
// handles it.
type GroqProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGroqProvider creates a Groq provider from cfg.
func NewGroqProvider(cfg llm.ProviderConfig) (llm.Provider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGroqURL
	}

	hc := httpclient.DefaultConfig()
	hc.UserAgent = "newsmood-groq/1.0"
	hc.Logger = cfg.Logger
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	} else {
		hc.Timeout = 60 * time.Second
	}

	client, err := httpclient.New(hc)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &GroqProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: client,
	}, nil
}

// Name returns the provider identifier.
func (p *GroqProvider) Name() string {
	return "groq"
}

// Complete sends a chat completion request.
func (p *GroqProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultGroqModel
	}

	chatReq := openAIChatRequest{
		Model:       model,
		Messages:    make([]openAIMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		chatReq.Messages = append(chatReq.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &nmerrors.ProviderError{Provider: p.Name(), Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	requestID := resp.Header.Get("X-Request-Id")
	if resp.StatusCode != http.StatusOK {
		return nil, p.statusError(resp, requestID)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &nmerrors.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to read response", RequestID: requestID, Cause: err}
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, &nmerrors.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "failed to parse response", RequestID: requestID, Cause: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &nmerrors.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: "response has no choices", RequestID: requestID}
	}

	if requestID == "" {
		requestID = chatResp.ID
	}
	choice := chatResp.Choices[0]

	metadata := map[string]any{
		"model_name":    chatResp.Model,
		"finish_reason": choice.FinishReason,
	}
	// Decoded generically so malformed usage reaches the extractor as-is.
	var envelope struct {
		Usage any `json:"usage"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Usage != nil {
		metadata["token_usage"] = envelope.Usage
	}

	out := &llm.CompletionResponse{
		Content:   choice.Message.Content,
		Metadata:  metadata,
		Model:     chatResp.Model,
		RequestID: requestID,
	}
	if chatResp.Created > 0 {
		out.Created = time.Unix(chatResp.Created, 0)
	}
	return out, nil
}

func (p *GroqProvider) statusError(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(body))
	var apiErr openAIErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &nmerrors.ProviderError{
		Provider:   p.Name(),
		StatusCode: resp.StatusCode,
		Message:    msg,
		RequestID:  requestID,
	}
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
