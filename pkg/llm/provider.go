// Package llm provides the completion abstraction used by the classify stage,
// the token usage extractor, and the retrying invoker that wraps a provider.
package llm

import (
	"context"
	"time"
)

// Provider defines the interface that all completion providers implement.
// The pipeline treats it as an opaque capability: prompt in, text out.
type Provider interface {
	// Name returns the unique identifier for this provider (e.g., "groq", "ollama").
	Name() string

	// Complete sends a synchronous completion request and returns the full response.
	// This method blocks until the response is complete.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest contains all parameters for a completion request.
type CompletionRequest struct {
	// Messages is the conversation history including the current prompt.
	Messages []Message

	// Model specifies which model to use. Empty means the provider default.
	Model string

	// Temperature controls randomness (0.0 = deterministic).
	// If nil, the provider default applies.
	Temperature *float64

	// MaxTokens limits the response length. If nil, uses provider default.
	MaxTokens *int

	// Metadata contains request tracking information (correlation IDs, etc).
	Metadata map[string]string
}

// Message represents a single message in a conversation.
type Message struct {
	// Role indicates who sent this message.
	Role MessageRole

	// Content is the text content of the message.
	Content string
}

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	// MessageRoleSystem indicates a system message (context, instructions).
	MessageRoleSystem MessageRole = "system"

	// MessageRoleUser indicates a message from the user.
	MessageRoleUser MessageRole = "user"

	// MessageRoleAssistant indicates a message from the model.
	MessageRoleAssistant MessageRole = "assistant"
)

// UserPrompt builds a single-message request for prompt.
func UserPrompt(prompt string) CompletionRequest {
	return CompletionRequest{
		Messages: []Message{{Role: MessageRoleUser, Content: prompt}},
	}
}

// CompletionResponse contains the full response from a completion.
//
// Providers report token usage in one of two places. Usage is the direct
// record. Metadata carries whatever the provider returned alongside the text;
// some providers nest a usage object inside it instead. A response may carry
// neither.
type CompletionResponse struct {
	// Content is the generated text response.
	Content string

	// Usage is the direct usage record, nil when the provider did not send one.
	Usage *TokenUsage

	// Metadata is the secondary response metadata record.
	Metadata map[string]any

	// Model is the actual model ID that handled this request.
	Model string

	// RequestID is the unique identifier for this request (for tracing).
	RequestID string

	// Created is the timestamp when this response was generated.
	Created time.Time
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int

	// OutputTokens is the number of tokens in the completion.
	OutputTokens int
}

// TotalTokens returns InputTokens + OutputTokens.
func (u TokenUsage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}
