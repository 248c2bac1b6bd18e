package providers

import (
	"context"
	"strings"

	"github.com/tombee/newsmood/pkg/llm"
)

// EchoProvider answers offline by returning the last paragraph of the last
// user message. It reports no usage at all, so callers fall back to local
// token estimation for both prompt and completion.
type EchoProvider struct{}

// NewEchoProvider creates an echo provider. The config is ignored.
func NewEchoProvider(llm.ProviderConfig) (llm.Provider, error) {
	return &EchoProvider{}, nil
}

// Name returns the provider identifier.
func (p *EchoProvider) Name() string {
	return "echo"
}

// Complete echoes the prompt.
func (p *EchoProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.MessageRoleUser {
			prompt = req.Messages[i].Content
			break
		}
	}

	paragraphs := strings.Split(strings.TrimSpace(prompt), "\n\n")
	return &llm.CompletionResponse{
		Content: paragraphs[len(paragraphs)-1],
		Model:   "echo",
	}, nil
}
