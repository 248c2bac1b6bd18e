package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/newsmood/pkg/llm"
)

func TestEchoProvider_ReturnsLastParagraph(t *testing.T) {
	p, err := NewEchoProvider(llm.ProviderConfig{})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), llm.UserPrompt("Classifique o sentimento:\n\nInflação cai"))
	require.NoError(t, err)
	assert.Equal(t, "Inflação cai", resp.Content)
	assert.Equal(t, llm.NoUsage{Text: "Inflação cai"}, llm.ClassifyUsage(resp))
}

func TestEchoProvider_CancelledContext(t *testing.T) {
	p, _ := NewEchoProvider(llm.ProviderConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Complete(ctx, llm.UserPrompt("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"echo", "groq", "ollama"}, r.ListFactories())

	_, err := r.New("groq", llm.ProviderConfig{RequireAPIKey: RequiresAPIKey("groq")})
	assert.Error(t, err)

	p, err := r.New("echo", llm.ProviderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "echo", p.Name())
}
