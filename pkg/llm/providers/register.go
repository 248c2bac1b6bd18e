// Package providers contains the built-in completion providers.
package providers

import (
	"github.com/tombee/newsmood/pkg/llm"
)

// Register adds all built-in provider factories to r.
func Register(r *llm.Registry) {
	r.RegisterFactory("groq", NewGroqProvider)
	r.RegisterFactory("ollama", NewOllamaProvider)
	r.RegisterFactory("echo", NewEchoProvider)
}

// NewRegistry returns a registry holding the built-in providers.
func NewRegistry() *llm.Registry {
	r := llm.NewRegistry()
	Register(r)
	return r
}

// RequiresAPIKey reports whether the named provider needs an API key.
func RequiresAPIKey(name string) bool {
	return name == "groq"
}
