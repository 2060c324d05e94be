package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querymate-be/pkg/llm/huggingface"
	"querymate-be/pkg/llm/ollama"
)

func TestNewLLMProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewLLMProvider(ctx, ProviderConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, p)

	p, err = NewLLMProvider(ctx, ProviderConfig{Provider: "huggingface", APIKey: "hf_x"})
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	_, err = NewLLMProvider(ctx, ProviderConfig{Provider: "huggingface"})
	assert.Error(t, err)

	_, err = NewLLMProvider(ctx, ProviderConfig{Provider: "gemini"})
	assert.Error(t, err, "gemini needs an api key")

	_, err = NewLLMProvider(ctx, ProviderConfig{Provider: "gpt-42"})
	assert.ErrorContains(t, err, "unsupported")
}
