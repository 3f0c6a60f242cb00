package llm_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveProvider(t *testing.T) {
	logger := discardLogger()

	cases := []struct {
		configured string
		want       entity.Provider
	}{
		{"", entity.ProviderAzureOpenAI},
		{"AzureOpenAI", entity.ProviderAzureOpenAI},
		{"azure_openai", entity.ProviderAzureOpenAI},
		{"azure-openai", entity.ProviderAzureOpenAI},
		{"openai", entity.ProviderOpenAI},
		{"Anthropic", entity.ProviderAnthropic},
		{"google", entity.ProviderGoogle},
		{"GROQ", entity.ProviderGroq},
		{"watsonx", entity.ProviderAzureOpenAI},
	}
	for _, tc := range cases {
		t.Run(tc.configured, func(t *testing.T) {
			assert.Equal(t, tc.want, llm.ResolveProvider(tc.configured, logger))
		})
	}
}

func TestResolveModelUsesProviderDefaultWhenUnset(t *testing.T) {
	logger := discardLogger()

	got := llm.ResolveModel("", entity.ProviderGroq, logger)

	assert.Equal(t, entity.DefaultModels[entity.ProviderGroq], got)
}

func TestResolveModelKeepsCompatibleOverride(t *testing.T) {
	logger := discardLogger()

	got := llm.ResolveModel("gpt-4o-mini", entity.ProviderOpenAI, logger)

	assert.Equal(t, "gpt-4o-mini", got)
}

func TestResolveModelRejectsIncompatibleOverride(t *testing.T) {
	logger := discardLogger()

	got := llm.ResolveModel("claude-3-opus-20240229", entity.ProviderOpenAI, logger)

	assert.Equal(t, entity.DefaultModels[entity.ProviderOpenAI], got)
}

func TestValidateModelForProvider(t *testing.T) {
	ok, msg := llm.ValidateModelForProvider("gemini-1.5-pro", entity.ProviderGoogle)
	assert.True(t, ok)
	assert.Empty(t, msg)

	// Version-suffixed names match by substring.
	ok, _ = llm.ValidateModelForProvider("gpt-4o-2024-08-06", entity.ProviderOpenAI)
	assert.True(t, ok)

	ok, msg = llm.ValidateModelForProvider("totally-made-up", entity.ProviderGroq)
	assert.False(t, ok)
	assert.Contains(t, msg, "totally-made-up")
	assert.Contains(t, msg, "Groq")
}

func TestRequiredEnvVars(t *testing.T) {
	vars := llm.RequiredEnvVars(entity.ProviderAzureOpenAI)

	assert.Contains(t, vars, "LLM_PROVIDER")
	assert.Contains(t, vars, "MONGO_URI")
	assert.Contains(t, vars, "AZURE_OPENAI_ENDPOINT")
	assert.Contains(t, vars, "AZURE_OPENAI_API_KEY")
	assert.NotContains(t, vars, "GROQ_API_KEY")
}

func TestSupportsEmbeddings(t *testing.T) {
	assert.True(t, llm.SupportsEmbeddings(entity.ProviderAzureOpenAI))
	assert.True(t, llm.SupportsEmbeddings(entity.ProviderOpenAI))
	assert.False(t, llm.SupportsEmbeddings(entity.ProviderAnthropic))
	assert.False(t, llm.SupportsEmbeddings(entity.ProviderGoogle))
	assert.False(t, llm.SupportsEmbeddings(entity.ProviderGroq))
}
