package llm

import (
	"context"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

const defaultEmbeddingModel = "text-embedding-3-small"

// EmbeddingClient embeds accepted artifacts for similarity search. Only the
// OpenAI-family providers expose an embeddings endpoint.
type EmbeddingClient struct {
	client *ChatClient
	model  string
}

// NewEmbeddingClient returns nil (no error) when the provider does not
// support embeddings; callers treat a nil client as "skip embedding".
func NewEmbeddingClient(provider entity.Provider, creds Credentials) *EmbeddingClient {
	if !SupportsEmbeddings(provider) {
		return nil
	}
	switch provider {
	case entity.ProviderAzureOpenAI:
		if creds.AzureOpenAIAPIKey == "" || creds.AzureOpenAIEndpoint == "" {
			return nil
		}
		client := NewAzureChatClient(creds.AzureOpenAIEndpoint, creds.AzureOpenAIAPIKey, creds.AzureOpenAIAPIVersion, "")
		return &EmbeddingClient{client: client, model: defaultEmbeddingModel}
	case entity.ProviderOpenAI:
		if creds.OpenAIAPIKey == "" {
			return nil
		}
		return &EmbeddingClient{client: NewOpenAIChatClient(creds.OpenAIAPIKey), model: defaultEmbeddingModel}
	}
	return nil
}

func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.client.CreateEmbedding(ctx, e.model, text)
}
