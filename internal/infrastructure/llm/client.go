package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
)

// ChatClient speaks the OpenAI-compatible chat-completions protocol. Azure
// OpenAI, OpenAI and Groq all expose this surface; only endpoints and auth
// headers differ.
type ChatClient struct {
	provider      string
	chatURL       string
	embeddingsURL string
	apiKey        string
	azureAuth     bool
	httpClient    *http.Client
}

func NewOpenAIChatClient(apiKey string) *ChatClient {
	return &ChatClient{
		provider:      "openai",
		chatURL:       "https://api.openai.com/v1/chat/completions",
		embeddingsURL: "https://api.openai.com/v1/embeddings",
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func NewGroqChatClient(apiKey string) *ChatClient {
	return &ChatClient{
		provider:   "groq",
		chatURL:    "https://api.groq.com/openai/v1/chat/completions",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// NewAzureChatClient targets a deployment on an Azure OpenAI resource.
func NewAzureChatClient(endpoint, apiKey, apiVersion, deployment string) *ChatClient {
	base := strings.TrimRight(endpoint, "/")
	q := url.Values{"api-version": {apiVersion}}.Encode()
	return &ChatClient{
		provider:      "azure_openai",
		chatURL:       fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", base, deployment, q),
		embeddingsURL: fmt.Sprintf("%s/openai/deployments/text-embedding-3-small/embeddings?%s", base, q),
		apiKey:        apiKey,
		azureAuth:     true,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// NewChatClientForURL is used by tests to point the client at a stub server.
func NewChatClientForURL(provider, chatURL, apiKey string) *ChatClient {
	return &ChatClient{
		provider:      provider,
		chatURL:       chatURL,
		embeddingsURL: chatURL,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolChoiceFunction struct {
	Name string `json:"name"`
}

type ToolChoice struct {
	Type     string             `json:"type"`
	Function ToolChoiceFunction `json:"function"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
	ToolChoice     *ToolChoice     `json:"tool_choice,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

type AssistantMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

func (c *ChatClient) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	metrics.IncLLMRequest(c.provider, req.Model)

	var resp ChatCompletionResponse
	if err := c.post(ctx, c.chatURL, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		metrics.IncError("llm", "empty_choices")
		return nil, fmt.Errorf("%s response contained no choices", c.provider)
	}
	return &resp, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *ChatClient) CreateEmbedding(ctx context.Context, model, input string) ([]float64, error) {
	if c.embeddingsURL == "" {
		return nil, fmt.Errorf("%s client has no embeddings endpoint", c.provider)
	}

	var resp embeddingResponse
	if err := c.post(ctx, c.embeddingsURL, embeddingRequest{Model: model, Input: input}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%s embedding response contained no data", c.provider)
	}
	return resp.Data[0].Embedding, nil
}

func (c *ChatClient) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		metrics.IncError("llm", "create_request")
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.azureAuth {
		req.Header.Set("api-key", c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return fmt.Errorf("call %s: %w", c.provider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.IncError("llm", "decode_response")
		return fmt.Errorf("decode %s response: %w", c.provider, err)
	}
	return nil
}
