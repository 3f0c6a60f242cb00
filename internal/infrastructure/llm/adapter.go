package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
)

// Credentials carries every provider's secrets; only the selected provider's
// entries are read.
type Credentials struct {
	AzureOpenAIAPIKey     string
	AzureOpenAIEndpoint   string
	AzureOpenAIAPIVersion string
	OpenAIAPIKey          string
	AnthropicAPIKey       string
	GoogleAPIKey          string
	GroqAPIKey            string
}

const devcontainerToolName = "generate_devcontainer"

// devcontainerToolSchema is the tool-parameter schema sent to providers. It
// mirrors the validation schema; the validator stays the source of truth for
// acceptance.
var devcontainerToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "Name of the dev container"},
		"image": {"type": "string", "description": "Docker image to use"},
		"forwardPorts": {"type": "array", "items": {"type": "integer"}, "description": "Ports to forward to the local machine"},
		"customizations": {"type": "object", "description": "Tool-specific configuration"},
		"settings": {"type": "object", "description": "Editor settings for the environment"},
		"postCreateCommand": {"type": "string", "description": "Command to run after creating the container"}
	},
	"required": ["name", "image"]
}`)

// BuildAdapter wires the structured-extraction path for a provider. A failure
// here is a configuration error, never retried.
func BuildAdapter(ctx context.Context, provider entity.Provider, model string, creds Credentials, logger *slog.Logger) (repository.StructuredGenerator, error) {
	switch provider {
	case entity.ProviderAzureOpenAI:
		if creds.AzureOpenAIAPIKey == "" || creds.AzureOpenAIEndpoint == "" {
			return nil, fmt.Errorf("%w: AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT required", ErrMissingCredentials)
		}
		client := NewAzureChatClient(creds.AzureOpenAIEndpoint, creds.AzureOpenAIAPIKey, creds.AzureOpenAIAPIVersion, model)
		return newChatAdapter(client, provider, model, false, logger), nil
	case entity.ProviderOpenAI:
		if creds.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY required", ErrMissingCredentials)
		}
		return newChatAdapter(NewOpenAIChatClient(creds.OpenAIAPIKey), provider, model, false, logger), nil
	case entity.ProviderGroq:
		if creds.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: GROQ_API_KEY required", ErrMissingCredentials)
		}
		// Groq intermittently fails tool-calling on this schema shape, so the
		// adapter keeps the JSON-mode fallback armed.
		return newChatAdapter(NewGroqChatClient(creds.GroqAPIKey), provider, model, true, logger), nil
	case entity.ProviderAnthropic:
		if creds.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY required", ErrMissingCredentials)
		}
		return newAnthropicAdapter(creds.AnthropicAPIKey, model, logger), nil
	case entity.ProviderGoogle:
		if creds.GoogleAPIKey == "" {
			return nil, fmt.Errorf("%w: GOOGLE_API_KEY required", ErrMissingCredentials)
		}
		return newGoogleAdapter(ctx, creds.GoogleAPIKey, model, logger)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, string(provider))
}

// chatAdapter does structured extraction over the OpenAI-compatible protocol.
// Tool-calling is attempted first; when the provider reports the recognized
// tool-use failure signature and the fallback is armed, the same call is
// replayed once in plain JSON-extraction mode.
type chatAdapter struct {
	client       *ChatClient
	provider     entity.Provider
	model        string
	jsonFallback bool
	logger       *slog.Logger
}

func newChatAdapter(client *ChatClient, provider entity.Provider, model string, jsonFallback bool, logger *slog.Logger) *chatAdapter {
	return &chatAdapter{
		client:       client,
		provider:     provider,
		model:        model,
		jsonFallback: jsonFallback,
		logger:       logger,
	}
}

func (a *chatAdapter) GenerateDevContainer(ctx context.Context, system, prompt string, opts repository.GenerateOptions) (*entity.DevContainer, error) {
	attempts := opts.MaxParseRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		dc, err := a.once(ctx, system, prompt, opts.Temperature, false)
		if err != nil && IsToolUseFailure(err) && a.jsonFallback {
			a.logger.Warn("tool-calling failed, replaying call in JSON mode",
				"provider", string(a.provider), "err", err)
			dc, err = a.once(ctx, system, prompt, opts.Temperature, true)
		}
		if err == nil {
			return dc, nil
		}
		lastErr = err

		var extraction *ExtractionError
		if !errors.As(err, &extraction) {
			// Transport and provider errors bubble up; the orchestrator owns
			// that retry budget.
			return nil, err
		}
		a.logger.Warn("structured extraction parse failure",
			"provider", string(a.provider), "attempt", i+1, "err", err)
	}
	return nil, lastErr
}

func (a *chatAdapter) once(ctx context.Context, system, prompt string, temperature *float64, jsonMode bool) (*entity.DevContainer, error) {
	req := ChatCompletionRequest{
		Model:       a.model,
		Temperature: temperature,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	mode := "tools"
	if jsonMode {
		mode = "json"
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
		req.Messages[1].Content = prompt + "\n\nRespond with a single JSON object only, no surrounding text."
	} else {
		req.Tools = []Tool{{
			Type: "function",
			Function: ToolFunction{
				Name:        devcontainerToolName,
				Description: "Emit the devcontainer.json configuration for the repository.",
				Parameters:  devcontainerToolSchema,
			},
		}}
		req.ToolChoice = &ToolChoice{
			Type:     "function",
			Function: ToolChoiceFunction{Name: devcontainerToolName},
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := a.extractJSON(resp, jsonMode)
	if err != nil {
		return nil, &ExtractionError{Provider: string(a.provider), Mode: mode, Err: err}
	}

	var dc entity.DevContainer
	if err := json.Unmarshal([]byte(raw), &dc); err != nil {
		return nil, &ExtractionError{Provider: string(a.provider), Mode: mode, Err: err}
	}
	return &dc, nil
}

func (a *chatAdapter) extractJSON(resp *ChatCompletionResponse, jsonMode bool) (string, error) {
	msg := resp.Choices[0].Message
	if jsonMode {
		content := stripCodeFences(msg.Content)
		if content == "" {
			return "", fmt.Errorf("response content was empty")
		}
		return content, nil
	}
	for _, call := range msg.ToolCalls {
		if call.Function.Name == devcontainerToolName {
			return call.Function.Arguments, nil
		}
	}
	return "", fmt.Errorf("response carried no %s tool call", devcontainerToolName)
}

// stripCodeFences unwraps ```json ... ``` fenced content some models emit
// even in JSON mode.
func stripCodeFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
