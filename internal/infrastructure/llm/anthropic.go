package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// anthropicAdapter uses the native messages API with a forced tool so the
// model's output is the tool input object rather than free text.
type anthropicAdapter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newAnthropicAdapter(apiKey, model string, logger *slog.Logger) *anthropicAdapter {
	return &anthropicAdapter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

func (a *anthropicAdapter) GenerateDevContainer(ctx context.Context, system, prompt string, opts repository.GenerateOptions) (*entity.DevContainer, error) {
	attempts := opts.MaxParseRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		dc, err := a.once(ctx, system, prompt, opts.Temperature)
		if err == nil {
			return dc, nil
		}
		lastErr = err

		var extraction *ExtractionError
		if !errors.As(err, &extraction) {
			return nil, err
		}
		a.logger.Warn("structured extraction parse failure",
			"provider", "anthropic", "attempt", i+1, "err", err)
	}
	return nil, lastErr
}

func (a *anthropicAdapter) once(ctx context.Context, system, prompt string, temperature *float64) (*entity.DevContainer, error) {
	metrics.IncLLMRequest("anthropic", a.model)

	reqBody := anthropicRequest{
		Model:       a.model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Temperature: temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Tools: []anthropicTool{{
			Name:        devcontainerToolName,
			Description: "Emit the devcontainer.json configuration for the repository.",
			InputSchema: devcontainerToolSchema,
		}},
		ToolChoice: &anthropicToolChoice{Type: "tool", Name: devcontainerToolName},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return nil, fmt.Errorf("call anthropic: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, &APIError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.IncError("llm", "decode_response")
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}

	for _, block := range parsed.Content {
		if block.Type == "tool_use" && block.Name == devcontainerToolName {
			var dc entity.DevContainer
			if err := json.Unmarshal(block.Input, &dc); err != nil {
				return nil, &ExtractionError{Provider: "anthropic", Mode: "tool_use", Err: err}
			}
			return &dc, nil
		}
	}
	return nil, &ExtractionError{
		Provider: "anthropic",
		Mode:     "tool_use",
		Err:      fmt.Errorf("response carried no %s tool_use block", devcontainerToolName),
	}
}
