package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
)

// googleAdapter uses Gemini's native structured output: a response schema
// plus JSON MIME type instead of tool-calling.
type googleAdapter struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var devcontainerResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":  {Type: genai.TypeString, Description: "Name of the dev container"},
		"image": {Type: genai.TypeString, Description: "Docker image to use"},
		"forwardPorts": {
			Type:        genai.TypeArray,
			Description: "Ports to forward to the local machine",
			Items:       &genai.Schema{Type: genai.TypeInteger},
		},
		"postCreateCommand": {Type: genai.TypeString, Description: "Command to run after creating the container"},
	},
	Required: []string{"name", "image"},
}

func newGoogleAdapter(ctx context.Context, apiKey, model string, logger *slog.Logger) (*googleAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &googleAdapter{client: client, model: model, logger: logger}, nil
}

func (a *googleAdapter) GenerateDevContainer(ctx context.Context, system, prompt string, opts repository.GenerateOptions) (*entity.DevContainer, error) {
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
			"provider", "google", "attempt", i+1, "err", err)
	}
	return nil, lastErr
}

func (a *googleAdapter) once(ctx context.Context, system, prompt string, temperature *float64) (*entity.DevContainer, error) {
	metrics.IncLLMRequest("google", a.model)

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		ResponseSchema:    devcontainerResponseSchema,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	if temperature != nil {
		t := float32(*temperature)
		cfg.Temperature = &t
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), cfg)
	if err != nil {
		metrics.IncError("llm", "generate_content")
		return nil, fmt.Errorf("call gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &ExtractionError{
			Provider: "google",
			Mode:     "response_schema",
			Err:      fmt.Errorf("response contained no text part"),
		}
	}

	var dc entity.DevContainer
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &dc); err != nil {
		return nil, &ExtractionError{Provider: "google", Mode: "response_schema", Err: err}
	}
	return &dc, nil
}
