package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/llm"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/validator"
)

const (
	// DefaultContextTokenBudget is the prompt ceiling for repository context.
	DefaultContextTokenBudget = 126000
	// DefaultMaxRetries yields four total attempts: one initial plus three
	// retries.
	DefaultMaxRetries = 3

	invokeTemperature = 0.1
	parseRetries      = 2
)

// Validator accepts or rejects a serialized candidate.
type Validator interface {
	Validate(jsonText string) validator.Result
}

// Budgeter measures and truncates context against the token budget.
type Budgeter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// GenerationExhaustedError is returned when every attempt produced either an
// invocation failure or a schema-invalid candidate. It carries only the last
// diagnostic; per-attempt detail lives in the logs.
type GenerationExhaustedError struct {
	Attempts       int
	LastDiagnostic string
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("failed to generate valid devcontainer.json after %d attempts: %s",
		e.Attempts, e.LastDiagnostic)
}

// GenerationService drives the generation pipeline for one request at a
// time: check for an embedded artifact, build the prompt once, then invoke
// and validate until a candidate is accepted or attempts run out.
type GenerationService struct {
	generator   repository.StructuredGenerator
	validator   Validator
	budgeter    Budgeter
	logger      *slog.Logger
	model       string
	tokenBudget int
	maxRetries  int
	backoffBase time.Duration
}

type GenerationOption func(*GenerationService)

func WithTokenBudget(n int) GenerationOption {
	return func(s *GenerationService) { s.tokenBudget = n }
}

func WithMaxRetries(n int) GenerationOption {
	return func(s *GenerationService) { s.maxRetries = n }
}

// WithBackoffBase sets the base delay between attempts. Zero disables
// backoff, which tests rely on.
func WithBackoffBase(d time.Duration) GenerationOption {
	return func(s *GenerationService) { s.backoffBase = d }
}

func NewGenerationService(
	generator repository.StructuredGenerator,
	val Validator,
	budgeter Budgeter,
	model string,
	logger *slog.Logger,
	opts ...GenerationOption,
) *GenerationService {
	s := &GenerationService{
		generator:   generator,
		validator:   val,
		budgeter:    budgeter,
		logger:      logger,
		model:       model,
		tokenBudget: DefaultContextTokenBudget,
		maxRetries:  DefaultMaxRetries,
		backoffBase: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the pipeline for one request. Configuration errors surface
// immediately; invocation and validation failures consume attempts until the
// budget of maxRetries+1 is exhausted.
func (s *GenerationService) Generate(ctx context.Context, req entity.GenerateRequest) (*entity.GenerationResult, error) {
	existing, hasExisting := entity.ExtractExistingDevContainer(req.Context)
	if hasExisting && !req.Regenerate && req.DevContainerURL != nil {
		s.logger.Info("using existing devcontainer.json", "url", *req.DevContainerURL)
		return &entity.GenerationResult{
			JSON:      existing,
			OriginURL: req.DevContainerURL,
			Generated: false,
			Tokens:    s.budgeter.Count(req.Context),
			Model:     s.model,
		}, nil
	}

	truncated := s.budgeter.Truncate(req.Context, s.tokenBudget)
	tokens := s.budgeter.Count(truncated)
	metrics.ObserveContextTokens(tokens)

	prompt, err := entity.RenderDevContainerPrompt(entity.PromptData{
		RepoURL:              req.RepoURL,
		RepoContext:          truncated,
		ExistingDevContainer: existing,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = s.maxRetries
	}

	// The prompt stays fixed across retries; only the stochastic model
	// output differs between attempts.
	var lastDiagnostic string
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		s.logger.Debug("generation attempt", "attempt", attempt+1, "total", maxRetries+1)

		candidate, err := s.invoke(ctx, prompt)
		if err != nil {
			if llm.Classify(err) == llm.KindConfiguration {
				return nil, err
			}
			metrics.IncGenerationAttempt("invocation_failed")
			lastDiagnostic = err.Error()
			s.logger.Warn("invocation failed", "attempt", attempt+1, "err", err)
			continue
		}

		serialized, err := json.MarshalIndent(candidate, "", "  ")
		if err != nil {
			metrics.IncGenerationAttempt("invocation_failed")
			lastDiagnostic = fmt.Sprintf("serialize candidate: %v", err)
			s.logger.Warn("candidate serialization failed", "attempt", attempt+1, "err", err)
			continue
		}

		result := s.validator.Validate(string(serialized))
		if result.Valid {
			metrics.IncGenerationAttempt("accepted")
			metrics.IncValidationRun("pass")
			s.logger.Info("generated and validated devcontainer.json",
				"attempts", attempt+1, "tokens", tokens, "model", s.model)
			return &entity.GenerationResult{
				JSON:      string(serialized),
				OriginURL: nil,
				Generated: true,
				Attempts:  attempt + 1,
				Tokens:    tokens,
				Model:     s.model,
			}, nil
		}

		metrics.IncGenerationAttempt("validation_failed")
		metrics.IncValidationRun("fail")
		lastDiagnostic = result.Summary()
		s.logger.Warn("candidate failed schema validation",
			"attempt", attempt+1, "diagnostics", lastDiagnostic)
	}

	return nil, &GenerationExhaustedError{
		Attempts:       maxRetries + 1,
		LastDiagnostic: lastDiagnostic,
	}
}

// invoke calls the adapter at low temperature. When the provider rejects the
// temperature parameter the call is replayed once without it.
func (s *GenerationService) invoke(ctx context.Context, prompt string) (*entity.DevContainer, error) {
	temp := invokeTemperature
	candidate, err := s.generator.GenerateDevContainer(ctx, entity.SystemInstruction, prompt, repository.GenerateOptions{
		Temperature:     &temp,
		MaxParseRetries: parseRetries,
	})
	if err != nil && llm.IsTemperatureUnsupported(err) && llm.Classify(err) != llm.KindConfiguration {
		s.logger.Warn("temperature parameter not supported, retrying without it")
		return s.generator.GenerateDevContainer(ctx, entity.SystemInstruction, prompt, repository.GenerateOptions{
			MaxParseRetries: parseRetries,
		})
	}
	return candidate, err
}

func (s *GenerationService) sleepBackoff(ctx context.Context, attempt int) error {
	if s.backoffBase <= 0 {
		return nil
	}
	delay := s.backoffBase << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
