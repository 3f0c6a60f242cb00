package repository

import (
	"context"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

// GenerateOptions tunes a single structured-extraction call.
type GenerateOptions struct {
	// Temperature is omitted from the provider request when nil.
	Temperature *float64
	// MaxParseRetries bounds the adapter-internal retries on transient parse
	// failures before the call is reported as failed.
	MaxParseRetries int
}

// StructuredGenerator turns a prompt into a schema-conformant DevContainer.
// Implementations wrap one provider and own its extraction strategy.
type StructuredGenerator interface {
	GenerateDevContainer(ctx context.Context, system, prompt string, opts GenerateOptions) (*entity.DevContainer, error)
}
