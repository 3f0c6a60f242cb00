package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/llm"
)

func TestIsToolUseFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"groq signature", errors.New(`400 - {"error": {"code": "tool_use_failed"}}`), true},
		{"function signature", errors.New("the model failed to call a function"), true},
		{"validation signature", errors.New("tool call validation failed: schema mismatch"), true},
		{"unrelated", errors.New("connection refused"), false},
		{"wrapped", fmt.Errorf("call groq: %w", errors.New("tool_use_failed")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, llm.IsToolUseFailure(tc.err))
		})
	}
}

func TestIsTemperatureUnsupported(t *testing.T) {
	assert.True(t, llm.IsTemperatureUnsupported(errors.New("'temperature' is not supported with this model")))
	assert.True(t, llm.IsTemperatureUnsupported(errors.New("model does not support this parameter")))
	assert.False(t, llm.IsTemperatureUnsupported(errors.New("rate limit exceeded")))
	assert.False(t, llm.IsTemperatureUnsupported(nil))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want llm.ErrorKind
	}{
		{"unsupported provider", fmt.Errorf("%w: Nope", llm.ErrUnsupportedProvider), llm.KindConfiguration},
		{"missing credentials", fmt.Errorf("%w: OPENAI_API_KEY required", llm.ErrMissingCredentials), llm.KindConfiguration},
		{"unauthorized", &llm.APIError{Provider: "openai", StatusCode: http.StatusUnauthorized}, llm.KindConfiguration},
		{"forbidden", &llm.APIError{Provider: "openai", StatusCode: http.StatusForbidden}, llm.KindConfiguration},
		{"rate limited", &llm.APIError{Provider: "openai", StatusCode: http.StatusTooManyRequests}, llm.KindTransient},
		{"server error", &llm.APIError{Provider: "openai", StatusCode: http.StatusInternalServerError}, llm.KindTransient},
		{"extraction", &llm.ExtractionError{Provider: "groq", Mode: "tools", Err: errors.New("no tool call")}, llm.KindValidation},
		{"tool use failure text", errors.New("tool_use_failed"), llm.KindValidation},
		{"deadline", context.DeadlineExceeded, llm.KindTransient},
		{"unknown", errors.New("socket hang up"), llm.KindTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, llm.Classify(tc.err))
		})
	}
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "configuration", llm.KindConfiguration.String())
	assert.Equal(t, "transient", llm.KindTransient.String())
	assert.Equal(t, "validation", llm.KindValidation.String())
}

func TestExtractionErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &llm.ExtractionError{Provider: "openai", Mode: "json", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "json mode")
}
