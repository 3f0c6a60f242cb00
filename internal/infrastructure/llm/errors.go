package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Construction-time failures. These are configuration errors: they are never
// retried and surface to the caller immediately.
var (
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrMissingCredentials  = errors.New("missing llm credentials")
)

// ErrorKind classifies a provider failure for the orchestrator's retry
// decision.
type ErrorKind int

const (
	// KindConfiguration is fatal: bad provider, missing credentials.
	KindConfiguration ErrorKind = iota
	// KindTransient covers timeouts, rate limits and malformed provider
	// responses; retried up to the attempt budget.
	KindTransient
	// KindValidation covers structured output that could not be extracted or
	// parsed; retried the same way, the model is just noisy.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// APIError is a non-2xx provider response.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// ExtractionError marks a failure to obtain a schema-conformant object from a
// provider response.
type ExtractionError struct {
	Provider string
	Mode     string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("structured extraction failed (%s, %s mode): %v", e.Provider, e.Mode, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Signature substrings recognized in vendor error text. String-matching
// vendor messages is brittle; the lists live here so they can be revisited
// per provider version in one place.
var (
	toolUseFailureSignatures = []string{
		"tool_use_failed",
		"failed to call a function",
		"tool call validation failed",
	}
	temperatureSignatures = []string{
		"temperature",
		"does not support",
	}
)

func matchesAny(err error, signatures []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range signatures {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsToolUseFailure reports whether err carries a provider's tool-calling
// failure signature. Groq is known to produce these on complex schemas.
func IsToolUseFailure(err error) bool {
	return matchesAny(err, toolUseFailureSignatures)
}

// IsTemperatureUnsupported reports whether err indicates the model rejects
// the temperature parameter.
func IsTemperatureUnsupported(err error) bool {
	return matchesAny(err, temperatureSignatures)
}

// Classify maps a raw error onto the retry taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, ErrUnsupportedProvider), errors.Is(err, ErrMissingCredentials):
		return KindConfiguration
	}

	var extraction *ExtractionError
	if errors.As(err, &extraction) {
		return KindValidation
	}
	if IsToolUseFailure(err) {
		return KindValidation
	}

	var api *APIError
	if errors.As(err, &api) {
		switch api.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindConfiguration
		}
		return KindTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindTransient
}
