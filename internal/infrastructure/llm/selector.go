package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
)

// ResolveProvider maps a configured value onto the supported set. Matching is
// case-insensitive and ignores separators, so "azure_openai" and "AzureOpenAI"
// both resolve. Unknown values log a warning and fall back to the default; the
// function is total.
func ResolveProvider(configured string, logger *slog.Logger) entity.Provider {
	if configured == "" {
		return entity.DefaultProvider
	}
	want := normalizeProviderName(configured)
	for _, p := range entity.SupportedProviders {
		if normalizeProviderName(string(p)) == want {
			return p
		}
	}
	logger.Warn("unsupported llm provider, falling back to default",
		"provider", configured, "default", string(entity.DefaultProvider))
	return entity.DefaultProvider
}

func normalizeProviderName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

// ResolveModel picks the model for a provider. An override is kept only when
// it passes the compatibility check; otherwise the provider default is used.
func ResolveModel(override string, provider entity.Provider, logger *slog.Logger) string {
	def := entity.DefaultModels[provider]
	if override == "" {
		logger.Warn("no MODEL configured, using provider default",
			"provider", string(provider), "model", def)
		return def
	}
	if ok, msg := ValidateModelForProvider(override, provider); !ok {
		logger.Warn("configured model incompatible with provider, using default",
			"model", override, "provider", string(provider), "default", def, "reason", msg)
		return def
	}
	return override
}

// ValidateModelForProvider checks an override against the provider's known
// model list. Matching is substring in either direction so version-suffixed
// names still pass. An empty list for a provider skips validation.
func ValidateModelForProvider(model string, provider entity.Provider) (bool, string) {
	known := entity.KnownModels[provider]
	if len(known) == 0 {
		return true, ""
	}
	for _, k := range known {
		if strings.Contains(model, k) || strings.Contains(k, model) {
			return true, ""
		}
	}
	return false, fmt.Sprintf(
		"model %q may not be compatible with provider %q; common models: %s",
		model, string(provider), strings.Join(known[:3], ", "))
}

// RequiredEnvVars returns the union of common and provider-specific variables
// the preflight check should verify.
func RequiredEnvVars(provider entity.Provider) []string {
	vars := make([]string, 0, len(entity.CommonEnvVars)+3)
	vars = append(vars, entity.CommonEnvVars...)
	vars = append(vars, entity.ProviderEnvVars[provider]...)
	return vars
}

// SupportsEmbeddings reports whether the provider exposes an embeddings
// endpoint.
func SupportsEmbeddings(provider entity.Provider) bool {
	return entity.EmbeddingProviders[provider]
}
