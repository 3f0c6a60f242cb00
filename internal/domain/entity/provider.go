package entity

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAzureOpenAI Provider = "AzureOpenAI"
	ProviderOpenAI      Provider = "OpenAI"
	ProviderAnthropic   Provider = "Anthropic"
	ProviderGoogle      Provider = "Google"
	ProviderGroq        Provider = "Groq"
)

// DefaultProvider is substituted when LLM_PROVIDER is unset or not a member
// of the supported set.
const DefaultProvider = ProviderAzureOpenAI

var SupportedProviders = []Provider{
	ProviderAzureOpenAI,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderGroq,
}

func (p Provider) Supported() bool {
	for _, s := range SupportedProviders {
		if p == s {
			return true
		}
	}
	return false
}

// DefaultModels maps each provider to the model used when MODEL is unset or
// incompatible with the provider.
var DefaultModels = map[Provider]string{
	ProviderAzureOpenAI: "gpt-4o-mini",
	ProviderOpenAI:      "gpt-4o-mini",
	ProviderAnthropic:   "claude-3-5-sonnet-20241022",
	ProviderGoogle:      "gemini-1.5-pro",
	ProviderGroq:        "llama-3.3-70b-versatile",
}

// KnownModels lists common models per provider. Non-exhaustive: compatibility
// checks match by substring in either direction to tolerate version suffixes.
var KnownModels = map[Provider][]string{
	ProviderAzureOpenAI: {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-35-turbo", "gpt-3.5-turbo"},
	ProviderOpenAI:      {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
	ProviderAnthropic:   {"claude-3-5-sonnet-20241022", "claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307"},
	ProviderGoogle:      {"gemini-2.5-pro", "gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash", "gemini-pro", "gemini-1.0-pro"},
	ProviderGroq:        {"llama-3.3-70b-versatile", "llama-3.1-70b-versatile", "llama-3.1-8b-instant", "mixtral-8x7b-32768", "gemma2-9b-it"},
}

// CommonEnvVars are required regardless of provider.
var CommonEnvVars = []string{"LLM_PROVIDER", "MODEL", "MONGO_URI", "MONGO_DB"}

// ProviderEnvVars lists the credential variables each provider needs.
var ProviderEnvVars = map[Provider][]string{
	ProviderAzureOpenAI: {"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_API_VERSION"},
	ProviderOpenAI:      {"OPENAI_API_KEY"},
	ProviderAnthropic:   {"ANTHROPIC_API_KEY"},
	ProviderGoogle:      {"GOOGLE_API_KEY"},
	ProviderGroq:        {"GROQ_API_KEY"},
}

// EmbeddingProviders marks which providers expose an embeddings endpoint.
var EmbeddingProviders = map[Provider]bool{
	ProviderAzureOpenAI: true,
	ProviderOpenAI:      true,
}
