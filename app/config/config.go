package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type HTTPServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"120s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
}

func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	Provider           string        `env:"LLM_PROVIDER" envDefault:"azure_openai"`
	Model              string        `env:"MODEL"`
	MaxRetries         int           `env:"GENERATION_MAX_RETRIES" envDefault:"3"`
	ContextTokenBudget int           `env:"CONTEXT_TOKEN_BUDGET" envDefault:"126000"`
	Timeout            time.Duration `env:"LLM_TIMEOUT" envDefault:"2m"`

	AzureOpenAIKey      string `env:"AZURE_OPENAI_API_KEY"`
	AzureOpenAIEndpoint string `env:"AZURE_OPENAI_ENDPOINT"`
	AzureAPIVersion     string `env:"AZURE_OPENAI_API_VERSION" envDefault:"2024-08-01-preview"`
	OpenAIKey           string `env:"OPENAI_API_KEY"`
	AnthropicKey        string `env:"ANTHROPIC_API_KEY"`
	GoogleKey           string `env:"GOOGLE_API_KEY"`
	GroqKey             string `env:"GROQ_API_KEY"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" envDefault:"devcontainers"`
}

type StoreConfig struct {
	ArtifactDir string `env:"ARTIFACT_DIR" envDefault:"./generated"`
}

type Config struct {
	Server HTTPServerConfig
	LLM    LLMConfig
	Mongo  MongoConfig
	Store  StoreConfig
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
