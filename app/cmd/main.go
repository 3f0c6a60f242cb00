package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RS-labhub/devcontainer-generator/app/config"
	"github.com/RS-labhub/devcontainer-generator/app/usecase"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/llm"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/store/filesystem"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/store/mongodb"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/tokenizer"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/transport"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/validator"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	provider := llm.ResolveProvider(cfg.LLM.Provider, logger)
	model := llm.ResolveModel(cfg.LLM.Model, provider, logger)
	if ok, msg := llm.ValidateModelForProvider(model, provider); !ok {
		logger.Warn("model not recognized for provider", "model", model, "detail", msg)
	}

	// Fail fast on missing credentials rather than on the first job.
	for _, name := range llm.RequiredEnvVars(provider) {
		if os.Getenv(name) == "" {
			logger.Error("missing required environment variable", "name", name, "provider", string(provider))
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoCtx, mongoCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	mongoCancel()
	if err != nil {
		logger.Error("mongo connect failed", "err", err)
		os.Exit(1)
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	err = client.Ping(pingCtx, nil)
	pingCancel()
	if err != nil {
		logger.Error("mongo ping failed", "err", err)
		os.Exit(1)
	}
	db := client.Database(cfg.Mongo.Database)

	jobRepo, err := mongodb.NewMongoJobRepo(db)
	if err != nil {
		logger.Error("job repo init failed", "err", err)
		os.Exit(1)
	}
	artifactRepo, err := mongodb.NewMongoArtifactRepo(db)
	if err != nil {
		logger.Error("artifact repo init failed", "err", err)
		os.Exit(1)
	}
	mirror, err := filesystem.NewArtifactMirror(cfg.Store.ArtifactDir)
	if err != nil {
		logger.Error("artifact mirror init failed", "err", err)
		os.Exit(1)
	}

	budgeter, err := tokenizer.New(model)
	if err != nil {
		logger.Error("tokenizer init failed", "model", model, "err", err)
		os.Exit(1)
	}
	val, err := validator.New()
	if err != nil {
		logger.Error("validator init failed", "err", err)
		os.Exit(1)
	}

	creds := llm.Credentials{
		AzureOpenAIAPIKey:     cfg.LLM.AzureOpenAIKey,
		AzureOpenAIEndpoint:   cfg.LLM.AzureOpenAIEndpoint,
		AzureOpenAIAPIVersion: cfg.LLM.AzureAPIVersion,
		OpenAIAPIKey:          cfg.LLM.OpenAIKey,
		AnthropicAPIKey:       cfg.LLM.AnthropicKey,
		GoogleAPIKey:          cfg.LLM.GoogleKey,
		GroqAPIKey:            cfg.LLM.GroqKey,
	}
	generator, err := llm.BuildAdapter(ctx, provider, model, creds, logger)
	if err != nil {
		logger.Error("llm adapter init failed", "provider", string(provider), "err", err)
		os.Exit(1)
	}

	genService := usecase.NewGenerationService(generator, val, budgeter, model, logger,
		usecase.WithTokenBudget(cfg.LLM.ContextTokenBudget),
		usecase.WithMaxRetries(cfg.LLM.MaxRetries),
	)

	var embedder usecase.Embedder
	if ec := llm.NewEmbeddingClient(provider, creds); ec != nil {
		embedder = ec
	} else {
		logger.Info("embeddings disabled for provider", "provider", string(provider))
	}

	worker := usecase.NewGenerationWorker(jobRepo, artifactRepo, mirror, genService, embedder, logger,
		usecase.WithJobTimeout(cfg.LLM.Timeout))
	worker.Start(ctx)

	jobService := usecase.NewJobService(jobRepo, logger)
	artifactService := usecase.NewArtifactService(artifactRepo)
	handler := transport.NewHandler(jobService, artifactService, logger)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      cors(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening",
			"addr", cfg.Server.Addr(), "provider", string(provider), "model", model)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	worker.Stop()
	cancel()
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error("mongo disconnect failed", "err", err)
	}
	logger.Info("shutdown complete")
}
