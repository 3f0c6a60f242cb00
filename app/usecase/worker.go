package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
	"github.com/RS-labhub/devcontainer-generator/internal/infrastructure/metrics"
)

const defaultPollInterval = 5 * time.Second

// Embedder produces a vector for an accepted artifact. Nil is a valid
// embedder: embedding failures never fail a job.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ArtifactWriter mirrors accepted artifacts outside the primary store.
type ArtifactWriter interface {
	Save(ctx context.Context, artifact *entity.Artifact) error
}

// GenerationWorker polls for pending jobs and runs each through the
// generation pipeline. One job at a time: throughput is bounded by the
// provider, not by local concurrency.
type GenerationWorker struct {
	jobs         repository.JobRepository
	artifacts    repository.ArtifactRepository
	mirror       ArtifactWriter
	gen          *GenerationService
	embedder     Embedder
	logger       *slog.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration

	stop    chan struct{}
	stopped chan struct{}
}

type WorkerOption func(*GenerationWorker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *GenerationWorker) { w.pollInterval = d }
}

func WithJobTimeout(d time.Duration) WorkerOption {
	return func(w *GenerationWorker) { w.jobTimeout = d }
}

func NewGenerationWorker(
	jobs repository.JobRepository,
	artifacts repository.ArtifactRepository,
	mirror ArtifactWriter,
	gen *GenerationService,
	embedder Embedder,
	logger *slog.Logger,
	opts ...WorkerOption,
) *GenerationWorker {
	w := &GenerationWorker{
		jobs:         jobs,
		artifacts:    artifacts,
		mirror:       mirror,
		gen:          gen,
		embedder:     embedder,
		logger:       logger,
		pollInterval: defaultPollInterval,
		jobTimeout:   10 * time.Minute,
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling loop. It returns immediately; call Stop to
// drain and wait.
func (w *GenerationWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		w.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

// Stop signals the loop and blocks until the in-flight job, if any, is done.
func (w *GenerationWorker) Stop() {
	close(w.stop)
	<-w.stopped
}

func (w *GenerationWorker) runOnce(ctx context.Context) {
	pending, err := w.jobs.ListByStatus(ctx, entity.JobStatusPending)
	if err != nil {
		w.logger.Error("listing pending jobs failed", "err", err)
		metrics.IncError("worker", "list_pending")
		return
	}

	for _, job := range pending {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		if err := w.jobs.UpdateStatus(ctx, job.ID, entity.JobStatusRunning); err != nil {
			w.logger.Error("claiming job failed", "id", job.ID, "err", err)
			continue
		}
		metrics.IncJobStatusChange(string(entity.JobStatusRunning))

		jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
		w.processJob(jobCtx, job)
		cancel()
	}
}

func (w *GenerationWorker) processJob(ctx context.Context, job *entity.Job) {
	started := time.Now()
	w.logger.Info("processing job", "id", job.ID, "repo_url", job.RepoURL)

	res, err := w.gen.Generate(ctx, entity.GenerateRequest{
		RepoURL:         job.RepoURL,
		Context:         job.Context,
		DevContainerURL: job.DevContainerURL,
		Regenerate:      job.Regenerate,
		MaxRetries:      job.MaxRetries,
	})
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	artifact := entity.NewArtifact(job.ID, job.RepoURL, job.Context, res)
	if w.embedder != nil {
		embedding, err := w.embedder.Embed(ctx, res.JSON)
		if err != nil {
			w.logger.Warn("embedding failed, storing artifact without it", "id", job.ID, "err", err)
			metrics.IncError("worker", "embedding")
		} else {
			artifact.Embedding = embedding
		}
	}

	if _, err := w.artifacts.Save(ctx, artifact); err != nil {
		w.fail(ctx, job, err)
		return
	}
	if w.mirror != nil {
		if err := w.mirror.Save(ctx, artifact); err != nil {
			w.logger.Warn("mirroring artifact failed", "id", job.ID, "err", err)
			metrics.IncError("worker", "mirror")
		}
	}

	if err := w.jobs.UpdateStatus(ctx, job.ID, entity.JobStatusCompleted); err != nil {
		w.logger.Error("marking job completed failed", "id", job.ID, "err", err)
		return
	}
	metrics.IncJobStatusChange(string(entity.JobStatusCompleted))
	metrics.ObserveJobDuration(time.Since(started))
	w.logger.Info("job completed", "id", job.ID,
		"attempts", res.Attempts, "generated", res.Generated,
		"duration", time.Since(started).Round(time.Millisecond))
}

func (w *GenerationWorker) fail(ctx context.Context, job *entity.Job, cause error) {
	w.logger.Error("job failed", "id", job.ID, "err", cause)
	metrics.IncError("worker", "generation")
	if err := w.jobs.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		w.logger.Error("marking job failed failed", "id", job.ID, "err", err)
		return
	}
	metrics.IncJobStatusChange(string(entity.JobStatusFailed))
}
