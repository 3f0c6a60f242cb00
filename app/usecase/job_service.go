package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RS-labhub/devcontainer-generator/internal/domain/entity"
	"github.com/RS-labhub/devcontainer-generator/internal/domain/repository"
)

// CreateJobParams carries the request fields accepted over the API.
type CreateJobParams struct {
	RepoURL         string
	Context         string
	DevContainerURL *string
	Regenerate      bool
	MaxRetries      int
}

type JobUsecase interface {
	CreateJob(ctx context.Context, params CreateJobParams) (*entity.Job, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	ListJobs(ctx context.Context) ([]*entity.Job, error)
	DeleteJob(ctx context.Context, id string) error
}

type JobService struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

var _ JobUsecase = (*JobService)(nil)

func NewJobService(jobs repository.JobRepository, logger *slog.Logger) *JobService {
	return &JobService{jobs: jobs, logger: logger}
}

func (s *JobService) CreateJob(ctx context.Context, params CreateJobParams) (*entity.Job, error) {
	if params.RepoURL == "" {
		return nil, fmt.Errorf("repo_url is required")
	}
	if params.Context == "" {
		return nil, fmt.Errorf("context is required")
	}
	job := entity.NewJob(params.RepoURL, params.Context, params.DevContainerURL, params.Regenerate, params.MaxRetries)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("job created", "id", job.ID, "repo_url", job.RepoURL, "regenerate", job.Regenerate)
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}
	return s.jobs.GetByID(ctx, id)
}

func (s *JobService) ListJobs(ctx context.Context) ([]*entity.Job, error) {
	return s.jobs.List(ctx)
}

func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("job id is required")
	}
	return s.jobs.Delete(ctx, id)
}
